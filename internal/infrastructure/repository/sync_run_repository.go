package repository

import (
	"context"
	"errors"

	"commerce-sync-core/internal/domain"
	"commerce-sync-core/internal/infrastructure/repository/entity"
	"commerce-sync-core/internal/ports"

	"gorm.io/gorm"
)

// GormSyncRunRepository implements SyncRunRepository using gorm
type GormSyncRunRepository struct {
	db *gorm.DB
}

// NewGormSyncRunRepository creates a new sync run repository
func NewGormSyncRunRepository(db *gorm.DB) *GormSyncRunRepository {
	return &GormSyncRunRepository{db: db}
}

var _ ports.SyncRunRepository = (*GormSyncRunRepository)(nil)

// Create inserts a run
func (r *GormSyncRunRepository) Create(ctx context.Context, run *domain.SyncRun) error {
	if err := r.db.WithContext(ctx).Create(entity.SyncRunModelFromDomain(run)).Error; err != nil {
		return domain.NewPersistenceError("create sync run", err)
	}
	return nil
}

// Update saves the run's state and progress
func (r *GormSyncRunRepository) Update(ctx context.Context, run *domain.SyncRun) error {
	model := entity.SyncRunModelFromDomain(run)
	err := r.db.WithContext(ctx).
		Model(model).
		Select([]string{"state", "progress", "processed", "failure_reason", "watermark_before", "watermark_after", "finished_at"}).
		Updates(model).Error
	if err != nil {
		return domain.NewPersistenceError("update sync run", err)
	}
	return nil
}

// GetByID retrieves a run of a tenant
func (r *GormSyncRunRepository) GetByID(ctx context.Context, tenantID string, runID string) (*domain.SyncRun, error) {
	var model entity.SyncRunModel
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, runID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewPersistenceError("get sync run", err)
	}
	return model.ToDomain(), nil
}

// GetLatestByStore retrieves the most recently started run of a store
func (r *GormSyncRunRepository) GetLatestByStore(ctx context.Context, tenantID string, storeID string) (*domain.SyncRun, error) {
	runs, err := r.ListByStore(ctx, tenantID, storeID, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// ListByStore retrieves a store's runs, newest first
func (r *GormSyncRunRepository) ListByStore(ctx context.Context, tenantID string, storeID string, limit int) ([]*domain.SyncRun, error) {
	var models []entity.SyncRunModel
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND store_id = ?", tenantID, storeID).
		Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, domain.NewPersistenceError("list sync runs", err)
	}
	runs := make([]*domain.SyncRun, 0, len(models))
	for i := range models {
		runs = append(runs, models[i].ToDomain())
	}
	return runs, nil
}

// ListUnfinished retrieves runs of every tenant that never reached a terminal state
func (r *GormSyncRunRepository) ListUnfinished(ctx context.Context) ([]*domain.SyncRun, error) {
	var models []entity.SyncRunModel
	err := r.db.WithContext(ctx).
		Where("state NOT IN ?", []string{string(domain.SyncStateCompleted), string(domain.SyncStateFailed)}).
		Order("started_at").
		Find(&models).Error
	if err != nil {
		return nil, domain.NewPersistenceError("list unfinished sync runs", err)
	}
	runs := make([]*domain.SyncRun, 0, len(models))
	for i := range models {
		runs = append(runs, models[i].ToDomain())
	}
	return runs, nil
}
