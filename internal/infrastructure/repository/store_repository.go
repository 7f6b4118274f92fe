package repository

import (
	"context"
	"errors"
	"time"

	"commerce-sync-core/internal/domain"
	"commerce-sync-core/internal/infrastructure/repository/entity"
	"commerce-sync-core/internal/ports"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStoreRepository implements StoreRepository using gorm
type GormStoreRepository struct {
	db *gorm.DB
}

// NewGormStoreRepository creates a new store repository
func NewGormStoreRepository(db *gorm.DB) *GormStoreRepository {
	return &GormStoreRepository{db: db}
}

var _ ports.StoreRepository = (*GormStoreRepository)(nil)

// Create inserts a new store and assigns its id
func (r *GormStoreRepository) Create(ctx context.Context, store *domain.Store) error {
	if store.ID == "" {
		store.ID = uuid.NewString()
	}
	model := entity.StoreModelFromDomain(store)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return domain.NewPersistenceError("create store", err)
	}
	store.CreatedAt = model.CreatedAt
	store.UpdatedAt = model.UpdatedAt
	return nil
}

// storeUpdatableColumns are written by Update. The sync flag and watermark
// belong to the sync run and are only written through the lock and
// AdvanceWatermark.
var storeUpdatableColumns = []string{
	"shop_domain", "access_token", "shop_name", "email", "currency", "timezone",
	"plan_name", "status", "sync_frequency", "settings", "disconnected_at", "updated_at",
}

// Update saves the store's connection and settings fields
func (r *GormStoreRepository) Update(ctx context.Context, store *domain.Store) error {
	store.UpdatedAt = time.Now()
	model := entity.StoreModelFromDomain(store)
	result := r.db.WithContext(ctx).
		Model(&entity.StoreModel{}).
		Where("tenant_id = ? AND id = ?", store.TenantID, store.ID).
		Select(storeUpdatableColumns).
		Updates(model)
	if result.Error != nil {
		return domain.NewPersistenceError("update store", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrStoreNotFound
	}
	return nil
}

func (r *GormStoreRepository) first(ctx context.Context, query string, args ...interface{}) (*domain.Store, error) {
	var model entity.StoreModel
	err := r.db.WithContext(ctx).Where(query, args...).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewPersistenceError("get store", err)
	}
	return model.ToDomain(), nil
}

// GetByID retrieves a tenant's store
func (r *GormStoreRepository) GetByID(ctx context.Context, tenantID string, storeID string) (*domain.Store, error) {
	return r.first(ctx, "tenant_id = ? AND id = ?", tenantID, storeID)
}

// GetByDomain retrieves a tenant's store by shop domain
func (r *GormStoreRepository) GetByDomain(ctx context.Context, tenantID string, shopDomain string) (*domain.Store, error) {
	return r.first(ctx, "tenant_id = ? AND shop_domain = ?", tenantID, shopDomain)
}

// FindByID retrieves a store by id alone
func (r *GormStoreRepository) FindByID(ctx context.Context, storeID string) (*domain.Store, error) {
	return r.first(ctx, "id = ?", storeID)
}

func (r *GormStoreRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Store, error) {
	var models []entity.StoreModel
	err := r.db.WithContext(ctx).Where(query, args...).Order("created_at ASC").Find(&models).Error
	if err != nil {
		return nil, domain.NewPersistenceError("list stores", err)
	}
	stores := make([]*domain.Store, 0, len(models))
	for i := range models {
		stores = append(stores, models[i].ToDomain())
	}
	return stores, nil
}

// ListByTenant retrieves every store of a tenant, including disconnected ones
func (r *GormStoreRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Store, error) {
	return r.list(ctx, "tenant_id = ?", tenantID)
}

// ListConnected retrieves connected stores across all tenants
func (r *GormStoreRepository) ListConnected(ctx context.Context) ([]*domain.Store, error) {
	return r.list(ctx, "status = ?", string(domain.StoreStatusConnected))
}

// AcquireSyncLock sets sync_in_progress if it is not already set
func (r *GormStoreRepository) AcquireSyncLock(ctx context.Context, tenantID string, storeID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.StoreModel{}).
		Where("tenant_id = ? AND id = ? AND sync_in_progress = ?", tenantID, storeID, false).
		Update("sync_in_progress", true)
	if result.Error != nil {
		return false, domain.NewPersistenceError("acquire sync lock", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ReleaseSyncLock clears sync_in_progress
func (r *GormStoreRepository) ReleaseSyncLock(ctx context.Context, tenantID string, storeID string) error {
	err := r.db.WithContext(ctx).
		Model(&entity.StoreModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, storeID).
		Update("sync_in_progress", false).Error
	if err != nil {
		return domain.NewPersistenceError("release sync lock", err)
	}
	return nil
}

// ReleaseOrphanedSyncLocks clears sync_in_progress on stores without an
// unfinished run, as left behind by a crash between taking the lock and
// recording the run
func (r *GormStoreRepository) ReleaseOrphanedSyncLocks(ctx context.Context) (int64, error) {
	unfinished := r.db.
		Model(&entity.SyncRunModel{}).
		Select("store_id").
		Where("state NOT IN ?", []string{string(domain.SyncStateCompleted), string(domain.SyncStateFailed)})
	result := r.db.WithContext(ctx).
		Model(&entity.StoreModel{}).
		Where("sync_in_progress = ?", true).
		Where("id NOT IN (?)", unfinished).
		Update("sync_in_progress", false)
	if result.Error != nil {
		return 0, domain.NewPersistenceError("release orphaned sync locks", result.Error)
	}
	return result.RowsAffected, nil
}

// AdvanceWatermark writes the watermark, cursors and last sync time of a
// completed run
func (r *GormStoreRepository) AdvanceWatermark(ctx context.Context, tenantID string, storeID string, watermark domain.Watermark) error {
	syncedAt := watermark.SyncedAt
	model := &entity.StoreModel{
		SyncWatermark: watermark.UpdatedAt,
		SyncCursors:   watermark.Cursors,
		LastSyncAt:    &syncedAt,
		UpdatedAt:     time.Now(),
	}
	result := r.db.WithContext(ctx).
		Model(&entity.StoreModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, storeID).
		Select([]string{"sync_watermark", "sync_cursors", "last_sync_at", "updated_at"}).
		Updates(model)
	if result.Error != nil {
		return domain.NewPersistenceError("advance watermark", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrStoreNotFound
	}
	return nil
}

// MarkFailed sets the connection status to failed
func (r *GormStoreRepository) MarkFailed(ctx context.Context, tenantID string, storeID string) error {
	err := r.db.WithContext(ctx).
		Model(&entity.StoreModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, storeID).
		Update("status", string(domain.StoreStatusFailed)).Error
	if err != nil {
		return domain.NewPersistenceError("mark store failed", err)
	}
	return nil
}
