package entity

import (
	"time"

	"commerce-sync-core/internal/domain"
)

// SyncRunModel represents a sync run in the relational database
type SyncRunModel struct {
	ID              string                                           `gorm:"primaryKey;type:varchar(36)"`
	TenantID        string                                           `gorm:"type:varchar(64);not null;index:idx_sync_runs_store,priority:1"`
	StoreID         string                                           `gorm:"type:varchar(36);not null;index:idx_sync_runs_store,priority:2"`
	Type            string                                           `gorm:"type:varchar(16);not null"`
	State           string                                           `gorm:"type:varchar(16);not null"`
	Progress        map[domain.ResourceType]*domain.ResourceProgress `gorm:"serializer:json"`
	Processed       int                                              `gorm:"not null"`
	FailureReason   string                                           `gorm:"type:text"`
	WatermarkBefore *time.Time
	WatermarkAfter  *time.Time
	StartedAt       time.Time `gorm:"not null;index:idx_sync_runs_store,priority:3"`
	FinishedAt      *time.Time
}

// TableName overrides the table name
func (SyncRunModel) TableName() string {
	return "sync_runs"
}

// ToDomain converts the model to a domain entity
func (m *SyncRunModel) ToDomain() *domain.SyncRun {
	run := &domain.SyncRun{
		ID:              m.ID,
		TenantID:        m.TenantID,
		StoreID:         m.StoreID,
		Type:            domain.SyncType(m.Type),
		State:           domain.SyncState(m.State),
		Progress:        m.Progress,
		Processed:       m.Processed,
		FailureReason:   m.FailureReason,
		WatermarkBefore: m.WatermarkBefore,
		WatermarkAfter:  m.WatermarkAfter,
		StartedAt:       m.StartedAt,
		FinishedAt:      m.FinishedAt,
	}
	if run.Progress == nil {
		run.Progress = map[domain.ResourceType]*domain.ResourceProgress{}
	}
	return run
}

// SyncRunModelFromDomain converts a domain entity to a model
func SyncRunModelFromDomain(run *domain.SyncRun) *SyncRunModel {
	return &SyncRunModel{
		ID:              run.ID,
		TenantID:        run.TenantID,
		StoreID:         run.StoreID,
		Type:            string(run.Type),
		State:           string(run.State),
		Progress:        run.Progress,
		Processed:       run.Processed,
		FailureReason:   run.FailureReason,
		WatermarkBefore: run.WatermarkBefore,
		WatermarkAfter:  run.WatermarkAfter,
		StartedAt:       run.StartedAt,
		FinishedAt:      run.FinishedAt,
	}
}
