package entity

import (
	"time"

	"commerce-sync-core/internal/domain"
)

// StoreModel represents a connected store in the relational database
type StoreModel struct {
	ID             string            `gorm:"primaryKey;type:varchar(36)"`
	TenantID       string            `gorm:"type:varchar(64);not null;uniqueIndex:idx_stores_tenant_domain,priority:1"`
	ShopDomain     string            `gorm:"type:varchar(255);not null;uniqueIndex:idx_stores_tenant_domain,priority:2"`
	AccessToken    string            `gorm:"type:text"`
	ShopName       string            `gorm:"type:varchar(255)"`
	Email          string            `gorm:"type:varchar(255)"`
	Currency       string            `gorm:"type:varchar(8)"`
	Timezone       string            `gorm:"type:varchar(64)"`
	PlanName       string            `gorm:"type:varchar(64)"`
	Status         string            `gorm:"type:varchar(32);not null;index"`
	SyncFrequency  string            `gorm:"type:varchar(16);not null"`
	Settings       map[string]string `gorm:"serializer:json"`
	LastSyncAt     *time.Time
	SyncWatermark  *time.Time
	SyncCursors    map[domain.ResourceType]time.Time `gorm:"serializer:json"`
	SyncInProgress bool                              `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DisconnectedAt *time.Time
}

// TableName overrides the table name
func (StoreModel) TableName() string {
	return "stores"
}

// ToDomain converts the model to a domain entity
func (m *StoreModel) ToDomain() *domain.Store {
	store := &domain.Store{
		ID:             m.ID,
		TenantID:       m.TenantID,
		ShopDomain:     m.ShopDomain,
		AccessToken:    m.AccessToken,
		ShopName:       m.ShopName,
		Email:          m.Email,
		Currency:       m.Currency,
		Timezone:       m.Timezone,
		PlanName:       m.PlanName,
		Status:         domain.ConnectionStatus(m.Status),
		SyncFrequency:  domain.SyncFrequency(m.SyncFrequency),
		Settings:       m.Settings,
		LastSyncAt:     m.LastSyncAt,
		SyncWatermark:  m.SyncWatermark,
		SyncCursors:    m.SyncCursors,
		SyncInProgress: m.SyncInProgress,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		DisconnectedAt: m.DisconnectedAt,
	}
	if store.Settings == nil {
		store.Settings = map[string]string{}
	}
	if store.SyncCursors == nil {
		store.SyncCursors = map[domain.ResourceType]time.Time{}
	}
	return store
}

// StoreModelFromDomain converts a domain entity to a model
func StoreModelFromDomain(store *domain.Store) *StoreModel {
	return &StoreModel{
		ID:             store.ID,
		TenantID:       store.TenantID,
		ShopDomain:     store.ShopDomain,
		AccessToken:    store.AccessToken,
		ShopName:       store.ShopName,
		Email:          store.Email,
		Currency:       store.Currency,
		Timezone:       store.Timezone,
		PlanName:       store.PlanName,
		Status:         string(store.Status),
		SyncFrequency:  string(store.SyncFrequency),
		Settings:       store.Settings,
		LastSyncAt:     store.LastSyncAt,
		SyncWatermark:  store.SyncWatermark,
		SyncCursors:    store.SyncCursors,
		SyncInProgress: store.SyncInProgress,
		CreatedAt:      store.CreatedAt,
		UpdatedAt:      store.UpdatedAt,
		DisconnectedAt: store.DisconnectedAt,
	}
}
