package ports

import (
	"context"

	"commerce-sync-core/internal/domain"
)

// StoreRepository defines the interface for store persistence.
// Getters return nil, nil when the store does not exist.
type StoreRepository interface {
	Create(ctx context.Context, store *domain.Store) error
	Update(ctx context.Context, store *domain.Store) error
	GetByID(ctx context.Context, tenantID string, storeID string) (*domain.Store, error)
	GetByDomain(ctx context.Context, tenantID string, shopDomain string) (*domain.Store, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Store, error)
	ListConnected(ctx context.Context) ([]*domain.Store, error)

	// FindByID looks a store up without a tenant, for inbound webhooks
	FindByID(ctx context.Context, storeID string) (*domain.Store, error)

	// AcquireSyncLock atomically sets the run-in-progress flag. It returns
	// false if the flag was already set.
	AcquireSyncLock(ctx context.Context, tenantID string, storeID string) (bool, error)
	ReleaseSyncLock(ctx context.Context, tenantID string, storeID string) error

	// ReleaseOrphanedSyncLocks clears the flag on every store that has no
	// unfinished run and returns how many stores it released
	ReleaseOrphanedSyncLocks(ctx context.Context) (int64, error)

	// AdvanceWatermark writes the result of a completed run
	AdvanceWatermark(ctx context.Context, tenantID string, storeID string, watermark domain.Watermark) error

	// MarkFailed sets the connection status to failed, e.g. after an auth error
	MarkFailed(ctx context.Context, tenantID string, storeID string) error
}

// RecordRepository persists synced records. Upserts are keyed on
// (tenant, store, remote id) and return the number of rows written; a row
// whose stored remote version (updated_at, else created_at) is newer than
// the incoming one is left untouched and not counted.
type RecordRepository interface {
	UpsertOrders(ctx context.Context, orders []*domain.Order) (int, error)
	UpsertCustomers(ctx context.Context, customers []*domain.Customer) (int, error)
	UpsertProducts(ctx context.Context, products []*domain.Product) (int, error)

	DeleteByRemoteID(ctx context.Context, resource domain.ResourceType, tenantID string, storeID string, remoteID int64) error
	Count(ctx context.Context, resource domain.ResourceType, tenantID string, storeID string) (int64, error)

	GetOrderByRemoteID(ctx context.Context, tenantID string, storeID string, remoteID int64) (*domain.Order, error)
	GetCustomerByRemoteID(ctx context.Context, tenantID string, storeID string, remoteID int64) (*domain.Customer, error)
	GetProductByRemoteID(ctx context.Context, tenantID string, storeID string, remoteID int64) (*domain.Product, error)
}

// SyncRunRepository persists sync runs
type SyncRunRepository interface {
	Create(ctx context.Context, run *domain.SyncRun) error
	Update(ctx context.Context, run *domain.SyncRun) error
	GetByID(ctx context.Context, tenantID string, runID string) (*domain.SyncRun, error)
	GetLatestByStore(ctx context.Context, tenantID string, storeID string) (*domain.SyncRun, error)
	ListByStore(ctx context.Context, tenantID string, storeID string, limit int) ([]*domain.SyncRun, error)

	// ListUnfinished returns runs of every tenant that are not completed or failed
	ListUnfinished(ctx context.Context) ([]*domain.SyncRun, error)
}
