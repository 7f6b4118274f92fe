package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"commerce-sync-core/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newTestStore(tenantID, shopDomain string) *domain.Store {
	return &domain.Store{
		TenantID:      tenantID,
		ShopDomain:    shopDomain,
		AccessToken:   "shpat_test",
		ShopName:      "Test Shop",
		Status:        domain.StoreStatusConnected,
		SyncFrequency: domain.SyncFrequencyDaily,
		Settings:      map[string]string{"currency_display": "symbol"},
	}
}

func TestGormStoreRepository_CreateAndGet(t *testing.T) {
	repo := NewGormStoreRepository(newTestDB(t))
	ctx := context.Background()

	store := newTestStore("tenant-1", "shop1.myshopify.com")
	require.NoError(t, repo.Create(ctx, store))
	require.NotEmpty(t, store.ID)

	t.Run("by id", func(t *testing.T) {
		found, err := repo.GetByID(ctx, "tenant-1", store.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "shop1.myshopify.com", found.ShopDomain)
		assert.Equal(t, "shpat_test", found.AccessToken)
		assert.Equal(t, map[string]string{"currency_display": "symbol"}, found.Settings)
		assert.NotNil(t, found.SyncCursors)
		assert.Nil(t, found.SyncWatermark)
	})

	t.Run("other tenant cannot see it", func(t *testing.T) {
		found, err := repo.GetByID(ctx, "tenant-2", store.ID)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("by domain", func(t *testing.T) {
		found, err := repo.GetByDomain(ctx, "tenant-1", "shop1.myshopify.com")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, store.ID, found.ID)
	})

	t.Run("without tenant", func(t *testing.T) {
		found, err := repo.FindByID(ctx, store.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "tenant-1", found.TenantID)
	})

	t.Run("missing", func(t *testing.T) {
		found, err := repo.FindByID(ctx, "does-not-exist")
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestGormStoreRepository_DuplicateDomainRejected(t *testing.T) {
	repo := NewGormStoreRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestStore("tenant-1", "shop1.myshopify.com")))
	err := repo.Create(ctx, newTestStore("tenant-1", "shop1.myshopify.com"))
	assert.True(t, domain.IsPersistenceError(err))

	require.NoError(t, repo.Create(ctx, newTestStore("tenant-2", "shop1.myshopify.com")))
}

func TestGormStoreRepository_Lists(t *testing.T) {
	repo := NewGormStoreRepository(newTestDB(t))
	ctx := context.Background()

	a := newTestStore("tenant-1", "a.myshopify.com")
	b := newTestStore("tenant-1", "b.myshopify.com")
	b.Status = domain.StoreStatusDisconnected
	c := newTestStore("tenant-2", "c.myshopify.com")
	for _, s := range []*domain.Store{a, b, c} {
		require.NoError(t, repo.Create(ctx, s))
	}

	byTenant, err := repo.ListByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Len(t, byTenant, 2)

	connected, err := repo.ListConnected(ctx)
	require.NoError(t, err)
	domains := []string{}
	for _, s := range connected {
		domains = append(domains, s.ShopDomain)
	}
	assert.ElementsMatch(t, []string{"a.myshopify.com", "c.myshopify.com"}, domains)

	empty, err := repo.ListByTenant(ctx, "tenant-3")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestGormStoreRepository_UpdateKeepsWatermark(t *testing.T) {
	repo := NewGormStoreRepository(newTestDB(t))
	ctx := context.Background()

	store := newTestStore("tenant-1", "shop1.myshopify.com")
	require.NoError(t, repo.Create(ctx, store))

	mark := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.AdvanceWatermark(ctx, "tenant-1", store.ID, domain.Watermark{
		UpdatedAt: &mark,
		Cursors:   map[domain.ResourceType]time.Time{domain.ResourceOrders: mark},
		SyncedAt:  mark.Add(time.Minute),
	}))

	// a stale in-memory copy must not roll the watermark back
	store.Disconnect(time.Now())
	require.NoError(t, repo.Update(ctx, store))

	found, err := repo.GetByID(ctx, "tenant-1", store.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StoreStatusDisconnected, found.Status)
	assert.Empty(t, found.AccessToken)
	require.NotNil(t, found.DisconnectedAt)
	require.NotNil(t, found.SyncWatermark)
	assert.True(t, mark.Equal(*found.SyncWatermark))
	assert.True(t, mark.Equal(found.SyncCursors[domain.ResourceOrders]))
	require.NotNil(t, found.LastSyncAt)
	assert.True(t, mark.Add(time.Minute).Equal(*found.LastSyncAt))
}

func TestGormStoreRepository_UpdateMissing(t *testing.T) {
	repo := NewGormStoreRepository(newTestDB(t))

	store := newTestStore("tenant-1", "shop1.myshopify.com")
	store.ID = "missing"
	err := repo.Update(context.Background(), store)
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)
}

func TestGormStoreRepository_SyncLock(t *testing.T) {
	repo := NewGormStoreRepository(newTestDB(t))
	ctx := context.Background()

	store := newTestStore("tenant-1", "shop1.myshopify.com")
	require.NoError(t, repo.Create(ctx, store))

	acquired, err := repo.AcquireSyncLock(ctx, "tenant-1", store.ID)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = repo.AcquireSyncLock(ctx, "tenant-1", store.ID)
	require.NoError(t, err)
	assert.False(t, acquired, "second acquire must fail while the lock is held")

	require.NoError(t, repo.ReleaseSyncLock(ctx, "tenant-1", store.ID))

	acquired, err = repo.AcquireSyncLock(ctx, "tenant-1", store.ID)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = repo.AcquireSyncLock(ctx, "tenant-2", store.ID)
	require.NoError(t, err)
	assert.False(t, acquired, "other tenants cannot lock the store")
}

func TestGormStoreRepository_ReleaseOrphanedSyncLocks(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormStoreRepository(db)
	runs := NewGormSyncRunRepository(db)
	ctx := context.Background()

	running := newTestStore("tenant-1", "shop1.myshopify.com")
	orphaned := newTestStore("tenant-1", "shop2.myshopify.com")
	idle := newTestStore("tenant-2", "shop3.myshopify.com")
	for _, store := range []*domain.Store{running, orphaned, idle} {
		require.NoError(t, repo.Create(ctx, store))
	}
	for _, store := range []*domain.Store{running, orphaned} {
		acquired, err := repo.AcquireSyncLock(ctx, store.TenantID, store.ID)
		require.NoError(t, err)
		require.True(t, acquired)
	}
	require.NoError(t, runs.Create(ctx, domain.NewSyncRun("tenant-1", running.ID, domain.SyncTypeFull, time.Now())))

	released, err := repo.ReleaseOrphanedSyncLocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	found, err := repo.GetByID(ctx, "tenant-1", running.ID)
	require.NoError(t, err)
	assert.True(t, found.SyncInProgress, "a store with an unfinished run keeps its lock")

	found, err = repo.GetByID(ctx, "tenant-1", orphaned.ID)
	require.NoError(t, err)
	assert.False(t, found.SyncInProgress)

	found, err = repo.GetByID(ctx, "tenant-2", idle.ID)
	require.NoError(t, err)
	assert.False(t, found.SyncInProgress)
}

func TestGormStoreRepository_MarkFailed(t *testing.T) {
	repo := NewGormStoreRepository(newTestDB(t))
	ctx := context.Background()

	store := newTestStore("tenant-1", "shop1.myshopify.com")
	require.NoError(t, repo.Create(ctx, store))
	require.NoError(t, repo.MarkFailed(ctx, "tenant-1", store.ID))

	found, err := repo.GetByID(ctx, "tenant-1", store.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StoreStatusFailed, found.Status)
}

func newMockStoreRepository(t *testing.T) (*GormStoreRepository, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormStoreRepository(gormDB), mock
}

func TestGormStoreRepository_DatabaseFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("get", func(t *testing.T) {
		repo, mock := newMockStoreRepository(t)
		mock.ExpectQuery(`SELECT \* FROM "stores" WHERE tenant_id = \$1 AND id = \$2`).
			WillReturnError(errors.New("connection reset by peer"))

		_, err := repo.GetByID(ctx, "tenant-1", "store-1")

		var persistenceErr *domain.PersistenceError
		require.ErrorAs(t, err, &persistenceErr)
		assert.Equal(t, "get store", persistenceErr.Op)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("acquire lock", func(t *testing.T) {
		repo, mock := newMockStoreRepository(t)
		mock.ExpectExec(`UPDATE "stores" SET "sync_in_progress"=\$1`).
			WillReturnError(errors.New("deadlock detected"))

		acquired, err := repo.AcquireSyncLock(ctx, "tenant-1", "store-1")

		assert.False(t, acquired)
		assert.True(t, domain.IsPersistenceError(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lock already held", func(t *testing.T) {
		repo, mock := newMockStoreRepository(t)
		mock.ExpectExec(`UPDATE "stores" SET "sync_in_progress"=\$1`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		acquired, err := repo.AcquireSyncLock(ctx, "tenant-1", "store-1")

		require.NoError(t, err)
		assert.False(t, acquired)
	})
}
