package repository

import (
	"context"
	"testing"
	"time"

	"commerce-sync-core/internal/domain"
	"commerce-sync-core/internal/infrastructure/repository/entity"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func testOrder(tenantID, storeID string, remoteID int64, total string, updatedAt time.Time, items ...domain.OrderItem) *domain.Order {
	created := baseTime
	return &domain.Order{
		TenantID:        tenantID,
		StoreID:         storeID,
		RemoteID:        remoteID,
		OrderNumber:     1000 + remoteID,
		Name:            "#1001",
		Email:           "buyer@example.com",
		FinancialStatus: "paid",
		Currency:        "USD",
		TotalPrice:      decimal.RequireFromString(total),
		Tags:            []string{},
		Items:           items,
		RemoteCreatedAt: &created,
		RemoteUpdatedAt: &updatedAt,
	}
}

func item(remoteID int64, title string, qty int, price string) domain.OrderItem {
	return domain.OrderItem{
		RemoteID:        remoteID,
		ProductRemoteID: 77,
		Title:           title,
		Quantity:        qty,
		Price:           decimal.RequireFromString(price),
	}
}

func TestGormRecordRepository_UpsertOrderIsIdempotent(t *testing.T) {
	repo := NewGormRecordRepository(newTestDB(t))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		written, err := repo.UpsertOrders(ctx, []*domain.Order{
			testOrder("tenant-1", "store-1", 450789469, "49.99", baseTime, item(1, "Mug", 2, "20.00"), item(2, "Tee", 1, "9.99")),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, written)
	}

	count, err := repo.Count(ctx, domain.ResourceOrders, "tenant-1", "store-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	order, err := repo.GetOrderByRemoteID(ctx, "tenant-1", "store-1", 450789469)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("49.99")))
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Mug", order.Items[0].Title)
	assert.Equal(t, "Tee", order.Items[1].Title)
	assert.True(t, order.Items[1].Price.Equal(decimal.RequireFromString("9.99")))
}

func TestGormRecordRepository_OrderItemsKeepPayloadOrder(t *testing.T) {
	repo := NewGormRecordRepository(newTestDB(t))
	ctx := context.Background()

	order := testOrder("tenant-1", "store-1", 7, "36.00", baseTime,
		item(9, "Zebra print", 1, "12.00"),
		item(3, "Apple mug", 1, "12.00"),
		item(5, "Mango tee", 1, "12.00"),
		item(1, "Birch tray", 1, "0.00"),
	)
	_, err := repo.UpsertOrders(ctx, []*domain.Order{order})
	require.NoError(t, err)

	saved, err := repo.GetOrderByRemoteID(ctx, "tenant-1", "store-1", 7)
	require.NoError(t, err)
	require.NotNil(t, saved)
	require.Len(t, saved.Items, 4)
	var remoteIDs []int64
	for _, it := range saved.Items {
		remoteIDs = append(remoteIDs, it.RemoteID)
	}
	assert.Equal(t, []int64{9, 3, 5, 1}, remoteIDs)
	assert.Equal(t, "Zebra print", saved.Items[0].Title)
}

func TestGormRecordRepository_UpsertOverwritesSameRow(t *testing.T) {
	repo := NewGormRecordRepository(newTestDB(t))
	ctx := context.Background()

	first := testOrder("tenant-1", "store-1", 42, "10.00", baseTime, item(1, "Mug", 1, "10.00"), item(2, "Tee", 1, "5.00"))
	_, err := repo.UpsertOrders(ctx, []*domain.Order{first})
	require.NoError(t, err)
	before, err := repo.GetOrderByRemoteID(ctx, "tenant-1", "store-1", 42)
	require.NoError(t, err)

	second := testOrder("tenant-1", "store-1", 42, "25.50", baseTime.Add(time.Hour), item(3, "Cap", 1, "25.50"))
	second.FinancialStatus = "refunded"
	written, err := repo.UpsertOrders(ctx, []*domain.Order{second})
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	after, err := repo.GetOrderByRemoteID(ctx, "tenant-1", "store-1", 42)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID, "local id must be stable across upserts")
	assert.Equal(t, "refunded", after.FinancialStatus)
	assert.True(t, after.TotalPrice.Equal(decimal.RequireFromString("25.50")))
	require.Len(t, after.Items, 1)
	assert.Equal(t, "Cap", after.Items[0].Title)

	count, err := repo.Count(ctx, domain.ResourceOrders, "tenant-1", "store-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGormRecordRepository_StaleUpsertIsSkipped(t *testing.T) {
	repo := NewGormRecordRepository(newTestDB(t))
	ctx := context.Background()

	newer := testOrder("tenant-1", "store-1", 42, "30.00", baseTime.Add(time.Hour), item(1, "Mug", 3, "10.00"))
	_, err := repo.UpsertOrders(ctx, []*domain.Order{newer})
	require.NoError(t, err)

	older := testOrder("tenant-1", "store-1", 42, "10.00", baseTime, item(1, "Mug", 1, "10.00"))
	written, err := repo.UpsertOrders(ctx, []*domain.Order{older})
	require.NoError(t, err)
	assert.Zero(t, written)

	order, err := repo.GetOrderByRemoteID(ctx, "tenant-1", "store-1", 42)
	require.NoError(t, err)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("30.00")))
	require.Len(t, order.Items, 1)
	assert.Equal(t, 3, order.Items[0].Quantity)
}

func TestGormRecordRepository_StaleCheckFallsBackToCreatedAt(t *testing.T) {
	repo := NewGormRecordRepository(newTestDB(t))
	ctx := context.Background()

	updated := testOrder("tenant-1", "store-1", 42, "30.00", baseTime.Add(time.Hour))
	_, err := repo.UpsertOrders(ctx, []*domain.Order{updated})
	require.NoError(t, err)

	// a late copy that was never updated is versioned by its created_at
	lateCreate := testOrder("tenant-1", "store-1", 42, "10.00", baseTime)
	lateCreate.RemoteUpdatedAt = nil
	written, err := repo.UpsertOrders(ctx, []*domain.Order{lateCreate})
	require.NoError(t, err)
	assert.Zero(t, written)

	order, err := repo.GetOrderByRemoteID(ctx, "tenant-1", "store-1", 42)
	require.NoError(t, err)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("30.00")))

	// the same created_at only copy replayed over itself is still written
	fresh := testOrder("tenant-1", "store-1", 43, "5.00", baseTime)
	fresh.RemoteUpdatedAt = nil
	for i := 0; i < 2; i++ {
		written, err = repo.UpsertOrders(ctx, []*domain.Order{fresh})
		require.NoError(t, err)
		assert.Equal(t, 1, written)
	}
}

func TestGormRecordRepository_StaleComparisonIgnoresOffset(t *testing.T) {
	repo := NewGormRecordRepository(newTestDB(t))
	ctx := context.Background()

	// 10:30 in New York is later than 12:00 UTC
	eastern := time.FixedZone("EST", -5*3600)
	later := time.Date(2024, 3, 1, 10, 30, 0, 0, eastern)
	earlier := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.UpsertOrders(ctx, []*domain.Order{testOrder("tenant-1", "store-1", 42, "30.00", later)})
	require.NoError(t, err)
	written, err := repo.UpsertOrders(ctx, []*domain.Order{testOrder("tenant-1", "store-1", 42, "10.00", earlier)})
	require.NoError(t, err)
	assert.Zero(t, written)
}

func TestGormRecordRepository_TenantsAreIsolated(t *testing.T) {
	repo := NewGormRecordRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.UpsertOrders(ctx, []*domain.Order{
		testOrder("tenant-1", "store-1", 42, "10.00", baseTime),
		testOrder("tenant-2", "store-1", 42, "20.00", baseTime),
		testOrder("tenant-1", "store-2", 42, "30.00", baseTime),
	})
	require.NoError(t, err)

	for _, key := range [][2]string{{"tenant-1", "store-1"}, {"tenant-2", "store-1"}, {"tenant-1", "store-2"}} {
		count, err := repo.Count(ctx, domain.ResourceOrders, key[0], key[1])
		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "%v", key)
	}
}

func TestGormRecordRepository_DeleteOrderRemovesItems(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormRecordRepository(db)
	ctx := context.Background()

	_, err := repo.UpsertOrders(ctx, []*domain.Order{
		testOrder("tenant-1", "store-1", 42, "10.00", baseTime, item(1, "Mug", 1, "10.00"), item(2, "Tee", 1, "5.00")),
		testOrder("tenant-1", "store-1", 43, "10.00", baseTime, item(3, "Cap", 1, "10.00")),
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteByRemoteID(ctx, domain.ResourceOrders, "tenant-1", "store-1", 42))

	order, err := repo.GetOrderByRemoteID(ctx, "tenant-1", "store-1", 42)
	require.NoError(t, err)
	assert.Nil(t, order)

	var items int64
	require.NoError(t, db.Model(&entity.OrderItemModel{}).Count(&items).Error)
	assert.Equal(t, int64(1), items)

	t.Run("deleting again is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.DeleteByRemoteID(ctx, domain.ResourceOrders, "tenant-1", "store-1", 42))
	})

	t.Run("unknown resource", func(t *testing.T) {
		err := repo.DeleteByRemoteID(ctx, domain.ResourceType("refunds"), "tenant-1", "store-1", 42)
		assert.True(t, domain.IsValidationError(err))
	})
}

func TestGormRecordRepository_Customers(t *testing.T) {
	repo := NewGormRecordRepository(newTestDB(t))
	ctx := context.Background()
	updated := baseTime

	customer := &domain.Customer{
		TenantID:    "tenant-1",
		StoreID:     "store-1",
		RemoteID:    207119551,
		Email:       "bob@example.com",
		FirstName:   "Bob",
		TotalSpent:  decimal.RequireFromString("199.65"),
		OrdersCount: 3,
		Tags:        []string{"vip"},
		Addresses: []domain.Address{
			{RemoteID: 1, City: "Ottawa", Country: "Canada", Default: true},
		},
		DefaultAddress:  domain.Address{RemoteID: 1, City: "Ottawa", Country: "Canada", Default: true},
		RemoteUpdatedAt: &updated,
	}
	written, err := repo.UpsertCustomers(ctx, []*domain.Customer{customer, customer})
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	found, err := repo.GetCustomerByRemoteID(ctx, "tenant-1", "store-1", 207119551)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Bob", found.FirstName)
	assert.True(t, found.TotalSpent.Equal(decimal.RequireFromString("199.65")))
	assert.Equal(t, []string{"vip"}, found.Tags)
	assert.Equal(t, customer.Addresses, found.Addresses)
	assert.Equal(t, "Ottawa", found.DefaultAddress.City)

	count, err := repo.Count(ctx, domain.ResourceCustomers, "tenant-1", "store-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	missing, err := repo.GetCustomerByRemoteID(ctx, "tenant-1", "store-1", 1)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGormRecordRepository_Products(t *testing.T) {
	repo := NewGormRecordRepository(newTestDB(t))
	ctx := context.Background()

	product := &domain.Product{
		TenantID: "tenant-1",
		StoreID:  "store-1",
		RemoteID: 632910392,
		Title:    "IPod Nano - 8GB",
		Tags:     []string{},
		Variants: []domain.Variant{
			{RemoteID: 808950810, Title: "Pink", Price: decimal.RequireFromString("199.00"), InventoryQuantity: 10},
		},
		Options:           []domain.ProductOption{{Name: "Color", Values: []string{"Pink"}}},
		Images:            []domain.Image{},
		Price:             decimal.RequireFromString("199.00"),
		InventoryQuantity: 10,
	}
	written, err := repo.UpsertProducts(ctx, []*domain.Product{product})
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	found, err := repo.GetProductByRemoteID(ctx, "tenant-1", "store-1", 632910392)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "IPod Nano - 8GB", found.Title)
	require.Len(t, found.Variants, 1)
	assert.Equal(t, "Pink", found.Variants[0].Title)
	assert.True(t, found.Variants[0].Price.Equal(decimal.RequireFromString("199")))
	assert.Equal(t, []string{"Pink"}, found.Options[0].Values)
	assert.NotNil(t, found.Images)
	assert.NotNil(t, found.Tags)

	require.NoError(t, repo.DeleteByRemoteID(ctx, domain.ResourceProducts, "tenant-1", "store-1", 632910392))
	count, err := repo.Count(ctx, domain.ResourceProducts, "tenant-1", "store-1")
	require.NoError(t, err)
	assert.Zero(t, count)
}
