package repository

import (
	"context"
	"errors"
	"fmt"

	"commerce-sync-core/internal/domain"
	"commerce-sync-core/internal/infrastructure/repository/entity"
	"commerce-sync-core/internal/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRecordRepository implements RecordRepository using gorm
type GormRecordRepository struct {
	db *gorm.DB
}

// NewGormRecordRepository creates a new record repository
func NewGormRecordRepository(db *gorm.DB) *GormRecordRepository {
	return &GormRecordRepository{db: db}
}

var _ ports.RecordRepository = (*GormRecordRepository)(nil)

var remoteKey = []clause.Column{{Name: "tenant_id"}, {Name: "store_id"}, {Name: "remote_id"}}

var (
	orderColumns = []string{
		"order_number", "name", "email", "financial_status", "fulfillment_status", "currency",
		"total_price", "subtotal_price", "total_tax", "total_discounts", "customer_remote_id", "tags",
		"processed_at", "cancelled_at", "remote_created_at", "remote_updated_at", "remote_version", "updated_at",
	}
	customerColumns = []string{
		"email", "first_name", "last_name", "phone", "state", "total_spent", "orders_count", "tags",
		"addresses", "default_address", "remote_created_at", "remote_updated_at", "remote_version", "updated_at",
	}
	productColumns = []string{
		"title", "vendor", "product_type", "handle", "status", "tags", "variants", "options", "images", "image",
		"price", "compare_at_price", "inventory_quantity", "remote_created_at", "remote_updated_at", "remote_version", "updated_at",
	}
)

// upsertClause inserts or updates on the (tenant, store, remote id) key. An
// existing row is only overwritten when the incoming copy is not older than
// it; a skipped row reports zero rows affected.
func upsertClause(table string, columns []string) clause.OnConflict {
	guard := fmt.Sprintf("(%[1]s.remote_version IS NULL OR excluded.remote_version IS NULL OR excluded.remote_version >= %[1]s.remote_version)", table)
	return clause.OnConflict{
		Columns:   remoteKey,
		DoUpdates: clause.AssignmentColumns(columns),
		Where:     clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: guard}}},
	}
}

// UpsertOrders writes orders and replaces their line items
func (r *GormRecordRepository) UpsertOrders(ctx context.Context, orders []*domain.Order) (int, error) {
	written := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, order := range orders {
			model := entity.OrderModelFromDomain(order)
			model.ID = ""
			result := tx.Omit(clause.Associations).Clauses(upsertClause("orders", orderColumns)).Create(model)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				continue
			}

			var ids []string
			err := tx.Model(&entity.OrderModel{}).
				Where("tenant_id = ? AND store_id = ? AND remote_id = ?", order.TenantID, order.StoreID, order.RemoteID).
				Pluck("id", &ids).Error
			if err != nil {
				return err
			}
			if len(ids) != 1 {
				return fmt.Errorf("order %d not found after upsert", order.RemoteID)
			}
			orderID := ids[0]
			if err := tx.Where("order_id = ?", orderID).Delete(&entity.OrderItemModel{}).Error; err != nil {
				return err
			}
			if items := entity.OrderItemModelsFromDomain(orderID, order.Items); len(items) > 0 {
				if err := tx.Create(&items).Error; err != nil {
					return err
				}
			}
			order.ID = orderID
			written++
		}
		return nil
	})
	if err != nil {
		return 0, domain.NewPersistenceError("upsert orders", err)
	}
	return written, nil
}

// UpsertCustomers writes customers
func (r *GormRecordRepository) UpsertCustomers(ctx context.Context, customers []*domain.Customer) (int, error) {
	written := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, customer := range customers {
			model := entity.CustomerModelFromDomain(customer)
			model.ID = ""
			result := tx.Clauses(upsertClause("customers", customerColumns)).Create(model)
			if result.Error != nil {
				return result.Error
			}
			written += int(result.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, domain.NewPersistenceError("upsert customers", err)
	}
	return written, nil
}

// UpsertProducts writes products
func (r *GormRecordRepository) UpsertProducts(ctx context.Context, products []*domain.Product) (int, error) {
	written := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, product := range products {
			model := entity.ProductModelFromDomain(product)
			model.ID = ""
			result := tx.Clauses(upsertClause("products", productColumns)).Create(model)
			if result.Error != nil {
				return result.Error
			}
			written += int(result.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, domain.NewPersistenceError("upsert products", err)
	}
	return written, nil
}

func modelFor(resource domain.ResourceType) (interface{}, error) {
	switch resource {
	case domain.ResourceOrders:
		return &entity.OrderModel{}, nil
	case domain.ResourceCustomers:
		return &entity.CustomerModel{}, nil
	case domain.ResourceProducts:
		return &entity.ProductModel{}, nil
	}
	return nil, domain.NewValidationError("resource", fmt.Sprintf("unknown resource %q", resource))
}

// DeleteByRemoteID removes a record and, for orders, its line items.
// Deleting a record that does not exist is not an error.
func (r *GormRecordRepository) DeleteByRemoteID(ctx context.Context, resource domain.ResourceType, tenantID string, storeID string, remoteID int64) error {
	model, err := modelFor(resource)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope := tx.Where("tenant_id = ? AND store_id = ? AND remote_id = ?", tenantID, storeID, remoteID)
		if resource == domain.ResourceOrders {
			orderIDs := tx.Model(&entity.OrderModel{}).
				Select("id").
				Where("tenant_id = ? AND store_id = ? AND remote_id = ?", tenantID, storeID, remoteID)
			if err := tx.Where("order_id IN (?)", orderIDs).Delete(&entity.OrderItemModel{}).Error; err != nil {
				return err
			}
		}
		return scope.Delete(model).Error
	})
	if err != nil {
		return domain.NewPersistenceError("delete "+resource.String(), err)
	}
	return nil
}

// Count returns the number of local records of a resource for a store
func (r *GormRecordRepository) Count(ctx context.Context, resource domain.ResourceType, tenantID string, storeID string) (int64, error) {
	model, err := modelFor(resource)
	if err != nil {
		return 0, err
	}
	var count int64
	err = r.db.WithContext(ctx).
		Model(model).
		Where("tenant_id = ? AND store_id = ?", tenantID, storeID).
		Count(&count).Error
	if err != nil {
		return 0, domain.NewPersistenceError("count "+resource.String(), err)
	}
	return count, nil
}

// GetOrderByRemoteID retrieves an order with its line items
func (r *GormRecordRepository) GetOrderByRemoteID(ctx context.Context, tenantID string, storeID string, remoteID int64) (*domain.Order, error) {
	var model entity.OrderModel
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("tenant_id = ? AND store_id = ? AND remote_id = ?", tenantID, storeID, remoteID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewPersistenceError("get order", err)
	}
	return model.ToDomain(), nil
}

// GetCustomerByRemoteID retrieves a customer
func (r *GormRecordRepository) GetCustomerByRemoteID(ctx context.Context, tenantID string, storeID string, remoteID int64) (*domain.Customer, error) {
	var model entity.CustomerModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND store_id = ? AND remote_id = ?", tenantID, storeID, remoteID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewPersistenceError("get customer", err)
	}
	return model.ToDomain(), nil
}

// GetProductByRemoteID retrieves a product
func (r *GormRecordRepository) GetProductByRemoteID(ctx context.Context, tenantID string, storeID string, remoteID int64) (*domain.Product, error) {
	var model entity.ProductModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND store_id = ? AND remote_id = ?", tenantID, storeID, remoteID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewPersistenceError("get product", err)
	}
	return model.ToDomain(), nil
}
