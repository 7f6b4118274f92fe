package entity

import (
	"time"

	"commerce-sync-core/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RemoteVersion orders two copies of the same remote record: updated_at,
// else created_at for records the platform never updated. Timestamps keep
// the offset the remote platform sent, so they are compared as instants.
func RemoteVersion(updatedAt *time.Time, createdAt *time.Time) *int64 {
	stamp := updatedAt
	if stamp == nil {
		stamp = createdAt
	}
	if stamp == nil {
		return nil
	}
	v := stamp.UnixMicro()
	return &v
}

// OrderModel represents an order in the relational database
type OrderModel struct {
	ID                string           `gorm:"primaryKey;type:varchar(36)"`
	TenantID          string           `gorm:"type:varchar(64);not null;uniqueIndex:idx_orders_remote,priority:1"`
	StoreID           string           `gorm:"type:varchar(36);not null;uniqueIndex:idx_orders_remote,priority:2"`
	RemoteID          int64            `gorm:"not null;uniqueIndex:idx_orders_remote,priority:3"`
	OrderNumber       int64            `gorm:"not null"`
	Name              string           `gorm:"type:varchar(64)"`
	Email             string           `gorm:"type:varchar(255)"`
	FinancialStatus   string           `gorm:"type:varchar(32)"`
	FulfillmentStatus string           `gorm:"type:varchar(32)"`
	Currency          string           `gorm:"type:varchar(8)"`
	TotalPrice        decimal.Decimal  `gorm:"type:decimal(20,4);not null"`
	SubtotalPrice     decimal.Decimal  `gorm:"type:decimal(20,4);not null"`
	TotalTax          decimal.Decimal  `gorm:"type:decimal(20,4);not null"`
	TotalDiscounts    decimal.Decimal  `gorm:"type:decimal(20,4);not null"`
	CustomerRemoteID  int64            `gorm:"index"`
	Tags              []string         `gorm:"serializer:json"`
	Items             []OrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ProcessedAt       *time.Time
	CancelledAt       *time.Time
	RemoteCreatedAt   *time.Time
	RemoteUpdatedAt   *time.Time
	RemoteVersion     *int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName overrides the table name
func (OrderModel) TableName() string {
	return "orders"
}

// BeforeCreate assigns the local identifier
func (m *OrderModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// OrderItemModel represents an order line item
type OrderItemModel struct {
	ID              string `gorm:"primaryKey;type:varchar(36)"`
	OrderID         string `gorm:"type:varchar(36);not null;index"`
	Position        int    `gorm:"not null"`
	RemoteID        int64  `gorm:"not null"`
	ProductRemoteID int64  `gorm:"index"`
	VariantRemoteID int64
	Title           string          `gorm:"type:text"`
	SKU             string          `gorm:"type:varchar(255)"`
	Quantity        int             `gorm:"not null"`
	Price           decimal.Decimal `gorm:"type:decimal(20,4);not null"`
}

// TableName overrides the table name
func (OrderItemModel) TableName() string {
	return "order_items"
}

// BeforeCreate assigns the local identifier
func (m *OrderItemModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// ToDomain converts the model to a domain entity
func (m *OrderModel) ToDomain() *domain.Order {
	order := &domain.Order{
		ID:                m.ID,
		TenantID:          m.TenantID,
		StoreID:           m.StoreID,
		RemoteID:          m.RemoteID,
		OrderNumber:       m.OrderNumber,
		Name:              m.Name,
		Email:             m.Email,
		FinancialStatus:   m.FinancialStatus,
		FulfillmentStatus: m.FulfillmentStatus,
		Currency:          m.Currency,
		TotalPrice:        m.TotalPrice,
		SubtotalPrice:     m.SubtotalPrice,
		TotalTax:          m.TotalTax,
		TotalDiscounts:    m.TotalDiscounts,
		CustomerRemoteID:  m.CustomerRemoteID,
		Tags:              nonNilStrings(m.Tags),
		Items:             make([]domain.OrderItem, 0, len(m.Items)),
		ProcessedAt:       m.ProcessedAt,
		CancelledAt:       m.CancelledAt,
		RemoteCreatedAt:   m.RemoteCreatedAt,
		RemoteUpdatedAt:   m.RemoteUpdatedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	for _, item := range m.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ID:              item.ID,
			OrderID:         item.OrderID,
			RemoteID:        item.RemoteID,
			ProductRemoteID: item.ProductRemoteID,
			VariantRemoteID: item.VariantRemoteID,
			Title:           item.Title,
			SKU:             item.SKU,
			Quantity:        item.Quantity,
			Price:           item.Price,
		})
	}
	return order
}

// OrderModelFromDomain converts a domain entity to a model. Items are
// converted separately with OrderItemModelsFromDomain once the order's local
// id is known.
func OrderModelFromDomain(order *domain.Order) *OrderModel {
	return &OrderModel{
		ID:                order.ID,
		TenantID:          order.TenantID,
		StoreID:           order.StoreID,
		RemoteID:          order.RemoteID,
		OrderNumber:       order.OrderNumber,
		Name:              order.Name,
		Email:             order.Email,
		FinancialStatus:   order.FinancialStatus,
		FulfillmentStatus: order.FulfillmentStatus,
		Currency:          order.Currency,
		TotalPrice:        order.TotalPrice,
		SubtotalPrice:     order.SubtotalPrice,
		TotalTax:          order.TotalTax,
		TotalDiscounts:    order.TotalDiscounts,
		CustomerRemoteID:  order.CustomerRemoteID,
		Tags:              nonNilStrings(order.Tags),
		ProcessedAt:       order.ProcessedAt,
		CancelledAt:       order.CancelledAt,
		RemoteCreatedAt:   order.RemoteCreatedAt,
		RemoteUpdatedAt:   order.RemoteUpdatedAt,
		RemoteVersion:     RemoteVersion(order.RemoteUpdatedAt, order.RemoteCreatedAt),
	}
}

// OrderItemModelsFromDomain converts line items belonging to orderID
func OrderItemModelsFromDomain(orderID string, items []domain.OrderItem) []OrderItemModel {
	models := make([]OrderItemModel, 0, len(items))
	for i, item := range items {
		models = append(models, OrderItemModel{
			OrderID:         orderID,
			Position:        i,
			RemoteID:        item.RemoteID,
			ProductRemoteID: item.ProductRemoteID,
			VariantRemoteID: item.VariantRemoteID,
			Title:           item.Title,
			SKU:             item.SKU,
			Quantity:        item.Quantity,
			Price:           item.Price,
		})
	}
	return models
}

// CustomerModel represents a customer in the relational database
type CustomerModel struct {
	ID              string           `gorm:"primaryKey;type:varchar(36)"`
	TenantID        string           `gorm:"type:varchar(64);not null;uniqueIndex:idx_customers_remote,priority:1"`
	StoreID         string           `gorm:"type:varchar(36);not null;uniqueIndex:idx_customers_remote,priority:2"`
	RemoteID        int64            `gorm:"not null;uniqueIndex:idx_customers_remote,priority:3"`
	Email           string           `gorm:"type:varchar(255);index"`
	FirstName       string           `gorm:"type:varchar(255)"`
	LastName        string           `gorm:"type:varchar(255)"`
	Phone           string           `gorm:"type:varchar(64)"`
	State           string           `gorm:"type:varchar(32)"`
	TotalSpent      decimal.Decimal  `gorm:"type:decimal(20,4);not null"`
	OrdersCount     int              `gorm:"not null"`
	Tags            []string         `gorm:"serializer:json"`
	Addresses       []domain.Address `gorm:"serializer:json"`
	DefaultAddress  domain.Address   `gorm:"serializer:json"`
	RemoteCreatedAt *time.Time
	RemoteUpdatedAt *time.Time
	RemoteVersion   *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName overrides the table name
func (CustomerModel) TableName() string {
	return "customers"
}

// BeforeCreate assigns the local identifier
func (m *CustomerModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// ToDomain converts the model to a domain entity
func (m *CustomerModel) ToDomain() *domain.Customer {
	addresses := m.Addresses
	if addresses == nil {
		addresses = []domain.Address{}
	}
	return &domain.Customer{
		ID:              m.ID,
		TenantID:        m.TenantID,
		StoreID:         m.StoreID,
		RemoteID:        m.RemoteID,
		Email:           m.Email,
		FirstName:       m.FirstName,
		LastName:        m.LastName,
		Phone:           m.Phone,
		State:           m.State,
		TotalSpent:      m.TotalSpent,
		OrdersCount:     m.OrdersCount,
		Tags:            nonNilStrings(m.Tags),
		Addresses:       addresses,
		DefaultAddress:  m.DefaultAddress,
		RemoteCreatedAt: m.RemoteCreatedAt,
		RemoteUpdatedAt: m.RemoteUpdatedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// CustomerModelFromDomain converts a domain entity to a model
func CustomerModelFromDomain(customer *domain.Customer) *CustomerModel {
	return &CustomerModel{
		ID:              customer.ID,
		TenantID:        customer.TenantID,
		StoreID:         customer.StoreID,
		RemoteID:        customer.RemoteID,
		Email:           customer.Email,
		FirstName:       customer.FirstName,
		LastName:        customer.LastName,
		Phone:           customer.Phone,
		State:           customer.State,
		TotalSpent:      customer.TotalSpent,
		OrdersCount:     customer.OrdersCount,
		Tags:            nonNilStrings(customer.Tags),
		Addresses:       customer.Addresses,
		DefaultAddress:  customer.DefaultAddress,
		RemoteCreatedAt: customer.RemoteCreatedAt,
		RemoteUpdatedAt: customer.RemoteUpdatedAt,
		RemoteVersion:   RemoteVersion(customer.RemoteUpdatedAt, customer.RemoteCreatedAt),
	}
}

// ProductModel represents a product in the relational database
type ProductModel struct {
	ID                string                 `gorm:"primaryKey;type:varchar(36)"`
	TenantID          string                 `gorm:"type:varchar(64);not null;uniqueIndex:idx_products_remote,priority:1"`
	StoreID           string                 `gorm:"type:varchar(36);not null;uniqueIndex:idx_products_remote,priority:2"`
	RemoteID          int64                  `gorm:"not null;uniqueIndex:idx_products_remote,priority:3"`
	Title             string                 `gorm:"type:text"`
	Vendor            string                 `gorm:"type:varchar(255)"`
	ProductType       string                 `gorm:"type:varchar(255)"`
	Handle            string                 `gorm:"type:varchar(255)"`
	Status            string                 `gorm:"type:varchar(32)"`
	Tags              []string               `gorm:"serializer:json"`
	Variants          []domain.Variant       `gorm:"serializer:json"`
	Options           []domain.ProductOption `gorm:"serializer:json"`
	Images            []domain.Image         `gorm:"serializer:json"`
	Image             domain.Image           `gorm:"serializer:json"`
	Price             decimal.Decimal        `gorm:"type:decimal(20,4);not null"`
	CompareAtPrice    decimal.Decimal        `gorm:"type:decimal(20,4);not null"`
	InventoryQuantity int                    `gorm:"not null"`
	RemoteCreatedAt   *time.Time
	RemoteUpdatedAt   *time.Time
	RemoteVersion     *int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName overrides the table name
func (ProductModel) TableName() string {
	return "products"
}

// BeforeCreate assigns the local identifier
func (m *ProductModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// ToDomain converts the model to a domain entity
func (m *ProductModel) ToDomain() *domain.Product {
	product := &domain.Product{
		ID:                m.ID,
		TenantID:          m.TenantID,
		StoreID:           m.StoreID,
		RemoteID:          m.RemoteID,
		Title:             m.Title,
		Vendor:            m.Vendor,
		ProductType:       m.ProductType,
		Handle:            m.Handle,
		Status:            m.Status,
		Tags:              nonNilStrings(m.Tags),
		Variants:          m.Variants,
		Options:           m.Options,
		Images:            m.Images,
		Image:             m.Image,
		Price:             m.Price,
		CompareAtPrice:    m.CompareAtPrice,
		InventoryQuantity: m.InventoryQuantity,
		RemoteCreatedAt:   m.RemoteCreatedAt,
		RemoteUpdatedAt:   m.RemoteUpdatedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if product.Variants == nil {
		product.Variants = []domain.Variant{}
	}
	if product.Options == nil {
		product.Options = []domain.ProductOption{}
	}
	if product.Images == nil {
		product.Images = []domain.Image{}
	}
	return product
}

// ProductModelFromDomain converts a domain entity to a model
func ProductModelFromDomain(product *domain.Product) *ProductModel {
	return &ProductModel{
		ID:                product.ID,
		TenantID:          product.TenantID,
		StoreID:           product.StoreID,
		RemoteID:          product.RemoteID,
		Title:             product.Title,
		Vendor:            product.Vendor,
		ProductType:       product.ProductType,
		Handle:            product.Handle,
		Status:            product.Status,
		Tags:              nonNilStrings(product.Tags),
		Variants:          product.Variants,
		Options:           product.Options,
		Images:            product.Images,
		Image:             product.Image,
		Price:             product.Price,
		CompareAtPrice:    product.CompareAtPrice,
		InventoryQuantity: product.InventoryQuantity,
		RemoteCreatedAt:   product.RemoteCreatedAt,
		RemoteUpdatedAt:   product.RemoteUpdatedAt,
		RemoteVersion:     RemoteVersion(product.RemoteUpdatedAt, product.RemoteCreatedAt),
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
