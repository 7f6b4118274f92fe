package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ResourceType is a remote entity collection that can be synced
type ResourceType string

const (
	ResourceOrders    ResourceType = "orders"
	ResourceCustomers ResourceType = "customers"
	ResourceProducts  ResourceType = "products"
)

// SyncResources lists the resources a run walks, in order
var SyncResources = []ResourceType{ResourceOrders, ResourceCustomers, ResourceProducts}

// IsValid checks if the resource is one that can be synced
func (r ResourceType) IsValid() bool {
	switch r {
	case ResourceOrders, ResourceCustomers, ResourceProducts:
		return true
	}
	return false
}

func (r ResourceType) String() string {
	return string(r)
}

// Order is the local copy of a remote order
type Order struct {
	ID                string          `json:"id"`
	TenantID          string          `json:"tenant_id"`
	StoreID           string          `json:"store_id"`
	RemoteID          int64           `json:"remote_id"`
	OrderNumber       int64           `json:"order_number"`
	Name              string          `json:"name"`
	Email             string          `json:"email"`
	FinancialStatus   string          `json:"financial_status"`
	FulfillmentStatus string          `json:"fulfillment_status"`
	Currency          string          `json:"currency"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	SubtotalPrice     decimal.Decimal `json:"subtotal_price"`
	TotalTax          decimal.Decimal `json:"total_tax"`
	TotalDiscounts    decimal.Decimal `json:"total_discounts"`
	CustomerRemoteID  int64           `json:"customer_remote_id"`
	Tags              []string        `json:"tags"`
	Items             []OrderItem     `json:"items"`
	ProcessedAt       *time.Time      `json:"processed_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	RemoteCreatedAt   *time.Time      `json:"remote_created_at,omitempty"`
	RemoteUpdatedAt   *time.Time      `json:"remote_updated_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// OrderItem is a line item; it lives and dies with its order
type OrderItem struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"order_id"`
	RemoteID        int64           `json:"remote_id"`
	ProductRemoteID int64           `json:"product_remote_id"`
	VariantRemoteID int64           `json:"variant_remote_id"`
	Title           string          `json:"title"`
	SKU             string          `json:"sku"`
	Quantity        int             `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
}

// Customer is the local copy of a remote customer
type Customer struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	StoreID         string          `json:"store_id"`
	RemoteID        int64           `json:"remote_id"`
	Email           string          `json:"email"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	Phone           string          `json:"phone"`
	State           string          `json:"state"`
	TotalSpent      decimal.Decimal `json:"total_spent"`
	OrdersCount     int             `json:"orders_count"`
	Tags            []string        `json:"tags"`
	Addresses       []Address       `json:"addresses"`
	DefaultAddress  Address         `json:"default_address"`
	RemoteCreatedAt *time.Time      `json:"remote_created_at,omitempty"`
	RemoteUpdatedAt *time.Time      `json:"remote_updated_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Address is a customer address
type Address struct {
	RemoteID int64  `json:"id,omitempty"`
	Address1 string `json:"address1,omitempty"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city,omitempty"`
	Province string `json:"province,omitempty"`
	Country  string `json:"country,omitempty"`
	Zip      string `json:"zip,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Default  bool   `json:"default,omitempty"`
}

// Product is the local copy of a remote product
type Product struct {
	ID                string          `json:"id"`
	TenantID          string          `json:"tenant_id"`
	StoreID           string          `json:"store_id"`
	RemoteID          int64           `json:"remote_id"`
	Title             string          `json:"title"`
	Vendor            string          `json:"vendor"`
	ProductType       string          `json:"product_type"`
	Handle            string          `json:"handle"`
	Status            string          `json:"status"`
	Tags              []string        `json:"tags"`
	Variants          []Variant       `json:"variants"`
	Options           []ProductOption `json:"options"`
	Images            []Image         `json:"images"`
	Image             Image           `json:"image"`
	Price             decimal.Decimal `json:"price"`
	CompareAtPrice    decimal.Decimal `json:"compare_at_price"`
	InventoryQuantity int             `json:"inventory_quantity"`
	RemoteCreatedAt   *time.Time      `json:"remote_created_at,omitempty"`
	RemoteUpdatedAt   *time.Time      `json:"remote_updated_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Variant is a purchasable product variant
type Variant struct {
	RemoteID          int64           `json:"id"`
	Title             string          `json:"title"`
	SKU               string          `json:"sku"`
	Price             decimal.Decimal `json:"price"`
	CompareAtPrice    decimal.Decimal `json:"compare_at_price"`
	InventoryQuantity int             `json:"inventory_quantity"`
}

// ProductOption is a named axis of variation such as size or colour
type ProductOption struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Image is a product image
type Image struct {
	RemoteID int64  `json:"id,omitempty"`
	Src      string `json:"src,omitempty"`
	Position int    `json:"position,omitempty"`
}
