// Package transform maps raw remote records onto the local record shapes.
//
// The functions here are pure: no I/O, no clock, no randomness. Local ids
// are left empty for the repository to assign, so the same input always
// yields the same output. Missing or invalid data never causes an error;
// nullable fields are normalized through the default tables first.
package transform

import (
	"encoding/json"

	"commerce-sync-core/internal/domain"
)

// RemoteID extracts the remote identifier of a raw record, 0 if absent
func RemoteID(raw json.RawMessage) int64 {
	return decode(raw).int64("id")
}

// Order maps a raw remote order
func Order(raw json.RawMessage, tenantID string, storeID string) *domain.Order {
	f := decode(raw)
	OrderDefaults.apply(f)

	order := &domain.Order{
		TenantID:          tenantID,
		StoreID:           storeID,
		RemoteID:          f.int64("id"),
		OrderNumber:       f.int64("order_number"),
		Name:              f.str("name"),
		Email:             f.str("email"),
		FinancialStatus:   f.str("financial_status"),
		FulfillmentStatus: f.str("fulfillment_status"),
		Currency:          f.str("currency"),
		TotalPrice:        f.money("total_price"),
		SubtotalPrice:     f.money("subtotal_price"),
		TotalTax:          f.money("total_tax"),
		TotalDiscounts:    f.money("total_discounts"),
		CustomerRemoteID:  f.object("customer").int64("id"),
		Tags:              f.strings("tags"),
		ProcessedAt:       f.time("processed_at"),
		CancelledAt:       f.time("cancelled_at"),
		RemoteCreatedAt:   f.time("created_at"),
		RemoteUpdatedAt:   f.time("updated_at"),
	}

	lineItems := f.list("line_items")
	order.Items = make([]domain.OrderItem, 0, len(lineItems))
	for _, rawItem := range lineItems {
		item := decode(rawItem)
		LineItemDefaults.apply(item)
		order.Items = append(order.Items, domain.OrderItem{
			RemoteID:        item.int64("id"),
			ProductRemoteID: item.int64("product_id"),
			VariantRemoteID: item.int64("variant_id"),
			Title:           item.str("title"),
			SKU:             item.str("sku"),
			Quantity:        item.int("quantity"),
			Price:           item.money("price"),
		})
	}

	return order
}

// Customer maps a raw remote customer
func Customer(raw json.RawMessage, tenantID string, storeID string) *domain.Customer {
	f := decode(raw)
	CustomerDefaults.apply(f)

	customer := &domain.Customer{
		TenantID:        tenantID,
		StoreID:         storeID,
		RemoteID:        f.int64("id"),
		Email:           f.str("email"),
		FirstName:       f.str("first_name"),
		LastName:        f.str("last_name"),
		Phone:           f.str("phone"),
		State:           f.str("state"),
		TotalSpent:      f.money("total_spent"),
		OrdersCount:     f.int("orders_count"),
		Tags:            f.strings("tags"),
		DefaultAddress:  address(f.object("default_address")),
		RemoteCreatedAt: f.time("created_at"),
		RemoteUpdatedAt: f.time("updated_at"),
	}

	rawAddresses := f.list("addresses")
	customer.Addresses = make([]domain.Address, 0, len(rawAddresses))
	for _, rawAddress := range rawAddresses {
		customer.Addresses = append(customer.Addresses, address(decode(rawAddress)))
	}

	return customer
}

func address(f fields) domain.Address {
	return domain.Address{
		RemoteID: f.int64("id"),
		Address1: f.str("address1"),
		Address2: f.str("address2"),
		City:     f.str("city"),
		Province: f.str("province"),
		Country:  f.str("country"),
		Zip:      f.str("zip"),
		Phone:    f.str("phone"),
		Default:  f.bool("default"),
	}
}

// Product maps a raw remote product. Price and compare-at price come from
// the first variant; inventory is summed over all variants.
func Product(raw json.RawMessage, tenantID string, storeID string) *domain.Product {
	f := decode(raw)
	ProductDefaults.apply(f)

	product := &domain.Product{
		TenantID:        tenantID,
		StoreID:         storeID,
		RemoteID:        f.int64("id"),
		Title:           f.str("title"),
		Vendor:          f.str("vendor"),
		ProductType:     f.str("product_type"),
		Handle:          f.str("handle"),
		Status:          f.str("status"),
		Tags:            f.strings("tags"),
		Image:           image(f.object("image")),
		RemoteCreatedAt: f.time("created_at"),
		RemoteUpdatedAt: f.time("updated_at"),
	}

	rawVariants := f.list("variants")
	product.Variants = make([]domain.Variant, 0, len(rawVariants))
	for _, rawVariant := range rawVariants {
		v := decode(rawVariant)
		VariantDefaults.apply(v)
		variant := domain.Variant{
			RemoteID:          v.int64("id"),
			Title:             v.str("title"),
			SKU:               v.str("sku"),
			Price:             v.money("price"),
			CompareAtPrice:    v.money("compare_at_price"),
			InventoryQuantity: v.int("inventory_quantity"),
		}
		product.Variants = append(product.Variants, variant)
		product.InventoryQuantity += variant.InventoryQuantity
	}
	if len(product.Variants) > 0 {
		product.Price = product.Variants[0].Price
		product.CompareAtPrice = product.Variants[0].CompareAtPrice
	}

	rawOptions := f.list("options")
	product.Options = make([]domain.ProductOption, 0, len(rawOptions))
	for _, rawOption := range rawOptions {
		o := decode(rawOption)
		OptionDefaults.apply(o)
		product.Options = append(product.Options, domain.ProductOption{
			Name:   o.str("name"),
			Values: o.strings("values"),
		})
	}

	rawImages := f.list("images")
	product.Images = make([]domain.Image, 0, len(rawImages))
	for _, rawImage := range rawImages {
		product.Images = append(product.Images, image(decode(rawImage)))
	}

	return product
}

func image(f fields) domain.Image {
	return domain.Image{
		RemoteID: f.int64("id"),
		Src:      f.str("src"),
		Position: f.int("position"),
	}
}
