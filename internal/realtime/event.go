package realtime

import (
	"github.com/quickshop/quickshop-backend/internal/app/model"
)

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// ProductPatch carries only the fields that actually changed in an
// update. Nil fields are left untouched when the patch is applied.
type ProductPatch struct {
	Name        *string  `json:"name,omitempty"`
	Slug        *string  `json:"slug,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Stock       *int     `json:"stock,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`
	CategoryID  *uint    `json:"category_id,omitempty"`
}

// ApplyTo overlays the patch onto a product in place
func (p *ProductPatch) ApplyTo(product *model.Product) {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Slug != nil {
		product.Slug = *p.Slug
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Stock != nil {
		product.Stock = *p.Stock
	}
	if p.ImageURL != nil {
		product.ImageURL = *p.ImageURL
	}
	if p.CategoryID != nil {
		product.CategoryID = *p.CategoryID
	}
}

// ProductEvent is one change notification for the products table.
// Insert carries the full new record, Update carries the changed
// fields, Delete carries only the product id.
type ProductEvent struct {
	Type      EventType      `json:"type"`
	ProductID uint           `json:"product_id"`
	Product   *model.Product `json:"product,omitempty"`
	Patch     *ProductPatch  `json:"patch,omitempty"`
}

func InsertEvent(product model.Product) ProductEvent {
	return ProductEvent{
		Type:      EventInsert,
		ProductID: product.ID,
		Product:   &product,
	}
}

func UpdateEvent(productID uint, patch ProductPatch) ProductEvent {
	return ProductEvent{
		Type:      EventUpdate,
		ProductID: productID,
		Patch:     &patch,
	}
}

func DeleteEvent(productID uint) ProductEvent {
	return ProductEvent{
		Type:      EventDelete,
		ProductID: productID,
	}
}

// StockPatch is a convenience for the most common update: a stock change
func StockPatch(stock int) ProductPatch {
	return ProductPatch{Stock: &stock}
}

// Publisher pushes product change events to connected subscribers.
// Services hold a Publisher rather than the hub itself so tests can
// inject a recording fake.
type Publisher interface {
	Publish(event ProductEvent)
}
