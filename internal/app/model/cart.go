package model

import (
	"time"

	"gorm.io/gorm"
)

// CartItem is an authenticated user's cart line, unique per product
type CartItem struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	UserID    uint           `gorm:"not null;index;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID uint           `gorm:"not null;index;uniqueIndex:idx_cart_user_product" json:"product_id"`
	Quantity  int            `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User    User    `gorm:"foreignKey:UserID" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// GuestCartLine is one line of a guest cart blob persisted in redis.
// The blob layout is a versionless {"items":[...]} document.
type GuestCartLine struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}
