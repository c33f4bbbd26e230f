package models

import (
	"time"

	"gorm.io/gorm"
)

type ProductStatus string

const (
	ProductAvailable ProductStatus = "available"
	ProductReserved  ProductStatus = "reserved"
	ProductSold      ProductStatus = "sold"
)

type Product struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	SellerID    uint          `gorm:"index;not null" json:"seller_id"`
	Title       string        `gorm:"size:255;not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	Price       float64       `gorm:"not null" json:"price"`
	Currency    string        `gorm:"size:3;default:'EUR'" json:"currency"`
	Category    string        `gorm:"size:50;index" json:"category"` // electronics, furniture, books, etc.
	Condition   string        `gorm:"size:20" json:"condition"`      // new, used
	Images      []string      `gorm:"serializer:json" json:"images"` // ordered, first is the cover
	City        string        `gorm:"size:100" json:"city"`          // denormalized from seller at creation
	Country     string        `gorm:"size:100" json:"country"`
	Status      ProductStatus `gorm:"default:'available';size:20;index" json:"status"`
	Saves       int           `gorm:"default:0" json:"saves"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`

	// Relations
	Seller User `gorm:"foreignKey:SellerID" json:"seller"`
}
