package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:100;uniqueIndex;not null"`
	Description string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Item: one stock keeping unit (frame, lens, solution, ...).
// StockQty is only mutated inside purchase/sale/return transactions.
type Item struct {
	ID         uint `gorm:"primaryKey"`
	Name       string `gorm:"size:200;not null"`
	CategoryID uint   `gorm:"index;not null"`
	Category   Category

	Brand string `gorm:"size:100"`
	Model string `gorm:"size:100"`
	Color string `gorm:"size:50"`
	Size  string `gorm:"size:50"`

	// Denormalized supplier info as entered on the item card
	SupplierName    string `gorm:"size:200"`
	SupplierGST     string `gorm:"size:50"`
	SupplierContact string `gorm:"size:50"`
	SupplierAddress string `gorm:"type:text"`

	Barcode string `gorm:"size:100;index"`
	HSNCode string `gorm:"size:20"`

	CostPrice     decimal.NullDecimal `gorm:"type:numeric(10,2)"`
	PurchasePrice decimal.NullDecimal `gorm:"type:numeric(10,2)"`
	SellingPrice  decimal.NullDecimal `gorm:"type:numeric(10,2)"`
	GSTPercent    decimal.NullDecimal `gorm:"type:numeric(5,2)"`

	StockQty     int `gorm:"not null;default:0"`
	ReorderLevel int `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
