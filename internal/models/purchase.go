package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Purchase struct {
	ID         uint `gorm:"primaryKey"`
	SupplierID uint `gorm:"index;not null"`
	Supplier   Supplier
	InvoiceNo  string          `gorm:"size:100"`
	Date       time.Time       `gorm:"index"`
	Total      decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`
	Items      []PurchaseItem  `gorm:"foreignKey:PurchaseID"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type PurchaseItem struct {
	ID         uint `gorm:"primaryKey"`
	PurchaseID uint `gorm:"index;not null"`
	ItemID     uint `gorm:"index;not null"`
	Item       Item
	Qty        int                 `gorm:"not null"`
	Price      decimal.Decimal     `gorm:"type:numeric(10,2);not null"`
	GSTPercent decimal.NullDecimal `gorm:"type:numeric(5,2)"`
}
