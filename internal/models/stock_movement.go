package models

import "time"

const (
	MovementPurchase = "PURCHASE"
	MovementSale     = "SALE"
	MovementReturn   = "RETURN"
)

// StockMovement: append-only quantity ledger. Rows are written inside
// the purchase/sale/return transaction and never updated afterwards.
type StockMovement struct {
	ID           uint `gorm:"primaryKey"`
	ItemID       uint `gorm:"index;not null"`
	Item         Item
	ChangeQty    int    `gorm:"not null"`
	MovementType string `gorm:"size:50;index;not null"`
	ReferenceID  uint   `gorm:"index"`
	CreatedAt    time.Time
}
