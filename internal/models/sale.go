package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SaleStatusCompleted     = "COMPLETED"
	SaleStatusPartialReturn = "PARTIAL_RETURN"
	SaleStatusFullReturn    = "FULL_RETURN"

	PaymentStatusPending = "pending"
	PaymentStatusPartial = "partial"
	PaymentStatusPaid    = "paid"

	DeliveryStatusPending   = "pending"
	DeliveryStatusDelivered = "delivered"

	DefaultPaymentMethod = "CASH"
)

// Sale: one checkout transaction. Owns its items and payments
// (cascade delete). Paid/Balance and AdvanceAmount/BalanceAmount are
// two related but independently sourced running totals: invoicing
// reads the former, delivery settlement reads the latter.
type Sale struct {
	ID         uint  `gorm:"primaryKey"`
	CustomerID *uint `gorm:"index"`
	Customer   *Customer

	CustomerName  string `gorm:"size:200"`
	CustomerPhone string `gorm:"size:20"`

	Total   decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`
	Paid    decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`
	Balance decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`

	Status string `gorm:"size:50;not null;default:COMPLETED"`

	AdvanceAmount      decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`
	AdvancePaymentMode *string         `gorm:"size:50"`
	AdvancePaymentDate *time.Time

	BalanceAmount      decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`
	BalancePaymentMode *string         `gorm:"size:50"`
	BalancePaymentDate *time.Time

	PaymentStatus  string `gorm:"size:50;not null;default:pending"`
	DeliveryStatus string `gorm:"size:50;not null;default:pending"`

	CreatedBy uint `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Items    []SaleItem `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	Payments []Payment  `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

// SaleItem: one sale line. The tax columns are snapshots taken at sale
// time and stay decoupled from the item's current GST rate.
type SaleItem struct {
	ID     uint `gorm:"primaryKey"`
	SaleID uint `gorm:"index;not null"`
	ItemID uint `gorm:"index;not null"`
	Item   Item

	Qty   int             `gorm:"not null"`
	Price decimal.Decimal `gorm:"type:numeric(10,2);not null"`

	GSTPercent   decimal.NullDecimal `gorm:"type:numeric(5,2)"`
	TaxableValue decimal.NullDecimal `gorm:"type:numeric(10,2)"`
	GSTAmount    decimal.NullDecimal `gorm:"type:numeric(10,2)"`
	CGST         decimal.NullDecimal `gorm:"type:numeric(10,2)"`
	SGST         decimal.NullDecimal `gorm:"type:numeric(10,2)"`

	// Cumulative quantity returned against this line across all
	// return calls. Never allowed to exceed Qty.
	ReturnedQty int `gorm:"not null;default:0"`
}

// Payment: append-only money movement tied to a sale. Refunds are
// recorded as negative amounts so the ledger reconciles.
type Payment struct {
	ID        uint `gorm:"primaryKey"`
	SaleID    uint `gorm:"index;not null"`
	Amount    decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Method    string          `gorm:"size:50;not null"`
	ReceiptNo string          `gorm:"size:64;uniqueIndex"`
	CreatedAt time.Time
}

// EffectiveTaxableValue falls back to price*qty when the snapshot
// column is null (pre-GST rows).
func (si *SaleItem) EffectiveTaxableValue() decimal.Decimal {
	if si.TaxableValue.Valid {
		return si.TaxableValue.Decimal
	}
	return si.Price.Mul(decimal.NewFromInt(int64(si.Qty)))
}

func (si *SaleItem) EffectiveGSTPercent() decimal.Decimal {
	if si.GSTPercent.Valid {
		return si.GSTPercent.Decimal
	}
	if si.Item.GSTPercent.Valid {
		return si.Item.GSTPercent.Decimal
	}
	return decimal.Zero
}

func (si *SaleItem) EffectiveGSTAmount() decimal.Decimal {
	if si.GSTAmount.Valid {
		return si.GSTAmount.Decimal
	}
	return si.EffectiveTaxableValue().Mul(si.EffectiveGSTPercent()).Div(decimal.NewFromInt(100))
}

func (si *SaleItem) EffectiveCGST() decimal.Decimal {
	if si.CGST.Valid {
		return si.CGST.Decimal
	}
	return si.EffectiveGSTAmount().Div(decimal.NewFromInt(2))
}

func (si *SaleItem) EffectiveSGST() decimal.Decimal {
	if si.SGST.Valid {
		return si.SGST.Decimal
	}
	return si.EffectiveGSTAmount().Div(decimal.NewFromInt(2))
}

// TotalValue: line total including tax.
func (si *SaleItem) TotalValue() decimal.Decimal {
	return si.EffectiveTaxableValue().Add(si.EffectiveGSTAmount())
}
