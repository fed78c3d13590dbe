package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	LensStatusOrdered   = "ORDERED"
	LensStatusReceived  = "RECEIVED"
	LensStatusFitting   = "FITTING"
	LensStatusReady     = "READY"
	LensStatusDelivered = "DELIVERED"
)

// Prescription: refractive measurements attached to a sale.
type Prescription struct {
	ID     uint  `gorm:"primaryKey"`
	SaleID *uint `gorm:"index"`

	SphereR decimal.NullDecimal `gorm:"type:numeric(5,2)"`
	CylR    decimal.NullDecimal `gorm:"type:numeric(5,2)"`
	AxisR   *int
	AddR    decimal.NullDecimal `gorm:"type:numeric(5,2)"`

	SphereL decimal.NullDecimal `gorm:"type:numeric(5,2)"`
	CylL    decimal.NullDecimal `gorm:"type:numeric(5,2)"`
	AxisL   *int
	AddL    decimal.NullDecimal `gorm:"type:numeric(5,2)"`

	PD    decimal.NullDecimal `gorm:"type:numeric(5,2)"`
	Notes string              `gorm:"type:text"`

	CreatedAt time.Time
}

type LensOrder struct {
	ID             uint  `gorm:"primaryKey"`
	SaleID         uint  `gorm:"index;not null"`
	Sale           Sale
	PrescriptionID uint `gorm:"index;not null"`
	Prescription   Prescription
	SupplierID     uint `gorm:"index;not null"`
	Supplier       Supplier

	LensType   string `gorm:"size:100"`
	IndexValue string `gorm:"size:50"`
	Coating    string `gorm:"size:100"`
	Tint       string `gorm:"size:100"`

	OrderDate    *time.Time
	ExpectedDate *time.Time

	Status    string `gorm:"size:50;index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Logs []LensOrderStatusLog `gorm:"foreignKey:LensOrderID;constraint:OnDelete:CASCADE"`
}

// LensOrderStatusLog: one row per status transition, append-only.
type LensOrderStatusLog struct {
	ID          uint   `gorm:"primaryKey"`
	LensOrderID uint   `gorm:"index;not null"`
	Status      string `gorm:"size:50;not null"`
	ChangedBy   *uint
	ChangedAt   time.Time `gorm:"autoCreateTime"`
}
