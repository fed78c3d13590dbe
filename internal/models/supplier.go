package models

import "time"

type Supplier struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:200;not null"`
	Phone     string `gorm:"size:20"`
	GSTIN     string `gorm:"size:50"`
	Address   string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
