package models

import "time"

type Customer struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:200;not null"`
	Phone     string `gorm:"size:20;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
