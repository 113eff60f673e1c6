package models

import "time"

// CartSnapshot stores one serialized cart per storage key.
type CartSnapshot struct {
	StorageKey string    `gorm:"column:storage_key;primaryKey"`
	Payload    string    `gorm:"column:payload;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (CartSnapshot) TableName() string {
	return "cart_snapshots"
}
