package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is the minimal catalog row the order builder snapshots from.
type Product struct {
	ID       uint            `gorm:"column:id;primaryKey;autoIncrement"`
	Name     string          `gorm:"column:name;not null"`
	ImageURL string          `gorm:"column:image_url"`
	Price    decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Stock    int             `gorm:"column:stock;not null;default:0"`
	IsActive bool            `gorm:"column:is_active;not null;default:true"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}
