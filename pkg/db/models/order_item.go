package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem snapshots a product at order time so later catalog edits cannot
// retroactively alter historical orders.
type OrderItem struct {
	ID        uint            `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   uint            `gorm:"column:order_id;not null;index"`
	ProductID uint            `gorm:"column:product_id;not null"`
	Name      string          `gorm:"column:name;not null"`
	ImageURL  string          `gorm:"column:image_url"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	LineTotal decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
