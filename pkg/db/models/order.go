package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/osandoval-dev/storefront-backend/pkg/enums"
)

// Order is the durable result of a checkout. Financial fields are written
// once at creation; settlement only ever moves Status.
type Order struct {
	ID          uint              `gorm:"column:id;primaryKey;autoIncrement"`
	OrderNumber string            `gorm:"column:order_number;not null;uniqueIndex"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Subtotal    decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Shipping    decimal.Decimal   `gorm:"column:shipping;type:numeric(12,2);not null"`
	Tax         decimal.Decimal   `gorm:"column:tax;type:numeric(12,2);not null"`
	Discount    *decimal.Decimal  `gorm:"column:discount;type:numeric(12,2)"`
	Total       decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	CouponID    *uint             `gorm:"column:coupon_id"`
	AppUserID   *uuid.UUID        `gorm:"column:app_user_id;type:uuid"`
	PaidAt      *time.Time        `gorm:"column:paid_at"`
	CancelledAt *time.Time        `gorm:"column:cancelled_at"`

	Items           []OrderItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ShippingAddress *ShippingAddress `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Transactions    []Transaction    `gorm:"foreignKey:OrderID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
