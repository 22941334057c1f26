package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/osandoval-dev/storefront-backend/pkg/enums"
)

// Transaction is one payment attempt against an order. An order may carry
// several (retries); the settlement reconciler is the only writer after
// creation, manual refunds aside.
type Transaction struct {
	ID              uint                    `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID         uint                    `gorm:"column:order_id;not null;index"`
	Amount          decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	PaymentMethod   enums.PaymentMethod     `gorm:"column:payment_method;type:text;not null"`
	Status          enums.TransactionStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	TransactionDate time.Time               `gorm:"column:transaction_date;not null"`

	TransactionReference *string `gorm:"column:transaction_reference"`
	GatewayInvoiceID     *string `gorm:"column:gateway_invoice_id;uniqueIndex"`
	PaymentURL           *string `gorm:"column:payment_url"`

	IsRefunded   bool             `gorm:"column:is_refunded;not null;default:false"`
	RefundAmount *decimal.Decimal `gorm:"column:refund_amount;type:numeric(12,2)"`
	RefundDate   *time.Time       `gorm:"column:refund_date"`
	RefundReason *string          `gorm:"column:refund_reason"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
