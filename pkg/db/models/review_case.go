package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/osandoval-dev/storefront-backend/pkg/enums"
)

// ReviewCase is the operator-facing remediation queue for settlement
// observations the reconciler refused to apply.
type ReviewCase struct {
	ID               uint               `gorm:"column:id;primaryKey;autoIncrement"`
	Reason           enums.ReviewReason `gorm:"column:reason;type:text;not null"`
	Status           enums.ReviewStatus `gorm:"column:status;type:text;not null;default:'open'"`
	GatewayInvoiceID string             `gorm:"column:gateway_invoice_id;not null;index"`
	TransactionID    *uint              `gorm:"column:transaction_id;index"`
	ExpectedAmount   *decimal.Decimal   `gorm:"column:expected_amount;type:numeric(12,2)"`
	ObservedAmount   *decimal.Decimal   `gorm:"column:observed_amount;type:numeric(12,2)"`
	ObservedStatus   string             `gorm:"column:observed_status"`
	Resolution       *string            `gorm:"column:resolution"`
	ResolvedAt       *time.Time         `gorm:"column:resolved_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
