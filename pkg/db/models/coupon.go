package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/osandoval-dev/storefront-backend/pkg/enums"
)

// Coupon is a discount code. Codes are stored uppercase; the unique index
// plus uppercase normalization at the repo boundary gives the
// case-insensitive uniqueness contract.
type Coupon struct {
	ID                    uint             `gorm:"column:id;primaryKey;autoIncrement"`
	Code                  string           `gorm:"column:code;not null;uniqueIndex"`
	Type                  enums.CouponType `gorm:"column:type;type:text;not null"`
	Value                 decimal.Decimal  `gorm:"column:value;type:numeric(12,2);not null"`
	MinimumOrderAmount    *decimal.Decimal `gorm:"column:minimum_order_amount;type:numeric(12,2)"`
	MaximumDiscountAmount *decimal.Decimal `gorm:"column:maximum_discount_amount;type:numeric(12,2)"`
	StartDate             time.Time        `gorm:"column:start_date;not null"`
	EndDate               time.Time        `gorm:"column:end_date;not null"`
	UsageLimit            *int             `gorm:"column:usage_limit"`
	UsedCount             int              `gorm:"column:used_count;not null;default:0"`
	IsSingleUse           bool             `gorm:"column:is_single_use;not null;default:false"`
	AppUserID             *uuid.UUID       `gorm:"column:app_user_id;type:uuid"`
	IsActive              bool             `gorm:"column:is_active;not null;default:true"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

// EffectiveUsageLimit returns the usage ceiling, folding IsSingleUse into a
// limit of one when no explicit limit is tighter.
func (c *Coupon) EffectiveUsageLimit() *int {
	if c.IsSingleUse {
		one := 1
		if c.UsageLimit == nil || *c.UsageLimit > 1 {
			return &one
		}
	}
	return c.UsageLimit
}
