package coupons

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/osandoval-dev/storefront-backend/pkg/db"
	"github.com/osandoval-dev/storefront-backend/pkg/db/models"
	"github.com/osandoval-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/osandoval-dev/storefront-backend/pkg/errors"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
	"github.com/osandoval-dev/storefront-backend/pkg/pagination"
)

// Rejection reasons returned to clients when a coupon cannot be applied.
const (
	ReasonNotFound       = "coupon_not_found"
	ReasonInactive       = "coupon_inactive"
	ReasonNotStarted     = "coupon_not_started"
	ReasonExpired        = "coupon_expired"
	ReasonUsageExhausted = "coupon_usage_exhausted"
	ReasonWrongUser      = "coupon_wrong_user"
	ReasonBelowMinimum   = "order_below_minimum_amount"
)

// ValidationResult carries the outcome of a side-effect-free coupon check.
type ValidationResult struct {
	Valid          bool
	Reason         string
	Coupon         *models.Coupon
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
}

// Service exposes coupon validation and admin management.
type Service struct {
	repo Repository
	log  *logger.Logger
	now  func() time.Time
}

// NewService wires the coupon service.
func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// Validate runs the redemption checks in order, short-circuiting on the first
// failure. It never mutates usage counters; consumption happens at settlement
// commit via ConsumeUsage.
func (s *Service) Validate(ctx context.Context, code string, orderAmount decimal.Decimal, userID *uuid.UUID) (*ValidationResult, error) {
	rejected := func(reason string) *ValidationResult {
		return &ValidationResult{
			Valid:       false,
			Reason:      reason,
			FinalAmount: orderAmount,
		}
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rejected(ReasonNotFound), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup coupon")
	}

	if !coupon.IsActive {
		return rejected(ReasonInactive), nil
	}

	now := s.now()
	if now.Before(coupon.StartDate) {
		return rejected(ReasonNotStarted), nil
	}
	if now.After(coupon.EndDate) {
		return rejected(ReasonExpired), nil
	}

	if limit := coupon.EffectiveUsageLimit(); limit != nil && coupon.UsedCount >= *limit {
		return rejected(ReasonUsageExhausted), nil
	}

	if coupon.AppUserID != nil {
		if userID == nil || *userID != *coupon.AppUserID {
			return rejected(ReasonWrongUser), nil
		}
	}

	if coupon.MinimumOrderAmount != nil && orderAmount.LessThan(*coupon.MinimumOrderAmount) {
		return rejected(ReasonBelowMinimum), nil
	}

	discount := ComputeDiscount(coupon, orderAmount)
	return &ValidationResult{
		Valid:          true,
		Coupon:         coupon,
		DiscountAmount: discount,
		FinalAmount:    orderAmount.Sub(discount),
	}, nil
}

// ComputeDiscount applies the coupon's type-specific discount rule against an
// order amount. The result is clamped so the final amount is never negative.
func ComputeDiscount(coupon *models.Coupon, orderAmount decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch coupon.Type {
	case enums.CouponTypePercentage:
		discount = orderAmount.Mul(coupon.Value).Div(decimal.NewFromInt(100)).Round(2)
		if coupon.MaximumDiscountAmount != nil && discount.GreaterThan(*coupon.MaximumDiscountAmount) {
			discount = *coupon.MaximumDiscountAmount
		}
	default:
		discount = coupon.Value
	}
	if discount.GreaterThan(orderAmount) {
		discount = orderAmount
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount
}

// CreateCouponInput is the admin creation payload.
type CreateCouponInput struct {
	Code                  string           `json:"code" validate:"required,min=3,max=64"`
	Type                  string           `json:"type" validate:"required,oneof=percentage fixed_amount"`
	Value                 decimal.Decimal  `json:"value" validate:"required"`
	MinimumOrderAmount    *decimal.Decimal `json:"minimum_order_amount,omitempty"`
	MaximumDiscountAmount *decimal.Decimal `json:"maximum_discount_amount,omitempty"`
	StartDate             time.Time        `json:"start_date" validate:"required"`
	EndDate               time.Time        `json:"end_date" validate:"required"`
	UsageLimit            *int             `json:"usage_limit,omitempty"`
	IsSingleUse           bool             `json:"is_single_use"`
	AppUserID             *uuid.UUID       `json:"app_user_id,omitempty"`
}

// Create persists a new coupon.
func (s *Service) Create(ctx context.Context, input CreateCouponInput) (*models.Coupon, error) {
	if !input.EndDate.After(input.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end_date must be after start_date")
	}
	if input.Value.IsNegative() || input.Value.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "value must be positive")
	}
	if input.UsageLimit != nil && *input.UsageLimit < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage_limit must be at least 1")
	}
	couponType, err := enums.ParseCouponType(input.Type)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coupon type")
	}

	coupon := &models.Coupon{
		Code:                  NormalizeCode(input.Code),
		Type:                  couponType,
		Value:                 input.Value,
		MinimumOrderAmount:    input.MinimumOrderAmount,
		MaximumDiscountAmount: input.MaximumDiscountAmount,
		StartDate:             input.StartDate,
		EndDate:               input.EndDate,
		UsageLimit:            input.UsageLimit,
		IsSingleUse:           input.IsSingleUse,
		AppUserID:             input.AppUserID,
		IsActive:              true,
	}

	created, err := s.repo.Create(ctx, coupon)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "coupon code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create coupon")
	}

	ctx = s.log.WithField(ctx, "coupon_code", created.Code)
	s.log.Info(ctx, "coupon created")
	return created, nil
}

// Get returns a coupon by id.
func (s *Service) Get(ctx context.Context, id uint) (*models.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetch coupon")
	}
	return coupon, nil
}

// List returns a page of coupons with a next cursor.
func (s *Service) List(ctx context.Context, params pagination.Params) ([]models.Coupon, string, error) {
	coupons, next, err := s.repo.List(ctx, params)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeValidation) {
			return nil, "", err
		}
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list coupons")
	}
	return coupons, next, nil
}

// Deactivate retires a coupon so future validations reject it. Existing
// orders that reference it are unaffected.
func (s *Service) Deactivate(ctx context.Context, id uint) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate coupon")
	}
	ctx = s.log.WithField(ctx, "coupon_id", id)
	s.log.Info(ctx, "coupon deactivated")
	return nil
}
