package coupons

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/osandoval-dev/storefront-backend/pkg/db/models"
	"github.com/osandoval-dev/storefront-backend/pkg/enums"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
	"github.com/osandoval-dev/storefront-backend/pkg/pagination"
)

type stubRepo struct {
	byCode    map[string]*models.Coupon
	created   []*models.Coupon
	createErr error
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	coupon.ID = uint(len(s.created) + 1)
	s.created = append(s.created, coupon)
	return coupon, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uint) (*models.Coupon, error) {
	for _, c := range s.byCode {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	if c, ok := s.byCode[NormalizeCode(code)]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) List(ctx context.Context, params pagination.Params) ([]models.Coupon, string, error) {
	return nil, "", nil
}

func (s *stubRepo) Deactivate(ctx context.Context, id uint) error { return nil }

func (s *stubRepo) ConsumeUsage(ctx context.Context, id uint) error { return nil }

func newTestService(coupons ...*models.Coupon) (*Service, *stubRepo) {
	repo := &stubRepo{byCode: map[string]*models.Coupon{}}
	for _, c := range coupons {
		repo.byCode[NormalizeCode(c.Code)] = c
	}
	log := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc := NewService(repo, log)
	svc.now = func() time.Time { return time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC) }
	return svc, repo
}

func activeCoupon() *models.Coupon {
	return &models.Coupon{
		ID:        1,
		Code:      "SAVE10",
		Type:      enums.CouponTypePercentage,
		Value:     decimal.NewFromInt(10),
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
		IsActive:  true,
	}
}

func TestValidate_PercentageDiscount(t *testing.T) {
	svc, _ := newTestService(activeCoupon())

	result, err := svc.Validate(context.Background(), "save10", decimal.NewFromInt(100), nil)
	require.NoError(t, err)

	assert.True(t, result.Valid)
	assert.True(t, result.DiscountAmount.Equal(decimal.NewFromInt(10)), "got %s", result.DiscountAmount)
	assert.True(t, result.FinalAmount.Equal(decimal.NewFromInt(90)), "got %s", result.FinalAmount)
}

func TestValidate_UnknownCode(t *testing.T) {
	svc, _ := newTestService()

	result, err := svc.Validate(context.Background(), "NOPE", decimal.NewFromInt(50), nil)
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, ReasonNotFound, result.Reason)
	assert.True(t, result.FinalAmount.Equal(decimal.NewFromInt(50)))
}

func TestValidate_Inactive(t *testing.T) {
	coupon := activeCoupon()
	coupon.IsActive = false
	svc, _ := newTestService(coupon)

	result, err := svc.Validate(context.Background(), "SAVE10", decimal.NewFromInt(100), nil)
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, ReasonInactive, result.Reason)
}

func TestValidate_Window(t *testing.T) {
	early := activeCoupon()
	early.Code = "SOON"
	early.StartDate = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	late := activeCoupon()
	late.Code = "GONE"
	late.EndDate = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	svc, _ := newTestService(early, late)

	result, err := svc.Validate(context.Background(), "SOON", decimal.NewFromInt(100), nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotStarted, result.Reason)

	result, err = svc.Validate(context.Background(), "GONE", decimal.NewFromInt(100), nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonExpired, result.Reason)
}

func TestValidate_UsageExhausted(t *testing.T) {
	limit := 5
	coupon := activeCoupon()
	coupon.UsageLimit = &limit
	coupon.UsedCount = 5
	svc, _ := newTestService(coupon)

	result, err := svc.Validate(context.Background(), "SAVE10", decimal.NewFromInt(100), nil)
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, ReasonUsageExhausted, result.Reason)
}

func TestValidate_SingleUseConsumed(t *testing.T) {
	coupon := activeCoupon()
	coupon.IsSingleUse = true
	coupon.UsedCount = 1
	svc, _ := newTestService(coupon)

	result, err := svc.Validate(context.Background(), "SAVE10", decimal.NewFromInt(100), nil)
	require.NoError(t, err)

	assert.Equal(t, ReasonUsageExhausted, result.Reason)
}

func TestValidate_UserBinding(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()
	coupon := activeCoupon()
	coupon.AppUserID = &owner
	svc, _ := newTestService(coupon)

	result, err := svc.Validate(context.Background(), "SAVE10", decimal.NewFromInt(100), &stranger)
	require.NoError(t, err)
	assert.Equal(t, ReasonWrongUser, result.Reason)

	result, err = svc.Validate(context.Background(), "SAVE10", decimal.NewFromInt(100), nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonWrongUser, result.Reason)

	result, err = svc.Validate(context.Background(), "SAVE10", decimal.NewFromInt(100), &owner)
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestValidate_MinimumOrderAmount(t *testing.T) {
	minimum := decimal.NewFromInt(50)
	coupon := activeCoupon()
	coupon.MinimumOrderAmount = &minimum
	svc, _ := newTestService(coupon)

	result, err := svc.Validate(context.Background(), "SAVE10", decimal.NewFromInt(49), nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonBelowMinimum, result.Reason)

	result, err = svc.Validate(context.Background(), "SAVE10", decimal.NewFromInt(50), nil)
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestComputeDiscount(t *testing.T) {
	cap := decimal.NewFromInt(15)

	tests := []struct {
		name        string
		coupon      *models.Coupon
		orderAmount decimal.Decimal
		want        decimal.Decimal
	}{
		{
			name: "percentage",
			coupon: &models.Coupon{
				Type:  enums.CouponTypePercentage,
				Value: decimal.NewFromInt(10),
			},
			orderAmount: decimal.NewFromInt(200),
			want:        decimal.NewFromInt(20),
		},
		{
			name: "percentage capped",
			coupon: &models.Coupon{
				Type:                  enums.CouponTypePercentage,
				Value:                 decimal.NewFromInt(10),
				MaximumDiscountAmount: &cap,
			},
			orderAmount: decimal.NewFromInt(200),
			want:        decimal.NewFromInt(15),
		},
		{
			name: "fixed amount",
			coupon: &models.Coupon{
				Type:  enums.CouponTypeFixedAmount,
				Value: decimal.NewFromInt(25),
			},
			orderAmount: decimal.NewFromInt(100),
			want:        decimal.NewFromInt(25),
		},
		{
			name: "fixed amount exceeds order",
			coupon: &models.Coupon{
				Type:  enums.CouponTypeFixedAmount,
				Value: decimal.NewFromInt(25),
			},
			orderAmount: decimal.NewFromInt(10),
			want:        decimal.NewFromInt(10),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeDiscount(tc.coupon, tc.orderAmount)
			assert.True(t, got.Equal(tc.want), "want %s got %s", tc.want, got)
		})
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, repo := newTestService()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	_, err := svc.Create(context.Background(), CreateCouponInput{
		Code:      "BAD",
		Type:      "percentage",
		Value:     decimal.NewFromInt(10),
		StartDate: end,
		EndDate:   start,
	})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), CreateCouponInput{
		Code:      "BAD",
		Type:      "raffle",
		Value:     decimal.NewFromInt(10),
		StartDate: start,
		EndDate:   end,
	})
	require.Error(t, err)

	created, err := svc.Create(context.Background(), CreateCouponInput{
		Code:      "welcome5",
		Type:      "fixed_amount",
		Value:     decimal.NewFromInt(5),
		StartDate: start,
		EndDate:   end,
	})
	require.NoError(t, err)
	assert.Equal(t, "WELCOME5", created.Code)
	assert.True(t, created.IsActive)
	require.Len(t, repo.created, 1)
}
