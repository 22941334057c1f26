package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/osandoval-dev/storefront-backend/api/responses"
	"github.com/osandoval-dev/storefront-backend/api/validators"
	"github.com/osandoval-dev/storefront-backend/internal/coupons"
	"github.com/osandoval-dev/storefront-backend/pkg/db/models"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
)

// ValidateCoupon checks a code against an order amount without consuming it.
func ValidateCoupon(svc *coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload validateCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Validate(r.Context(), payload.Code, payload.OrderAmount, payload.AppUserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, validateCouponResponse{
			Valid:          result.Valid,
			Reason:         result.Reason,
			DiscountAmount: result.DiscountAmount,
			FinalAmount:    result.FinalAmount,
		})
	}
}

// AdminCreateCoupon registers a new discount code.
func AdminCreateCoupon(svc *coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload coupons.CreateCouponInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Create(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCouponResponse(coupon))
	}
}

// AdminListCoupons pages through all coupons.
func AdminListCoupons(svc *coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, next, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]couponResponse, 0, len(page))
		for i := range page {
			items = append(items, newCouponResponse(&page[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"coupons":     items,
			"next_cursor": next,
		})
	}
}

// AdminDeactivateCoupon retires a code from future validations.
func AdminDeactivateCoupon(svc *coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUintParam(chi.URLParam(r, "couponId"), "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Deactivate(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

type validateCouponRequest struct {
	Code        string          `json:"code" validate:"required"`
	OrderAmount decimal.Decimal `json:"order_amount" validate:"required"`
	AppUserID   *uuid.UUID      `json:"app_user_id,omitempty"`
}

type validateCouponResponse struct {
	Valid          bool            `json:"valid"`
	Reason         string          `json:"reason,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
}

type couponResponse struct {
	ID          uint            `json:"id"`
	Code        string          `json:"code"`
	Type        string          `json:"type"`
	Value       decimal.Decimal `json:"value"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	UsageLimit  *int            `json:"usage_limit,omitempty"`
	UsedCount   int             `json:"used_count"`
	IsSingleUse bool            `json:"is_single_use"`
	IsActive    bool            `json:"is_active"`
}

func newCouponResponse(c *models.Coupon) couponResponse {
	return couponResponse{
		ID:          c.ID,
		Code:        c.Code,
		Type:        c.Type.String(),
		Value:       c.Value,
		StartDate:   c.StartDate,
		EndDate:     c.EndDate,
		UsageLimit:  c.UsageLimit,
		UsedCount:   c.UsedCount,
		IsSingleUse: c.IsSingleUse,
		IsActive:    c.IsActive,
	}
}
