package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/osandoval-dev/storefront-backend/api/responses"
	"github.com/osandoval-dev/storefront-backend/api/validators"
	"github.com/osandoval-dev/storefront-backend/internal/settlement"
	"github.com/osandoval-dev/storefront-backend/pkg/db/models"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
)

// AdminListReviewCases pages through unresolved settlement anomalies.
func AdminListReviewCases(svc *settlement.ReviewService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, next, err := svc.ListOpen(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]reviewCaseResponse, 0, len(page))
		for i := range page {
			items = append(items, newReviewCaseResponse(&page[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"review_cases": items,
			"next_cursor":  next,
		})
	}
}

// AdminResolveReviewCase closes a case with an operator note.
func AdminResolveReviewCase(svc *settlement.ReviewService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUintParam(chi.URLParam(r, "caseId"), "caseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload resolveReviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Resolve(r.Context(), id, payload.Resolution); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "resolved"})
	}
}

type resolveReviewRequest struct {
	Resolution string `json:"resolution" validate:"required,min=3,max=500"`
}

type reviewCaseResponse struct {
	ID               uint             `json:"id"`
	Reason           string           `json:"reason"`
	Status           string           `json:"status"`
	GatewayInvoiceID string           `json:"gateway_invoice_id"`
	TransactionID    *uint            `json:"transaction_id,omitempty"`
	ExpectedAmount   *decimal.Decimal `json:"expected_amount,omitempty"`
	ObservedAmount   *decimal.Decimal `json:"observed_amount,omitempty"`
	ObservedStatus   string           `json:"observed_status,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

func newReviewCaseResponse(rc *models.ReviewCase) reviewCaseResponse {
	return reviewCaseResponse{
		ID:               rc.ID,
		Reason:           string(rc.Reason),
		Status:           string(rc.Status),
		GatewayInvoiceID: rc.GatewayInvoiceID,
		TransactionID:    rc.TransactionID,
		ExpectedAmount:   rc.ExpectedAmount,
		ObservedAmount:   rc.ObservedAmount,
		ObservedStatus:   rc.ObservedStatus,
		CreatedAt:        rc.CreatedAt,
	}
}
