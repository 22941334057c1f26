package controllers

import (
	"net/http"

	"github.com/osandoval-dev/storefront-backend/api/responses"
	"github.com/osandoval-dev/storefront-backend/api/validators"
	"github.com/osandoval-dev/storefront-backend/internal/ledger"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
)

// AdminRefund refunds a completed transaction.
func AdminRefund(svc *ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload ledger.RefundInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.Refund(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, transactionResponse{
			ID:         txn.ID,
			Amount:     txn.Amount,
			Method:     txn.PaymentMethod.String(),
			Status:     txn.Status.String(),
			IsRefunded: txn.IsRefunded,
		})
	}
}
