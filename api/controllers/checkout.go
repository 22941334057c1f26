package controllers

import (
	"net/http"

	"github.com/osandoval-dev/storefront-backend/api/responses"
	"github.com/osandoval-dev/storefront-backend/api/validators"
	"github.com/osandoval-dev/storefront-backend/internal/orders"
	pkgerrors "github.com/osandoval-dev/storefront-backend/pkg/errors"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
)

// Checkout submits a cart, creating the order aggregate and its pending
// payment transaction.
func Checkout(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var payload orders.CreateOrderInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateOrder(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}
