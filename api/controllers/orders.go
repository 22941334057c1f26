package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/osandoval-dev/storefront-backend/api/responses"
	"github.com/osandoval-dev/storefront-backend/api/validators"
	"github.com/osandoval-dev/storefront-backend/internal/orders"
	"github.com/osandoval-dev/storefront-backend/pkg/db/models"
	"github.com/osandoval-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/osandoval-dev/storefront-backend/pkg/errors"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
)

// OrderList pages through orders.
func OrderList(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, next, err := svc.List(r.Context(), nil, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]orderResponse, 0, len(page))
		for i := range page {
			items = append(items, newOrderResponse(&page[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"orders":      items,
			"next_cursor": next,
		})
	}
}

// OrderDetail returns one order with its items, address, and transactions.
func OrderDetail(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUintParam(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderByNumber resolves an order by its human-readable number.
func OrderByNumber(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number := chi.URLParam(r, "orderNumber")
		if number == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order number required"))
			return
		}

		order, err := svc.GetByOrderNumber(r.Context(), number)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type updateOrderStatusInput struct {
	Status string `json:"status" validate:"required"`
}

// AdminUpdateOrderStatus applies a manual fulfillment transition.
func AdminUpdateOrderStatus(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUintParam(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateOrderStatusInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type orderResponse struct {
	ID          uint                  `json:"id"`
	OrderNumber string                `json:"order_number"`
	Status      string                `json:"status"`
	Subtotal    decimal.Decimal       `json:"subtotal"`
	Shipping    decimal.Decimal       `json:"shipping"`
	Tax         decimal.Decimal       `json:"tax"`
	Discount    *decimal.Decimal      `json:"discount,omitempty"`
	Total       decimal.Decimal       `json:"total"`
	PaidAt      *time.Time            `json:"paid_at,omitempty"`
	Items       []orderItemResponse   `json:"items"`
	Address     *addressResponse      `json:"shipping_address,omitempty"`
	Payments    []transactionResponse `json:"payments,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

type orderItemResponse struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type addressResponse struct {
	Recipient  string `json:"recipient"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

type transactionResponse struct {
	ID         uint            `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"payment_method"`
	Status     string          `json:"status"`
	PaymentURL *string         `json:"payment_url,omitempty"`
	IsRefunded bool            `json:"is_refunded,omitempty"`
}

func newOrderResponse(order *models.Order) orderResponse {
	resp := orderResponse{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status.String(),
		Subtotal:    order.Subtotal,
		Shipping:    order.Shipping,
		Tax:         order.Tax,
		Discount:    order.Discount,
		Total:       order.Total,
		PaidAt:      order.PaidAt,
		CreatedAt:   order.CreatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			ImageURL:  item.ImageURL,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		})
	}
	if addr := order.ShippingAddress; addr != nil {
		resp.Address = &addressResponse{
			Recipient:  addr.Recipient,
			Line1:      addr.Line1,
			Line2:      addr.Line2,
			City:       addr.City,
			State:      addr.State,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
			Phone:      addr.Phone,
		}
	}
	for _, txn := range order.Transactions {
		resp.Payments = append(resp.Payments, transactionResponse{
			ID:         txn.ID,
			Amount:     txn.Amount,
			Method:     txn.PaymentMethod.String(),
			Status:     txn.Status.String(),
			PaymentURL: txn.PaymentURL,
			IsRefunded: txn.IsRefunded,
		})
	}
	return resp
}
