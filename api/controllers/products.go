package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/osandoval-dev/storefront-backend/api/responses"
	"github.com/osandoval-dev/storefront-backend/api/validators"
	"github.com/osandoval-dev/storefront-backend/internal/products"
	"github.com/osandoval-dev/storefront-backend/pkg/db/models"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
)

// ProductList pages through the active catalog.
func ProductList(svc *products.Service, logg *logger.Logger) http.HandlerFunc {
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

		items := make([]productResponse, 0, len(page))
		for i := range page {
			items = append(items, newProductResponse(&page[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"products":    items,
			"next_cursor": next,
		})
	}
}

// ProductDetail returns one product.
func ProductDetail(svc *products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUintParam(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductResponse(product))
	}
}

// AdminCreateProduct adds a product to the catalog.
func AdminCreateProduct(svc *products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload products.CreateProductInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newProductResponse(product))
	}
}

type productResponse struct {
	ID       uint            `json:"id"`
	Name     string          `json:"name"`
	ImageURL string          `json:"image_url,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	IsActive bool            `json:"is_active"`
}

func newProductResponse(p *models.Product) productResponse {
	return productResponse{
		ID:       p.ID,
		Name:     p.Name,
		ImageURL: p.ImageURL,
		Price:    p.Price,
		Stock:    p.Stock,
		IsActive: p.IsActive,
	}
}
