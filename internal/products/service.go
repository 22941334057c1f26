package products

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/osandoval-dev/storefront-backend/pkg/db/models"
	pkgerrors "github.com/osandoval-dev/storefront-backend/pkg/errors"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
	"github.com/osandoval-dev/storefront-backend/pkg/pagination"
)

// Service exposes catalog reads and admin product creation.
type Service struct {
	repo Repository
	log  *logger.Logger
}

// NewService wires the product service.
func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// CreateProductInput is the admin creation payload.
type CreateProductInput struct {
	Name     string          `json:"name" validate:"required,min=1,max=255"`
	ImageURL string          `json:"image_url" validate:"omitempty,url"`
	Price    decimal.Decimal `json:"price" validate:"required"`
	Stock    int             `json:"stock" validate:"gte=0"`
}

// Create persists a new catalog product.
func (s *Service) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if input.Price.IsNegative() || input.Price.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}

	product := &models.Product{
		Name:     input.Name,
		ImageURL: input.ImageURL,
		Price:    input.Price,
		Stock:    input.Stock,
		IsActive: true,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	return created, nil
}

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetch product")
	}
	return product, nil
}

// List returns a page of active products with a next cursor.
func (s *Service) List(ctx context.Context, params pagination.Params) ([]models.Product, string, error) {
	products, next, err := s.repo.List(ctx, params)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeValidation) {
			return nil, "", err
		}
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return products, next, nil
}
