package orders

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/osandoval-dev/storefront-backend/pkg/config"
)

// Quoter resolves shipping and tax for a given order subtotal.
type Quoter interface {
	Quote(ctx context.Context, subtotal decimal.Decimal) (shipping, tax decimal.Decimal, err error)
}

// FlatQuoter charges a flat shipping fee and a proportional tax rate.
type FlatQuoter struct {
	shipping decimal.Decimal
	taxRate  decimal.Decimal
}

// NewFlatQuoter parses the configured pricing inputs.
func NewFlatQuoter(cfg config.PricingConfig) (*FlatQuoter, error) {
	shipping, err := decimal.NewFromString(cfg.FlatShipping)
	if err != nil {
		return nil, fmt.Errorf("parsing flat shipping %q: %w", cfg.FlatShipping, err)
	}
	taxRate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("parsing tax rate %q: %w", cfg.TaxRate, err)
	}
	if shipping.IsNegative() || taxRate.IsNegative() {
		return nil, fmt.Errorf("pricing inputs must not be negative")
	}
	return &FlatQuoter{shipping: shipping, taxRate: taxRate}, nil
}

// Quote implements Quoter.
func (q *FlatQuoter) Quote(_ context.Context, subtotal decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	tax := subtotal.Mul(q.taxRate).Round(2)
	return q.shipping, tax, nil
}
