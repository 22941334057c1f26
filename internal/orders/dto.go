package orders

import "github.com/google/uuid"

// OrderItemInput references a catalog product and quantity at checkout.
type OrderItemInput struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"required,gt=0"`
}

// ShippingAddressInput is the checkout delivery destination.
type ShippingAddressInput struct {
	Recipient  string `json:"recipient" validate:"required,min=1,max=255"`
	Line1      string `json:"line1" validate:"required,min=1,max=255"`
	Line2      string `json:"line2" validate:"max=255"`
	City       string `json:"city" validate:"required,min=1,max=128"`
	State      string `json:"state" validate:"max=128"`
	PostalCode string `json:"postal_code" validate:"required,min=2,max=32"`
	Country    string `json:"country" validate:"required,len=2"`
	Phone      string `json:"phone" validate:"max=32"`
}

// CreateOrderInput is the checkout payload. AppUserID is resolved server
// side; nil means guest checkout.
type CreateOrderInput struct {
	Items           []OrderItemInput     `json:"items" validate:"required,min=1,dive"`
	ShippingAddress ShippingAddressInput `json:"shipping_address" validate:"required"`
	PaymentMethod   string               `json:"payment_method" validate:"required,oneof=card bank_transfer wallet"`
	CouponCode      *string              `json:"coupon_code,omitempty"`

	AppUserID *uuid.UUID `json:"-"`
}
