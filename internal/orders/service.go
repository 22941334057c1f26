package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/osandoval-dev/storefront-backend/internal/coupons"
	"github.com/osandoval-dev/storefront-backend/internal/ledger"
	"github.com/osandoval-dev/storefront-backend/internal/products"
	"github.com/osandoval-dev/storefront-backend/pkg/db"
	"github.com/osandoval-dev/storefront-backend/pkg/db/models"
	"github.com/osandoval-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/osandoval-dev/storefront-backend/pkg/errors"
	"github.com/osandoval-dev/storefront-backend/pkg/gateway"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
	"github.com/osandoval-dev/storefront-backend/pkg/pagination"
)

// CouponValidator is the slice of the coupon service checkout needs.
type CouponValidator interface {
	Validate(ctx context.Context, code string, orderAmount decimal.Decimal, userID *uuid.UUID) (*coupons.ValidationResult, error)
}

// InvoiceCreator is the slice of the gateway client checkout needs.
type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, req gateway.CreateInvoiceRequest) (*gateway.Invoice, error)
}

// Service builds order aggregates and drives checkout.
type Service struct {
	client     db.TxRunner
	repo       Repository
	productsRP products.Repository
	txns       ledger.Repository
	validator  CouponValidator
	quoter     Quoter
	invoices   InvoiceCreator
	log        *logger.Logger
	now        func() time.Time
}

// NewService wires the order service.
func NewService(
	client db.TxRunner,
	repo Repository,
	productsRepo products.Repository,
	txns ledger.Repository,
	validator CouponValidator,
	quoter Quoter,
	invoices InvoiceCreator,
	log *logger.Logger,
) *Service {
	return &Service{
		client:     client,
		repo:       repo,
		productsRP: productsRepo,
		txns:       txns,
		validator:  validator,
		quoter:     quoter,
		invoices:   invoices,
		log:        log,
		now:        time.Now,
	}
}

// CreateOrder validates the cart, snapshots products, applies the coupon
// server side, and persists order, items, address, and a pending transaction
// in one storage transaction. The gateway invoice is opened after commit so a
// provider outage cannot roll back a locally consistent order.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
	}
	paymentMethod, err := enums.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}

	var order *models.Order
	var pendingTxn *models.Transaction

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.repo.WithTx(tx)
		productRepo := s.productsRP.WithTx(tx)
		txnRepo := s.txns.WithTx(tx)

		items, subtotal, err := s.snapshotItems(ctx, productRepo, input.Items)
		if err != nil {
			return err
		}

		shipping, tax, err := s.quoter.Quote(ctx, subtotal)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "quote shipping and tax")
		}

		var discount *decimal.Decimal
		var couponID *uint
		if input.CouponCode != nil && *input.CouponCode != "" {
			result, err := s.validator.Validate(ctx, *input.CouponCode, subtotal, input.AppUserID)
			if err != nil {
				return err
			}
			if !result.Valid {
				return pkgerrors.New(pkgerrors.CodeValidation, "coupon rejected: "+result.Reason)
			}
			discount = &result.DiscountAmount
			couponID = &result.Coupon.ID
		}

		total := subtotal.Add(shipping).Add(tax)
		if discount != nil {
			total = total.Sub(*discount)
		}
		if total.IsNegative() {
			total = decimal.Zero
		}

		order = &models.Order{
			OrderNumber: s.newOrderNumber(),
			Status:      enums.OrderStatusPending,
			Subtotal:    subtotal,
			Shipping:    shipping,
			Tax:         tax,
			Discount:    discount,
			Total:       total,
			CouponID:    couponID,
			AppUserID:   input.AppUserID,
			Items:       items,
			ShippingAddress: &models.ShippingAddress{
				Recipient:  input.ShippingAddress.Recipient,
				Line1:      input.ShippingAddress.Line1,
				Line2:      input.ShippingAddress.Line2,
				City:       input.ShippingAddress.City,
				State:      input.ShippingAddress.State,
				PostalCode: input.ShippingAddress.PostalCode,
				Country:    input.ShippingAddress.Country,
				Phone:      input.ShippingAddress.Phone,
			},
		}
		if _, err := orderRepo.Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number collision")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
		}

		pendingTxn = &models.Transaction{
			OrderID:         order.ID,
			Amount:          total,
			PaymentMethod:   paymentMethod,
			Status:          enums.TransactionStatusPending,
			TransactionDate: s.now().UTC(),
		}
		if _, err := txnRepo.Create(ctx, pendingTxn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist transaction")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.log.WithOrderNumber(ctx, order.OrderNumber)
	s.log.Info(ctx, "order created")

	if err := s.openInvoice(ctx, order, pendingTxn, paymentMethod); err != nil {
		return nil, err
	}

	order.Transactions = []models.Transaction{*pendingTxn}
	return order, nil
}

// snapshotItems resolves products, checks availability, reserves stock, and
// produces the immutable item snapshots plus their subtotal.
func (s *Service) snapshotItems(ctx context.Context, repo products.Repository, inputs []OrderItemInput) ([]models.OrderItem, decimal.Decimal, error) {
	ids := make([]uint, 0, len(inputs))
	for _, item := range inputs {
		ids = append(ids, item.ProductID)
	}
	found, err := repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetch products")
	}
	byID := make(map[uint]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	items := make([]models.OrderItem, 0, len(inputs))
	subtotal := decimal.Zero
	for _, input := range inputs {
		product, ok := byID[input.ProductID]
		if !ok {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %d not found", input.ProductID))
		}
		if !product.IsActive {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %d is not available", input.ProductID))
		}
		if product.Stock < input.Quantity {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %d is out of stock", input.ProductID))
		}
		if err := repo.DecrementStock(ctx, product.ID, input.Quantity); err != nil {
			return nil, decimal.Zero, err
		}

		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(input.Quantity)))
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			ImageURL:  product.ImageURL,
			UnitPrice: product.Price,
			Quantity:  input.Quantity,
			LineTotal: lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	return items, subtotal, nil
}

// openInvoice registers the order with the payment provider and stores the
// correlation fields on the pending transaction.
func (s *Service) openInvoice(ctx context.Context, order *models.Order, txn *models.Transaction, method enums.PaymentMethod) error {
	invoice, err := s.invoices.CreateInvoice(ctx, gateway.CreateInvoiceRequest{
		OrderNumber:   order.OrderNumber,
		Amount:        order.Total,
		Currency:      "USD",
		PaymentMethod: method.String(),
	})
	if err != nil {
		s.log.Error(ctx, "gateway invoice creation failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open gateway invoice")
	}

	if err := s.txns.SetInvoiceDetails(ctx, txn.ID, invoice.InvoiceCode, invoice.InvoiceID, invoice.PaymentURL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store invoice details")
	}
	txn.TransactionReference = &invoice.InvoiceCode
	txn.GatewayInvoiceID = &invoice.InvoiceID
	txn.PaymentURL = &invoice.PaymentURL

	ctx = s.log.WithInvoiceID(ctx, invoice.InvoiceID)
	s.log.Info(ctx, "gateway invoice opened")
	return nil
}

// newOrderNumber builds a unique human-readable order number.
func (s *Service) newOrderNumber() string {
	entropy := make([]byte, 4)
	_, _ = rand.Read(entropy)
	return fmt.Sprintf("ORD-%s-%s", s.now().UTC().Format("20060102"), hex.EncodeToString(entropy))
}

// Get returns an order with its items, address, and transactions.
func (s *Service) Get(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetch order")
	}
	return order, nil
}

// GetByOrderNumber returns an order by its human-readable number.
func (s *Service) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	order, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetch order")
	}
	return order, nil
}

// fulfillmentTransitions are the operator moves over an order. The
// settlement path owns pending to paid; everything downstream is manual.
var fulfillmentTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {enums.OrderStatusCancelled},
	enums.OrderStatusPaid:    {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped: {enums.OrderStatusCompleted},
}

// UpdateStatus applies a manual fulfillment transition to an order.
func (s *Service) UpdateStatus(ctx context.Context, id uint, to enums.OrderStatus) (*models.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, next := range fulfillmentTransitions[order.Status] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			"illegal order transition from "+order.Status.String()+" to "+to.String())
	}

	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	order.Status = to

	ctx = s.log.WithField(ctx, "order_number", order.OrderNumber)
	s.log.Info(ctx, "order status updated to "+to.String())
	return order, nil
}

// List returns a page of orders, optionally scoped to one user.
func (s *Service) List(ctx context.Context, userID *uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	orders, next, err := s.repo.List(ctx, userID, params)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeValidation) {
			return nil, "", err
		}
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return orders, next, nil
}
