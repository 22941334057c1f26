package settlement

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/osandoval-dev/storefront-backend/internal/coupons"
	"github.com/osandoval-dev/storefront-backend/internal/ledger"
	"github.com/osandoval-dev/storefront-backend/internal/orders"
	"github.com/osandoval-dev/storefront-backend/pkg/db/models"
	"github.com/osandoval-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/osandoval-dev/storefront-backend/pkg/errors"
	"github.com/osandoval-dev/storefront-backend/pkg/gateway"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
	"github.com/osandoval-dev/storefront-backend/pkg/pagination"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type memTxnRepo struct {
	txns map[string]*models.Transaction
}

func (m *memTxnRepo) WithTx(tx *gorm.DB) ledger.Repository { return m }

func (m *memTxnRepo) Create(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	if txn.GatewayInvoiceID != nil {
		m.txns[*txn.GatewayInvoiceID] = txn
	}
	return txn, nil
}

func (m *memTxnRepo) FindByID(ctx context.Context, id uint) (*models.Transaction, error) {
	for _, t := range m.txns {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memTxnRepo) FindByGatewayInvoiceID(ctx context.Context, invoiceID string) (*models.Transaction, error) {
	if t, ok := m.txns[invoiceID]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memTxnRepo) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, t := range m.txns {
		if t.Status == enums.TransactionStatusPending && t.CreatedAt.Before(cutoff) && t.GatewayInvoiceID != nil {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memTxnRepo) UpdateStatusIfPending(ctx context.Context, id uint, to enums.TransactionStatus) (bool, error) {
	for _, t := range m.txns {
		if t.ID == id {
			if t.Status != enums.TransactionStatusPending {
				return false, nil
			}
			t.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (m *memTxnRepo) SetInvoiceDetails(ctx context.Context, id uint, reference, invoiceID, paymentURL string) error {
	return nil
}

func (m *memTxnRepo) ApplyRefund(ctx context.Context, id uint, amount decimal.Decimal, reason string, at time.Time) error {
	return nil
}

type memOrderRepo struct {
	orders map[uint]*models.Order
}

func (m *memOrderRepo) WithTx(tx *gorm.DB) orders.Repository { return m }

func (m *memOrderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	m.orders[order.ID] = order
	return order, nil
}

func (m *memOrderRepo) FindByID(ctx context.Context, id uint) (*models.Order, error) {
	if o, ok := m.orders[id]; ok {
		return o, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memOrderRepo) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m *memOrderRepo) List(ctx context.Context, userID *uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	return nil, "", nil
}

func (m *memOrderRepo) MarkPaidIfPending(ctx context.Context, id uint, at time.Time) (bool, error) {
	o, ok := m.orders[id]
	if !ok || o.Status != enums.OrderStatusPending {
		return false, nil
	}
	o.Status = enums.OrderStatusPaid
	o.PaidAt = &at
	return true, nil
}

func (m *memOrderRepo) UpdateStatus(ctx context.Context, id uint, status enums.OrderStatus) error {
	if o, ok := m.orders[id]; ok {
		o.Status = status
	}
	return nil
}

type memCouponRepo struct {
	coupons map[uint]*models.Coupon
}

func (m *memCouponRepo) WithTx(tx *gorm.DB) coupons.Repository { return m }

func (m *memCouponRepo) Create(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error) {
	m.coupons[coupon.ID] = coupon
	return coupon, nil
}

func (m *memCouponRepo) FindByID(ctx context.Context, id uint) (*models.Coupon, error) {
	if c, ok := m.coupons[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memCouponRepo) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m *memCouponRepo) List(ctx context.Context, params pagination.Params) ([]models.Coupon, string, error) {
	return nil, "", nil
}

func (m *memCouponRepo) Deactivate(ctx context.Context, id uint) error { return nil }

func (m *memCouponRepo) ConsumeUsage(ctx context.Context, id uint) error {
	c, ok := m.coupons[id]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	if limit := c.EffectiveUsageLimit(); limit != nil && c.UsedCount >= *limit {
		return pkgerrors.New(pkgerrors.CodeConflict, "coupon usage limit exhausted")
	}
	c.UsedCount++
	return nil
}

type memReviewRepo struct {
	cases []*models.ReviewCase
}

func (m *memReviewRepo) WithTx(tx *gorm.DB) ReviewRepository { return m }

func (m *memReviewRepo) Create(ctx context.Context, rc *models.ReviewCase) (*models.ReviewCase, error) {
	rc.ID = uint(len(m.cases) + 1)
	rc.CreatedAt = time.Now()
	m.cases = append(m.cases, rc)
	return rc, nil
}

func (m *memReviewRepo) FindByID(ctx context.Context, id uint) (*models.ReviewCase, error) {
	for _, rc := range m.cases {
		if rc.ID == id {
			return rc, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memReviewRepo) ListOpen(ctx context.Context, params pagination.Params) ([]models.ReviewCase, string, error) {
	var out []models.ReviewCase
	for _, rc := range m.cases {
		if rc.Status == enums.ReviewStatusOpen {
			out = append(out, *rc)
		}
	}
	return out, "", nil
}

func (m *memReviewRepo) Resolve(ctx context.Context, id uint, resolution string, at time.Time) error {
	for _, rc := range m.cases {
		if rc.ID == id {
			rc.Status = enums.ReviewStatusResolved
			rc.Resolution = &resolution
			rc.ResolvedAt = &at
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "review case not found")
}

func (m *memReviewRepo) HasOpenCase(ctx context.Context, invoiceID string, reason enums.ReviewReason) (bool, error) {
	for _, rc := range m.cases {
		if rc.GatewayInvoiceID == invoiceID && rc.Reason == reason && rc.Status == enums.ReviewStatusOpen {
			return true, nil
		}
	}
	return false, nil
}

type stubLookup struct {
	statuses map[string]*gateway.InvoiceStatus
	errs     map[string]error
}

func (s *stubLookup) LookupInvoice(ctx context.Context, invoiceID string) (*gateway.InvoiceStatus, error) {
	if err, ok := s.errs[invoiceID]; ok {
		return nil, err
	}
	if st, ok := s.statuses[invoiceID]; ok {
		return st, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
}

type settlementFixture struct {
	reconciler *Reconciler
	txns       *memTxnRepo
	orders     *memOrderRepo
	coupons    *memCouponRepo
	reviews    *memReviewRepo
}

func newSettlementFixture() *settlementFixture {
	txns := &memTxnRepo{txns: map[string]*models.Transaction{}}
	ordersRepo := &memOrderRepo{orders: map[uint]*models.Order{}}
	couponsRepo := &memCouponRepo{coupons: map[uint]*models.Coupon{}}
	reviews := &memReviewRepo{}
	log := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	reconciler := NewReconciler(fakeTxRunner{}, txns, ordersRepo, couponsRepo, reviews, log, nil)
	return &settlementFixture{
		reconciler: reconciler,
		txns:       txns,
		orders:     ordersRepo,
		coupons:    couponsRepo,
		reviews:    reviews,
	}
}

func (f *settlementFixture) seedOrder(invoiceID string, amount decimal.Decimal, couponID *uint) (*models.Order, *models.Transaction) {
	order := &models.Order{
		ID:          uint(len(f.orders.orders) + 1),
		OrderNumber: "ORD-TEST-" + invoiceID,
		Status:      enums.OrderStatusPending,
		Total:       amount,
		CouponID:    couponID,
	}
	f.orders.orders[order.ID] = order

	txn := &models.Transaction{
		ID:               uint(len(f.txns.txns) + 1),
		OrderID:          order.ID,
		Amount:           amount,
		Status:           enums.TransactionStatusPending,
		GatewayInvoiceID: &invoiceID,
		CreatedAt:        time.Now().Add(-time.Hour),
	}
	f.txns.txns[invoiceID] = txn
	return order, txn
}

func couponWithLimit(id uint, limit, used int) *models.Coupon {
	return &models.Coupon{
		ID:         id,
		Code:       "TEST",
		UsageLimit: &limit,
		UsedCount:  used,
		IsActive:   true,
	}
}

func paidObservation(invoiceID string, amount decimal.Decimal) Observation {
	return Observation{
		GatewayInvoiceID: invoiceID,
		ReportedAmount:   amount,
		ReportedStatus:   enums.GatewayReportPaid,
		RawTransactionID: "gw_txn_1",
		ObservedAt:       time.Now(),
	}
}
