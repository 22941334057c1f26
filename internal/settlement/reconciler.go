package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/osandoval-dev/storefront-backend/internal/coupons"
	"github.com/osandoval-dev/storefront-backend/internal/ledger"
	"github.com/osandoval-dev/storefront-backend/internal/orders"
	"github.com/osandoval-dev/storefront-backend/pkg/db"
	"github.com/osandoval-dev/storefront-backend/pkg/db/models"
	"github.com/osandoval-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/osandoval-dev/storefront-backend/pkg/errors"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
	"github.com/osandoval-dev/storefront-backend/pkg/metrics"
)

// amountTolerance absorbs sub-cent rounding drift between the gateway's
// reported amount and the ledger. Anything past it is treated as a mismatch.
var amountTolerance = decimal.NewFromFloat(0.01)

// errCouponExhausted aborts the settlement transaction so the ledger row
// stays pending while the anomaly is parked for review.
var errCouponExhausted = errors.New("coupon usage exhausted at settlement")

// Reconciler is the single consumer both settlement producers feed. All
// idempotency and correctness rules live here, not in the webhook or poller.
type Reconciler struct {
	client  db.TxRunner
	txns    ledger.Repository
	orders  orders.Repository
	coupons coupons.Repository
	reviews ReviewRepository
	log     *logger.Logger
	metrics *metrics.SettlementMetrics
	now     func() time.Time
}

// NewReconciler wires the settlement consumer.
func NewReconciler(
	client db.TxRunner,
	txns ledger.Repository,
	ordersRepo orders.Repository,
	couponsRepo coupons.Repository,
	reviews ReviewRepository,
	log *logger.Logger,
	m *metrics.SettlementMetrics,
) *Reconciler {
	return &Reconciler{
		client:  client,
		txns:    txns,
		orders:  ordersRepo,
		coupons: couponsRepo,
		reviews: reviews,
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// Reconcile applies one gateway observation to the ledger. Outcomes other
// than Applied mutate nothing on the transaction itself; every path runs
// inside one storage transaction so the ledger, the order, and the coupon
// counter move together or not at all.
func (r *Reconciler) Reconcile(ctx context.Context, obs Observation) (enums.ReconcileOutcome, error) {
	ctx = r.log.WithInvoiceID(ctx, obs.GatewayInvoiceID)

	if obs.GatewayInvoiceID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "observation missing gateway invoice id")
	}
	if !obs.ReportedStatus.IsTerminal() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "observation status is not terminal")
	}

	var outcome enums.ReconcileOutcome
	var exhaustedTxn *models.Transaction

	err := r.client.WithTx(ctx, func(tx *gorm.DB) error {
		txns := r.txns.WithTx(tx)
		ordersRepo := r.orders.WithTx(tx)
		couponsRepo := r.coupons.WithTx(tx)
		reviews := r.reviews.WithTx(tx)

		txn, err := txns.FindByGatewayInvoiceID(ctx, obs.GatewayInvoiceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = enums.ReconcileNotFound
				return r.fileReview(ctx, reviews, enums.ReviewReasonUnknownInvoice, obs, nil)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup transaction")
		}

		if txn.Status != enums.TransactionStatusPending {
			outcome = enums.ReconcileDuplicate
			r.log.Info(ctx, "duplicate settlement observation ignored")
			return nil
		}

		if obs.ReportedAmount.Sub(txn.Amount).Abs().GreaterThan(amountTolerance) {
			outcome = enums.ReconcileRejected
			r.log.Warn(ctx, "settlement amount mismatch")
			return r.fileReview(ctx, reviews, enums.ReviewReasonAmountMismatch, obs, txn)
		}

		target := enums.TransactionStatusFailed
		if obs.ReportedStatus == enums.GatewayReportPaid {
			target = enums.TransactionStatusCompleted
		}
		if err := ledger.CheckTransition(txn.Status, target); err != nil {
			outcome = enums.ReconcileDuplicate
			return nil
		}

		moved, err := txns.UpdateStatusIfPending(ctx, txn.ID, target)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update transaction status")
		}
		if !moved {
			// A racing reconciler settled it between our read and write.
			outcome = enums.ReconcileDuplicate
			return nil
		}

		if target == enums.TransactionStatusCompleted {
			if err := r.settlePaidOrder(ctx, ordersRepo, couponsRepo, txn); err != nil {
				if errors.Is(err, errCouponExhausted) {
					exhaustedTxn = txn
				}
				return err
			}
		}

		outcome = enums.ReconcileApplied
		return nil
	})
	if err != nil {
		if errors.Is(err, errCouponExhausted) {
			return r.parkExhaustedCoupon(ctx, obs, exhaustedTxn)
		}
		return "", err
	}

	r.metrics.IncOutcome(outcome.String())
	return outcome, nil
}

// settlePaidOrder flips the owning order to paid and consumes the coupon
// slot when the order carries one. An order may hold several transactions;
// the coupon moves only on the transaction that actually flips the order,
// so a second settled payment can never consume a second slot.
func (r *Reconciler) settlePaidOrder(ctx context.Context, ordersRepo orders.Repository, couponsRepo coupons.Repository, txn *models.Transaction) error {
	moved, err := ordersRepo.MarkPaidIfPending(ctx, txn.OrderID, r.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
	}
	if !moved {
		r.log.Warn(ctx, "order already left pending, skipping coupon consumption")
		return nil
	}

	order, err := ordersRepo.FindByID(ctx, txn.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order for settlement")
	}
	if order.CouponID == nil {
		return nil
	}
	if err := couponsRepo.ConsumeUsage(ctx, *order.CouponID); err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeConflict) {
			return errCouponExhausted
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume coupon usage")
	}
	return nil
}

// parkExhaustedCoupon runs after the settlement transaction rolled back, so
// the ledger row is still pending. The review case is filed on its own
// connection and the observation reported as rejected.
func (r *Reconciler) parkExhaustedCoupon(ctx context.Context, obs Observation, txn *models.Transaction) (enums.ReconcileOutcome, error) {
	r.log.Warn(ctx, "coupon exhausted at settlement, parking for review")
	if err := r.fileReview(ctx, r.reviews, enums.ReviewReasonUsageExhausted, obs, txn); err != nil {
		return "", err
	}
	r.metrics.IncOutcome(enums.ReconcileRejected.String())
	return enums.ReconcileRejected, nil
}

// fileReview records an operator case for an observation the reconciler
// refused to apply, deduplicating per invoice and reason.
func (r *Reconciler) fileReview(ctx context.Context, reviews ReviewRepository, reason enums.ReviewReason, obs Observation, txn *models.Transaction) error {
	open, err := reviews.HasOpenCase(ctx, obs.GatewayInvoiceID, reason)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check open review cases")
	}
	if open {
		return nil
	}

	rc := &models.ReviewCase{
		Reason:           reason,
		Status:           enums.ReviewStatusOpen,
		GatewayInvoiceID: obs.GatewayInvoiceID,
		ObservedAmount:   &obs.ReportedAmount,
		ObservedStatus:   obs.ReportedStatus.String(),
	}
	if txn != nil {
		rc.TransactionID = &txn.ID
		rc.ExpectedAmount = &txn.Amount
	}
	if _, err := reviews.Create(ctx, rc); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "file review case")
	}
	return nil
}
