package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osandoval-dev/storefront-backend/pkg/db/models"
	"github.com/osandoval-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/osandoval-dev/storefront-backend/pkg/errors"
)

func TestReconcile_AppliedPaid(t *testing.T) {
	f := newSettlementFixture()
	amount := decimal.NewFromInt(103)
	order, txn := f.seedOrder("inv_1", amount, nil)

	outcome, err := f.reconciler.Reconcile(context.Background(), paidObservation("inv_1", amount))
	require.NoError(t, err)

	assert.Equal(t, enums.ReconcileApplied, outcome)
	assert.Equal(t, enums.TransactionStatusCompleted, txn.Status)
	assert.Equal(t, enums.OrderStatusPaid, order.Status)
	assert.NotNil(t, order.PaidAt)
}

func TestReconcile_AppliedFailed(t *testing.T) {
	f := newSettlementFixture()
	amount := decimal.NewFromInt(50)
	order, txn := f.seedOrder("inv_2", amount, nil)

	obs := paidObservation("inv_2", amount)
	obs.ReportedStatus = enums.GatewayReportFailed

	outcome, err := f.reconciler.Reconcile(context.Background(), obs)
	require.NoError(t, err)

	assert.Equal(t, enums.ReconcileApplied, outcome)
	assert.Equal(t, enums.TransactionStatusFailed, txn.Status)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
}

func TestReconcile_DuplicateIsNoOp(t *testing.T) {
	f := newSettlementFixture()
	amount := decimal.NewFromInt(103)
	order, txn := f.seedOrder("inv_3", amount, nil)

	first, err := f.reconciler.Reconcile(context.Background(), paidObservation("inv_3", amount))
	require.NoError(t, err)
	require.Equal(t, enums.ReconcileApplied, first)

	// The gateway redelivers the same webhook.
	second, err := f.reconciler.Reconcile(context.Background(), paidObservation("inv_3", amount))
	require.NoError(t, err)

	assert.Equal(t, enums.ReconcileDuplicate, second)
	assert.Equal(t, enums.TransactionStatusCompleted, txn.Status)
	assert.Equal(t, enums.OrderStatusPaid, order.Status)
}

func TestReconcile_NotFoundFilesReviewCase(t *testing.T) {
	f := newSettlementFixture()

	outcome, err := f.reconciler.Reconcile(context.Background(), paidObservation("inv_ghost", decimal.NewFromInt(10)))
	require.NoError(t, err)

	assert.Equal(t, enums.ReconcileNotFound, outcome)
	require.Len(t, f.reviews.cases, 1)
	assert.Equal(t, enums.ReviewReasonUnknownInvoice, f.reviews.cases[0].Reason)

	// A retry of the same unknown invoice does not pile up cases.
	_, err = f.reconciler.Reconcile(context.Background(), paidObservation("inv_ghost", decimal.NewFromInt(10)))
	require.NoError(t, err)
	assert.Len(t, f.reviews.cases, 1)
}

func TestReconcile_AmountMismatchRejected(t *testing.T) {
	f := newSettlementFixture()
	amount := decimal.NewFromInt(103)
	order, txn := f.seedOrder("inv_4", amount, nil)

	outcome, err := f.reconciler.Reconcile(context.Background(), paidObservation("inv_4", decimal.NewFromInt(99)))
	require.NoError(t, err)

	assert.Equal(t, enums.ReconcileRejected, outcome)
	// The ledger stays pending for manual review.
	assert.Equal(t, enums.TransactionStatusPending, txn.Status)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	require.Len(t, f.reviews.cases, 1)
	assert.Equal(t, enums.ReviewReasonAmountMismatch, f.reviews.cases[0].Reason)
	require.NotNil(t, f.reviews.cases[0].ExpectedAmount)
	assert.True(t, f.reviews.cases[0].ExpectedAmount.Equal(amount))
}

func TestReconcile_SubCentDriftAccepted(t *testing.T) {
	f := newSettlementFixture()
	amount := decimal.NewFromFloat(103.00)
	_, txn := f.seedOrder("inv_5", amount, nil)

	outcome, err := f.reconciler.Reconcile(context.Background(), paidObservation("inv_5", decimal.NewFromFloat(103.01)))
	require.NoError(t, err)

	assert.Equal(t, enums.ReconcileApplied, outcome)
	assert.Equal(t, enums.TransactionStatusCompleted, txn.Status)
}

func TestReconcile_CouponConsumedAtSettlement(t *testing.T) {
	f := newSettlementFixture()
	limit := 5
	couponID := uint(7)
	f.coupons.coupons[couponID] = couponWithLimit(couponID, limit, 0)
	amount := decimal.NewFromInt(90)
	_, txn := f.seedOrder("inv_6", amount, &couponID)

	outcome, err := f.reconciler.Reconcile(context.Background(), paidObservation("inv_6", amount))
	require.NoError(t, err)

	assert.Equal(t, enums.ReconcileApplied, outcome)
	assert.Equal(t, enums.TransactionStatusCompleted, txn.Status)
	assert.Equal(t, 1, f.coupons.coupons[couponID].UsedCount)
}

func TestReconcile_CouponConsumedOncePerOrder(t *testing.T) {
	f := newSettlementFixture()
	limit := 5
	couponID := uint(9)
	f.coupons.coupons[couponID] = couponWithLimit(couponID, limit, 0)
	amount := decimal.NewFromInt(90)
	order, first := f.seedOrder("inv_a", amount, &couponID)

	// A payment retry leaves a second pending transaction on the same order.
	retryInvoice := "inv_b"
	second := &models.Transaction{
		ID:               first.ID + 100,
		OrderID:          order.ID,
		Amount:           amount,
		Status:           enums.TransactionStatusPending,
		GatewayInvoiceID: &retryInvoice,
		CreatedAt:        time.Now().Add(-time.Hour),
	}
	f.txns.txns[retryInvoice] = second

	outcome, err := f.reconciler.Reconcile(context.Background(), paidObservation("inv_a", amount))
	require.NoError(t, err)
	require.Equal(t, enums.ReconcileApplied, outcome)

	outcome, err = f.reconciler.Reconcile(context.Background(), paidObservation("inv_b", amount))
	require.NoError(t, err)
	require.Equal(t, enums.ReconcileApplied, outcome)

	assert.Equal(t, enums.TransactionStatusCompleted, first.Status)
	assert.Equal(t, enums.TransactionStatusCompleted, second.Status)
	assert.Equal(t, enums.OrderStatusPaid, order.Status)
	assert.Equal(t, 1, f.coupons.coupons[couponID].UsedCount)
}

func TestReconcile_CouponExhaustedParksForReview(t *testing.T) {
	f := newSettlementFixture()
	limit := 1
	couponID := uint(8)
	f.coupons.coupons[couponID] = couponWithLimit(couponID, limit, 1)
	amount := decimal.NewFromInt(90)
	f.seedOrder("inv_7", amount, &couponID)

	outcome, err := f.reconciler.Reconcile(context.Background(), paidObservation("inv_7", amount))
	require.NoError(t, err)

	assert.Equal(t, enums.ReconcileRejected, outcome)
	assert.Equal(t, 1, f.coupons.coupons[couponID].UsedCount)
	require.Len(t, f.reviews.cases, 1)
	assert.Equal(t, enums.ReviewReasonUsageExhausted, f.reviews.cases[0].Reason)
}

func TestReconcile_NonTerminalObservationRejected(t *testing.T) {
	f := newSettlementFixture()
	obs := paidObservation("inv_8", decimal.NewFromInt(10))
	obs.ReportedStatus = enums.GatewayReportPending

	_, err := f.reconciler.Reconcile(context.Background(), obs)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestReconcile_MissingInvoiceID(t *testing.T) {
	f := newSettlementFixture()
	obs := paidObservation("", decimal.NewFromInt(10))

	_, err := f.reconciler.Reconcile(context.Background(), obs)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
