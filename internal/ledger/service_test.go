package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/osandoval-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/osandoval-dev/storefront-backend/pkg/errors"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newRefundFixture(t *testing.T) (*Service, Repository, *gorm.DB) {
	t.Helper()

	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	svc := NewService(fakeTxRunner{}, repo, logger.New(logger.Options{ServiceName: "test"}))
	return svc, repo, db
}

func TestRefund_completedTransaction(t *testing.T) {
	svc, repo, db := newRefundFixture(t)
	ctx := context.Background()

	txn := createTxn(t, db, "inv-r1", time.Now().UTC())
	_, err := repo.UpdateStatusIfPending(ctx, txn.ID, enums.TransactionStatusCompleted)
	require.NoError(t, err)

	refunded, err := svc.Refund(ctx, RefundInput{
		TransactionID: txn.ID,
		Amount:        decimal.NewFromInt(60),
		Reason:        "customer request",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusRefunded, refunded.Status)
	assert.True(t, refunded.IsRefunded)

	reloaded, err := repo.FindByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusRefunded, reloaded.Status)
}

func TestRefund_pendingTransactionRejected(t *testing.T) {
	svc, _, db := newRefundFixture(t)

	txn := createTxn(t, db, "inv-r2", time.Now().UTC())

	_, err := svc.Refund(context.Background(), RefundInput{
		TransactionID: txn.ID,
		Amount:        decimal.NewFromInt(10),
		Reason:        "too early",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestRefund_amountExceedsTransaction(t *testing.T) {
	svc, repo, db := newRefundFixture(t)
	ctx := context.Background()

	txn := createTxn(t, db, "inv-r3", time.Now().UTC())
	_, err := repo.UpdateStatusIfPending(ctx, txn.ID, enums.TransactionStatusCompleted)
	require.NoError(t, err)

	_, err = svc.Refund(ctx, RefundInput{
		TransactionID: txn.ID,
		Amount:        decimal.NewFromInt(150),
		Reason:        "over refund",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestRefund_nonPositiveAmount(t *testing.T) {
	svc, _, _ := newRefundFixture(t)

	_, err := svc.Refund(context.Background(), RefundInput{
		TransactionID: 1,
		Amount:        decimal.Zero,
		Reason:        "nothing back",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestRefund_unknownTransaction(t *testing.T) {
	svc, _, _ := newRefundFixture(t)

	_, err := svc.Refund(context.Background(), RefundInput{
		TransactionID: 404,
		Amount:        decimal.NewFromInt(5),
		Reason:        "missing row",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
