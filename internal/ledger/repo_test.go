package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/osandoval-dev/storefront-backend/pkg/db/models"
	"github.com/osandoval-dev/storefront-backend/pkg/enums"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	// one connection keeps the in-memory DB alive and serializes writers
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	transactions := `
CREATE TABLE IF NOT EXISTS transactions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id INTEGER NOT NULL,
  amount NUMERIC NOT NULL,
  payment_method TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  transaction_date DATETIME NOT NULL,
  transaction_reference TEXT,
  gateway_invoice_id TEXT UNIQUE,
  payment_url TEXT,
  is_refunded INTEGER NOT NULL DEFAULT 0,
  refund_amount NUMERIC,
  refund_date DATETIME,
  refund_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(transactions).Error)
	return db
}

func createTxn(t *testing.T, db *gorm.DB, invoiceID string, created time.Time) *models.Transaction {
	t.Helper()

	txn := &models.Transaction{
		OrderID:         1,
		Amount:          decimal.NewFromInt(100),
		PaymentMethod:   enums.PaymentMethodCard,
		Status:          enums.TransactionStatusPending,
		TransactionDate: created,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
	if invoiceID != "" {
		txn.GatewayInvoiceID = &invoiceID
	}
	require.NoError(t, db.Create(txn).Error)
	return txn
}

func TestRepositoryFindByGatewayInvoiceID(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created := createTxn(t, db, "inv-100", time.Now().UTC())

	found, err := repo.FindByGatewayInvoiceID(ctx, "inv-100")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.FindByGatewayInvoiceID(ctx, "inv-missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryFindPendingBefore(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	old := createTxn(t, db, "inv-old", now.Add(-2*time.Hour))
	older := createTxn(t, db, "inv-older", now.Add(-3*time.Hour))
	createTxn(t, db, "inv-fresh", now)
	createTxn(t, db, "", now.Add(-2*time.Hour)) // no invoice yet, not sweepable

	settled := createTxn(t, db, "inv-done", now.Add(-2*time.Hour))
	require.NoError(t, db.Model(settled).Update("status", enums.TransactionStatusCompleted).Error)

	pending, err := repo.FindPendingBefore(ctx, now.Add(-time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, older.ID, pending[0].ID)
	assert.Equal(t, old.ID, pending[1].ID)
}

func TestRepositoryFindPendingBefore_limit(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	createTxn(t, db, "inv-1", now.Add(-3*time.Hour))
	createTxn(t, db, "inv-2", now.Add(-2*time.Hour))

	pending, err := repo.FindPendingBefore(ctx, now, 1)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestRepositoryUpdateStatusIfPending(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	txn := createTxn(t, db, "inv-200", time.Now().UTC())

	moved, err := repo.UpdateStatusIfPending(ctx, txn.ID, enums.TransactionStatusCompleted)
	require.NoError(t, err)
	assert.True(t, moved)

	// second attempt sees a settled row
	moved, err = repo.UpdateStatusIfPending(ctx, txn.ID, enums.TransactionStatusFailed)
	require.NoError(t, err)
	assert.False(t, moved)

	reloaded, err := repo.FindByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusCompleted, reloaded.Status)
}

func TestRepositorySetInvoiceDetails(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	txn := createTxn(t, db, "", time.Now().UTC())
	require.NoError(t, repo.SetInvoiceDetails(ctx, txn.ID, "ref-1", "inv-300", "https://pay.example/inv-300"))

	reloaded, err := repo.FindByID(ctx, txn.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.GatewayInvoiceID)
	assert.Equal(t, "inv-300", *reloaded.GatewayInvoiceID)
	require.NotNil(t, reloaded.PaymentURL)
	assert.Equal(t, "https://pay.example/inv-300", *reloaded.PaymentURL)
}

func TestRepositoryApplyRefund(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	txn := createTxn(t, db, "inv-400", time.Now().UTC())
	_, err := repo.UpdateStatusIfPending(ctx, txn.ID, enums.TransactionStatusCompleted)
	require.NoError(t, err)

	at := time.Now().UTC()
	require.NoError(t, repo.ApplyRefund(ctx, txn.ID, decimal.NewFromInt(40), "damaged item", at))

	reloaded, err := repo.FindByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusRefunded, reloaded.Status)
	assert.True(t, reloaded.IsRefunded)
	require.NotNil(t, reloaded.RefundAmount)
	assert.True(t, reloaded.RefundAmount.Equal(decimal.NewFromInt(40)))
	require.NotNil(t, reloaded.RefundReason)
	assert.Equal(t, "damaged item", *reloaded.RefundReason)
}
