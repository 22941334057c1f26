package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/osandoval-dev/storefront-backend/pkg/db/models"
	"github.com/osandoval-dev/storefront-backend/pkg/enums"
)

// Repository is the transaction storage surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.Transaction) (*models.Transaction, error)
	FindByID(ctx context.Context, id uint) (*models.Transaction, error)
	FindByGatewayInvoiceID(ctx context.Context, invoiceID string) (*models.Transaction, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error)
	UpdateStatusIfPending(ctx context.Context, id uint, to enums.TransactionStatus) (bool, error)
	SetInvoiceDetails(ctx context.Context, id uint, reference, invoiceID, paymentURL string) error
	ApplyRefund(ctx context.Context, id uint, amount decimal.Decimal, reason string, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a transaction repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, err
	}
	return txn, nil
}

func (r *repository) FindByID(ctx context.Context, id uint) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindByGatewayInvoiceID(ctx context.Context, invoiceID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Where("gateway_invoice_id = ?", invoiceID).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// FindPendingBefore returns pending transactions created before the cutoff,
// oldest first, up to limit rows. The settlement poller sweeps these.
func (r *repository) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error) {
	var txns []models.Transaction
	query := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ? AND gateway_invoice_id IS NOT NULL", enums.TransactionStatusPending, cutoff).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

// UpdateStatusIfPending moves a transaction out of pending with a conditional
// UPDATE. Returns false when the row was already settled, which callers treat
// as a duplicate observation rather than an error.
func (r *repository) UpdateStatusIfPending(ctx context.Context, id uint, to enums.TransactionStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, enums.TransactionStatusPending).
		Updates(map[string]any{
			"status":           to,
			"transaction_date": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) SetInvoiceDetails(ctx context.Context, id uint, reference, invoiceID, paymentURL string) error {
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"transaction_reference": reference,
			"gateway_invoice_id":    invoiceID,
			"payment_url":           paymentURL,
		}).Error
}

func (r *repository) ApplyRefund(ctx context.Context, id uint, amount decimal.Decimal, reason string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.TransactionStatusRefunded,
			"is_refunded":   true,
			"refund_amount": amount,
			"refund_reason": reason,
			"refund_date":   at,
		}).Error
}
