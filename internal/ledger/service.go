package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/osandoval-dev/storefront-backend/pkg/db"
	"github.com/osandoval-dev/storefront-backend/pkg/db/models"
	"github.com/osandoval-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/osandoval-dev/storefront-backend/pkg/errors"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
)

// Service handles the manual paths over the transaction ledger, currently
// refunds. Settlement transitions live in the reconciler.
type Service struct {
	client db.TxRunner
	repo   Repository
	log    *logger.Logger
	now    func() time.Time
}

// NewService wires the ledger service.
func NewService(client db.TxRunner, repo Repository, log *logger.Logger) *Service {
	return &Service{
		client: client,
		repo:   repo,
		log:    log,
		now:    time.Now,
	}
}

// RefundInput is the manual refund payload.
type RefundInput struct {
	TransactionID uint            `json:"transaction_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	Reason        string          `json:"reason" validate:"required,min=3,max=500"`
}

// Refund moves a completed transaction to refunded and records the refund
// sub-record. Consumed coupons are not restored.
func (s *Service) Refund(ctx context.Context, input RefundInput) (*models.Transaction, error) {
	if input.Amount.IsNegative() || input.Amount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	var refunded *models.Transaction
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		txn, err := repo.FindByID(ctx, input.TransactionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetch transaction")
		}

		if err := CheckTransition(txn.Status, enums.TransactionStatusRefunded); err != nil {
			return err
		}
		if input.Amount.GreaterThan(txn.Amount) {
			return pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds transaction amount")
		}

		at := s.now().UTC()
		if err := repo.ApplyRefund(ctx, txn.ID, input.Amount, input.Reason, at); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply refund")
		}

		txn.Status = enums.TransactionStatusRefunded
		txn.IsRefunded = true
		txn.RefundAmount = &input.Amount
		txn.RefundReason = &input.Reason
		txn.RefundDate = &at
		refunded = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.log.WithField(ctx, "transaction_id", refunded.ID)
	s.log.Info(ctx, "transaction refunded")
	return refunded, nil
}

// Get returns a transaction by id.
func (s *Service) Get(ctx context.Context, id uint) (*models.Transaction, error) {
	txn, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetch transaction")
	}
	return txn, nil
}
