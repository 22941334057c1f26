package settlement

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/osandoval-dev/storefront-backend/pkg/db/models"
	"github.com/osandoval-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/osandoval-dev/storefront-backend/pkg/errors"
	"github.com/osandoval-dev/storefront-backend/pkg/pagination"
)

// ReviewRepository stores operator remediation cases.
type ReviewRepository interface {
	WithTx(tx *gorm.DB) ReviewRepository
	Create(ctx context.Context, rc *models.ReviewCase) (*models.ReviewCase, error)
	FindByID(ctx context.Context, id uint) (*models.ReviewCase, error)
	ListOpen(ctx context.Context, params pagination.Params) ([]models.ReviewCase, string, error)
	Resolve(ctx context.Context, id uint, resolution string, at time.Time) error
	HasOpenCase(ctx context.Context, invoiceID string, reason enums.ReviewReason) (bool, error)
}

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository builds a review case repository bound to the provided DB.
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) WithTx(tx *gorm.DB) ReviewRepository {
	if tx == nil {
		return r
	}
	return &reviewRepository{db: tx}
}

func (r *reviewRepository) Create(ctx context.Context, rc *models.ReviewCase) (*models.ReviewCase, error) {
	if err := r.db.WithContext(ctx).Create(rc).Error; err != nil {
		return nil, err
	}
	return rc, nil
}

func (r *reviewRepository) FindByID(ctx context.Context, id uint) (*models.ReviewCase, error) {
	var rc models.ReviewCase
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rc).Error
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

func (r *reviewRepository) ListOpen(ctx context.Context, params pagination.Params) ([]models.ReviewCase, string, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.ReviewStatusOpen).
		Order("created_at DESC, id DESC").
		Limit(limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var cases []models.ReviewCase
	if err := query.Find(&cases).Error; err != nil {
		return nil, "", err
	}

	pageSize := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(cases) > pageSize {
		cases = cases[:pageSize]
		last := cases[len(cases)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return cases, next, nil
}

func (r *reviewRepository) Resolve(ctx context.Context, id uint, resolution string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.ReviewCase{}).
		Where("id = ? AND status = ?", id, enums.ReviewStatusOpen).
		Updates(map[string]any{
			"status":      enums.ReviewStatusResolved,
			"resolution":  resolution,
			"resolved_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "review case is not open")
	}
	return nil
}

// HasOpenCase keeps the poller from filing the same anomaly every sweep.
func (r *reviewRepository) HasOpenCase(ctx context.Context, invoiceID string, reason enums.ReviewReason) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ReviewCase{}).
		Where("gateway_invoice_id = ? AND reason = ? AND status = ?", invoiceID, reason, enums.ReviewStatusOpen).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
