package settlement

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/osandoval-dev/storefront-backend/pkg/db/models"
	pkgerrors "github.com/osandoval-dev/storefront-backend/pkg/errors"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
	"github.com/osandoval-dev/storefront-backend/pkg/pagination"
)

// ReviewService is the operator surface over parked settlement anomalies.
type ReviewService struct {
	repo ReviewRepository
	log  *logger.Logger
	now  func() time.Time
}

// NewReviewService wires the review queue service.
func NewReviewService(repo ReviewRepository, log *logger.Logger) *ReviewService {
	return &ReviewService{repo: repo, log: log, now: time.Now}
}

// Get returns one review case.
func (s *ReviewService) Get(ctx context.Context, id uint) (*models.ReviewCase, error) {
	rc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review case not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetch review case")
	}
	return rc, nil
}

// ListOpen pages through unresolved cases, newest first.
func (s *ReviewService) ListOpen(ctx context.Context, params pagination.Params) ([]models.ReviewCase, string, error) {
	cases, next, err := s.repo.ListOpen(ctx, params)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeValidation) {
			return nil, "", err
		}
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list review cases")
	}
	return cases, next, nil
}

// Resolve closes a case with an operator note. Resolving does not replay the
// observation; operators act on the underlying order or coupon directly.
func (s *ReviewService) Resolve(ctx context.Context, id uint, resolution string) error {
	if resolution == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "resolution note is required")
	}
	if err := s.repo.Resolve(ctx, id, resolution, s.now().UTC()); err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeStateConflict) || pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve review case")
	}
	ctx = s.log.WithField(ctx, "review_case_id", id)
	s.log.Info(ctx, "review case resolved")
	return nil
}
