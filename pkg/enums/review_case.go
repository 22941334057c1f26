package enums

import "fmt"

// ReviewReason explains why a settlement observation was parked for an operator.
type ReviewReason string

const (
	ReviewReasonAmountMismatch ReviewReason = "amount_mismatch"
	ReviewReasonUnknownInvoice ReviewReason = "unknown_invoice"
	ReviewReasonUsageExhausted ReviewReason = "coupon_usage_exhausted"
)

var validReviewReasons = []ReviewReason{
	ReviewReasonAmountMismatch,
	ReviewReasonUnknownInvoice,
	ReviewReasonUsageExhausted,
}

// IsValid reports whether the value is a known ReviewReason.
func (r ReviewReason) IsValid() bool {
	for _, candidate := range validReviewReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ReviewStatus tracks whether an operator has handled a review case.
type ReviewStatus string

const (
	ReviewStatusOpen     ReviewStatus = "open"
	ReviewStatusResolved ReviewStatus = "resolved"
)

// IsValid reports whether the value is a known ReviewStatus.
func (r ReviewStatus) IsValid() bool {
	return r == ReviewStatusOpen || r == ReviewStatusResolved
}

// ParseReviewStatus converts raw input into a ReviewStatus.
func ParseReviewStatus(value string) (ReviewStatus, error) {
	switch ReviewStatus(value) {
	case ReviewStatusOpen:
		return ReviewStatusOpen, nil
	case ReviewStatusResolved:
		return ReviewStatusResolved, nil
	default:
		return "", fmt.Errorf("invalid review status %q", value)
	}
}
