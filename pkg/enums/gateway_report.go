package enums

import (
	"fmt"
	"strings"
)

// GatewayReport is the normalized status vocabulary the reconciler consumes.
// The raw gateway strings (webhook Status/TransactionStatus fields and the
// lookup endpoint's status) are folded into this set before they reach the
// ledger.
type GatewayReport string

const (
	GatewayReportPaid    GatewayReport = "paid"
	GatewayReportFailed  GatewayReport = "failed"
	GatewayReportPending GatewayReport = "pending"
)

var validGatewayReports = []GatewayReport{
	GatewayReportPaid,
	GatewayReportFailed,
	GatewayReportPending,
}

// String implements fmt.Stringer.
func (g GatewayReport) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GatewayReport.
func (g GatewayReport) IsValid() bool {
	for _, candidate := range validGatewayReports {
		if candidate == g {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the gateway considers the invoice settled one
// way or the other. Only terminal reports produce ledger transitions.
func (g GatewayReport) IsTerminal() bool {
	return g == GatewayReportPaid || g == GatewayReportFailed
}

// MapGatewayStatus folds a raw gateway status string into the normalized
// vocabulary. Unknown strings map to an error so producers can decide
// whether to drop or surface them.
func MapGatewayStatus(raw string) (GatewayReport, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PAID", "COMPLETED", "SETTLED", "SUCCESS":
		return GatewayReportPaid, nil
	case "FAILED", "EXPIRED", "CANCELLED", "CANCELED", "DECLINED":
		return GatewayReportFailed, nil
	case "PENDING", "OPEN", "AWAITING_PAYMENT":
		return GatewayReportPending, nil
	default:
		return "", fmt.Errorf("unrecognized gateway status %q", raw)
	}
}
