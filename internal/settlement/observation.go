package settlement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/osandoval-dev/storefront-backend/pkg/enums"
)

// Observation is the normalized shape both settlement producers emit. The
// webhook and the poller differ only in how they obtain one; the reconciler
// treats them identically.
type Observation struct {
	GatewayInvoiceID string
	ReportedAmount   decimal.Decimal
	ReportedStatus   enums.GatewayReport
	RawTransactionID string
	ObservedAt       time.Time
}
