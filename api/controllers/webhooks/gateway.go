package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/osandoval-dev/storefront-backend/api/responses"
	"github.com/osandoval-dev/storefront-backend/internal/settlement"
	"github.com/osandoval-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/osandoval-dev/storefront-backend/pkg/errors"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
)

const signatureHeader = "X-Gateway-Signature"

// Reconciler is the settlement consumer the webhook feeds.
type Reconciler interface {
	Reconcile(ctx context.Context, obs settlement.Observation) (enums.ReconcileOutcome, error)
}

type signingSecretSource interface {
	SigningSecret() string
}

// gatewayPayload mirrors the provider's callback body.
type gatewayPayload struct {
	InvoiceID         string          `json:"invoice_id"`
	InvoiceCode       string          `json:"invoice_code"`
	Amount            decimal.Decimal `json:"amount"`
	Status            string          `json:"status"`
	PaymentMethod     string          `json:"payment_method"`
	TransactionID     string          `json:"transaction_id"`
	SessionID         string          `json:"session_id"`
	TransactionStatus string          `json:"transaction_status"`
}

// GatewayWebhook verifies the provider signature, maps the payload to one
// settlement observation, and reconciles it synchronously. Duplicate and
// NotFound outcomes still return success so the provider's retry policy does
// not hammer an already-settled invoice.
func GatewayWebhook(reconciler Reconciler, secrets signingSecretSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if reconciler == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciler unavailable"))
			return
		}
		if secrets == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gateway client unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(signatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "gateway signature missing"))
			return
		}
		if !verifySignature(body, signature, secrets.SigningSecret()) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "gateway signature mismatch"))
			return
		}

		var payload gatewayPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload"))
			return
		}
		if payload.InvoiceID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "webhook missing invoice id"))
			return
		}

		status := payload.TransactionStatus
		if status == "" {
			status = payload.Status
		}
		report, err := enums.MapGatewayStatus(status)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unrecognized gateway status"))
			return
		}
		if !report.IsTerminal() {
			// The gateway echoes progress events; only settled states matter.
			responses.WriteSuccess(w, map[string]string{"outcome": "ignored"})
			return
		}

		outcome, err := reconciler.Reconcile(ctx, settlement.Observation{
			GatewayInvoiceID: payload.InvoiceID,
			ReportedAmount:   payload.Amount,
			ReportedStatus:   report,
			RawTransactionID: payload.TransactionID,
			ObservedAt:       time.Now().UTC(),
		})
		if err != nil {
			// Signal failure so the provider redelivers.
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			lctx := logg.WithInvoiceID(ctx, payload.InvoiceID)
			lctx = logg.WithField(lctx, "outcome", outcome.String())
			logg.Info(lctx, "gateway webhook reconciled")
		}
		responses.WriteSuccess(w, map[string]string{"outcome": outcome.String()})
	}
}

func verifySignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
