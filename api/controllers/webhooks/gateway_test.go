package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osandoval-dev/storefront-backend/internal/settlement"
	"github.com/osandoval-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/osandoval-dev/storefront-backend/pkg/errors"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
)

type stubReconciler struct {
	outcome  enums.ReconcileOutcome
	err      error
	received []settlement.Observation
}

func (s *stubReconciler) Reconcile(ctx context.Context, obs settlement.Observation) (enums.ReconcileOutcome, error) {
	s.received = append(s.received, obs)
	if s.err != nil {
		return "", s.err
	}
	return s.outcome, nil
}

type staticSecret string

func (s staticSecret) SigningSecret() string { return string(s) }

const testSecret = "whsec_test"

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func webhookRequest(t *testing.T, payload map[string]any, signature string) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/gateway", bytes.NewReader(body))
	if signature == "" {
		signature = sign(body)
	}
	if signature != "none" {
		req.Header.Set("X-Gateway-Signature", signature)
	}
	return req
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func paidPayload() map[string]any {
	return map[string]any{
		"invoice_id":         "inv_1",
		"invoice_code":       "INV-1",
		"amount":             "103",
		"status":             "PAID",
		"payment_method":     "card",
		"transaction_id":     "gw_txn_1",
		"transaction_status": "SETTLED",
	}
}

func TestGatewayWebhook_AppliedReturnsOK(t *testing.T) {
	rec := &stubReconciler{outcome: enums.ReconcileApplied}
	handler := GatewayWebhook(rec, staticSecret(testSecret), testLogger())

	w := httptest.NewRecorder()
	handler(w, webhookRequest(t, paidPayload(), ""))

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, rec.received, 1)
	obs := rec.received[0]
	assert.Equal(t, "inv_1", obs.GatewayInvoiceID)
	assert.Equal(t, enums.GatewayReportPaid, obs.ReportedStatus)
	assert.True(t, obs.ReportedAmount.Equal(decimal.NewFromInt(103)))
}

func TestGatewayWebhook_DuplicateStillSucceeds(t *testing.T) {
	rec := &stubReconciler{outcome: enums.ReconcileDuplicate}
	handler := GatewayWebhook(rec, staticSecret(testSecret), testLogger())

	w := httptest.NewRecorder()
	handler(w, webhookRequest(t, paidPayload(), ""))

	// Redelivery of an already-applied webhook is not an error.
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGatewayWebhook_NotFoundStillSucceeds(t *testing.T) {
	rec := &stubReconciler{outcome: enums.ReconcileNotFound}
	handler := GatewayWebhook(rec, staticSecret(testSecret), testLogger())

	w := httptest.NewRecorder()
	handler(w, webhookRequest(t, paidPayload(), ""))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGatewayWebhook_InternalFailureSignalsRetry(t *testing.T) {
	rec := &stubReconciler{err: pkgerrors.New(pkgerrors.CodeInternal, "db down")}
	handler := GatewayWebhook(rec, staticSecret(testSecret), testLogger())

	w := httptest.NewRecorder()
	handler(w, webhookRequest(t, paidPayload(), ""))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGatewayWebhook_BadSignatureRejected(t *testing.T) {
	rec := &stubReconciler{outcome: enums.ReconcileApplied}
	handler := GatewayWebhook(rec, staticSecret(testSecret), testLogger())

	w := httptest.NewRecorder()
	handler(w, webhookRequest(t, paidPayload(), "deadbeef"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, rec.received)
}

func TestGatewayWebhook_MissingSignatureRejected(t *testing.T) {
	rec := &stubReconciler{outcome: enums.ReconcileApplied}
	handler := GatewayWebhook(rec, staticSecret(testSecret), testLogger())

	w := httptest.NewRecorder()
	handler(w, webhookRequest(t, paidPayload(), "none"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, rec.received)
}

func TestGatewayWebhook_NonTerminalStatusIgnored(t *testing.T) {
	rec := &stubReconciler{outcome: enums.ReconcileApplied}
	handler := GatewayWebhook(rec, staticSecret(testSecret), testLogger())

	payload := paidPayload()
	payload["status"] = "AWAITING_PAYMENT"
	payload["transaction_status"] = ""

	w := httptest.NewRecorder()
	handler(w, webhookRequest(t, payload, ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, rec.received)
}
