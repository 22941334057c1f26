package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/osandoval-dev/storefront-backend/pkg/config"
	pkgerrors "github.com/osandoval-dev/storefront-backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), config.GatewayConfig{
		BaseURL:       server.URL,
		APIKey:        "test-key",
		WebhookSecret: "test-secret",
	}, nil)
	require.NoError(t, err)
	return client
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(context.Background(), config.GatewayConfig{APIKey: "k", WebhookSecret: "s"}, nil)
	require.ErrorIs(t, err, errBaseURLRequired)

	_, err = NewClient(context.Background(), config.GatewayConfig{BaseURL: "https://x", WebhookSecret: "s"}, nil)
	require.ErrorIs(t, err, errAPIKeyRequired)

	_, err = NewClient(context.Background(), config.GatewayConfig{BaseURL: "https://x", APIKey: "k"}, nil)
	require.ErrorIs(t, err, errWebhookSecretRequired)
}

func TestCreateInvoice(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/invoices", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req CreateInvoiceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "ORD-1", req.OrderNumber)

		json.NewEncoder(w).Encode(Invoice{InvoiceID: "inv-1", InvoiceCode: "C-1", PaymentURL: "https://pay/inv-1"})
	}))

	invoice, err := client.CreateInvoice(context.Background(), CreateInvoiceRequest{
		OrderNumber: "ORD-1",
		Amount:      decimal.RequireFromString("90.00"),
		Currency:    "USD",
	})
	require.NoError(t, err)
	require.Equal(t, "inv-1", invoice.InvoiceID)
	require.Equal(t, "https://pay/inv-1", invoice.PaymentURL)
}

func TestLookupInvoice(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/invoices/inv-7", r.URL.Path)
		json.NewEncoder(w).Encode(InvoiceStatus{InvoiceID: "inv-7", Amount: decimal.RequireFromString("42.50"), Status: "PAID"})
	}))

	status, err := client.LookupInvoice(context.Background(), "inv-7")
	require.NoError(t, err)
	require.Equal(t, "PAID", status.Status)
	require.True(t, status.Amount.Equal(decimal.RequireFromString("42.50")))
}

func TestLookupInvoiceMapsErrors(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/invoices/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))

	_, err := client.LookupInvoice(context.Background(), "missing")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = client.LookupInvoice(context.Background(), "flaky")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
}
