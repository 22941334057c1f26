package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/osandoval-dev/storefront-backend/pkg/config"
	pkgerrors "github.com/osandoval-dev/storefront-backend/pkg/errors"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
)

var (
	errBaseURLRequired       = errors.New("gateway base url is required")
	errAPIKeyRequired        = errors.New("gateway api key is required")
	errWebhookSecretRequired = errors.New("gateway webhook secret is required")
)

// Client talks to the payment provider's invoice API with centralized auth,
// timeouts, and error mapping.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	webhookSecret string
	logger        *logger.Logger
}

// NewClient initializes the gateway wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.GatewayConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" {
		return nil, errWebhookSecretRequired
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		logger:        logg,
	}

	if logg != nil {
		logg.Info(ctx, "gateway client initialized")
	}
	return c, nil
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// CreateInvoiceRequest asks the provider to open an invoice for an order.
type CreateInvoiceRequest struct {
	OrderNumber   string          `json:"order_number"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
}

// Invoice is the provider's created-invoice response.
type Invoice struct {
	InvoiceID   string `json:"invoice_id"`
	InvoiceCode string `json:"invoice_code"`
	PaymentURL  string `json:"payment_url"`
}

// InvoiceStatus is the provider's lookup response for an existing invoice.
type InvoiceStatus struct {
	InvoiceID     string          `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	TransactionID string          `json:"transaction_id"`
}

// CreateInvoice opens an invoice with the provider.
func (c *Client) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error) {
	if req.OrderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	var invoice Invoice
	if err := c.do(ctx, http.MethodPost, "/v1/invoices", req, &invoice); err != nil {
		return nil, err
	}
	if invoice.InvoiceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway returned empty invoice id")
	}
	return &invoice, nil
}

// LookupInvoice fetches the current amount/status for an invoice.
func (c *Client) LookupInvoice(ctx context.Context, invoiceID string) (*InvoiceStatus, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id required")
	}
	var status InvoiceStatus
	if err := c.do(ctx, http.MethodGet, "/v1/invoices/"+invoiceID, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode gateway request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("gateway resource %s not found", path))
	case resp.StatusCode >= 500:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("gateway responded %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("gateway rejected request with %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway response")
	}
	return nil
}
