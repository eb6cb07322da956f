package chapa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

const (
	opInitialize = "initialize"
	opVerify     = "verify"

	maxResponseBytes = 1 << 20
)

type Config struct {
	BaseURL        string
	SecretKey      string
	RequestTimeout time.Duration
	MaxAttempts    int
	BackoffBase    time.Duration
	BackoffFactor  float64
}

// Observer receives per-attempt telemetry. *metrics.PaymentMetrics satisfies it.
type Observer interface {
	ObserveGatewayCall(operation, outcome string, d time.Duration)
	ObserveGatewayRetry(operation string)
}

// Client talks to a Chapa-compatible hosted checkout API.
type Client struct {
	baseURL   string
	secretKey string
	hc        *http.Client
	retry     retryPolicy
	observer  Observer
}

func NewClient(cfg Config, observer Observer) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		hc:        &http.Client{Timeout: timeout},
		retry: retryPolicy{
			maxAttempts: cfg.MaxAttempts,
			base:        cfg.BackoffBase,
			factor:      cfg.BackoffFactor,
		},
		observer: observer,
	}
}

func (c *Client) Initialize(ctx context.Context, req domain.InitializeRequest) (*domain.InitializeResult, error) {
	payload := initializeRequest{
		Amount:      req.Amount.StringFixed(2),
		Currency:    req.Currency,
		Email:       req.Payer.Email,
		FirstName:   req.Payer.FirstName,
		LastName:    req.Payer.LastName,
		PhoneNumber: req.Payer.Phone,
		TxRef:       req.Reference,
		CallbackURL: req.CallbackURL,
		ReturnURL:   req.ReturnURL,
	}
	if req.Title != "" || req.Description != "" {
		payload.Customization = &customization{Title: req.Title, Description: req.Description}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal initialize request: %w", err)
	}

	raw, err := c.withRetry(ctx, opInitialize, func(ctx context.Context) ([]byte, error) {
		return c.do(ctx, opInitialize, http.MethodPost, "/v1/transaction/initialize", body)
	})
	if err != nil {
		return nil, err
	}

	var resp initializeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed initialize response: %v", domain.ErrGatewayError, err)
	}
	if resp.Data == nil || resp.Data.CheckoutURL == "" {
		return nil, fmt.Errorf("%w: initialize response has no checkout_url (status %q: %s)",
			domain.ErrGatewayError, resp.Status, messageText(resp.Message))
	}

	return &domain.InitializeResult{
		CheckoutURL: resp.Data.CheckoutURL,
		Raw:         json.RawMessage(raw),
	}, nil
}

func (c *Client) Verify(ctx context.Context, reference string) (*domain.VerifyResult, error) {
	path := "/v1/transaction/verify/" + url.PathEscape(reference)

	raw, err := c.withRetry(ctx, opVerify, func(ctx context.Context) ([]byte, error) {
		return c.do(ctx, opVerify, http.MethodGet, path, nil)
	})
	if err != nil {
		return nil, err
	}

	var resp verifyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed verify response: %v", domain.ErrGatewayError, err)
	}

	result := &domain.VerifyResult{
		Status: domain.RemoteStatusUnknown,
		Raw:    json.RawMessage(raw),
	}
	if resp.Data != nil {
		result.Status = mapRemoteStatus(resp.Data.Status)
		result.Currency = resp.Data.Currency
		if resp.Data.Amount.Valid {
			result.Amount = resp.Data.Amount.Decimal
		}
	}
	return result, nil
}

// do performs a single HTTP attempt and classifies its failure.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.observe(op, "unavailable", start)
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrGatewayUnavailable, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.observe(op, "unavailable", start)
		return nil, fmt.Errorf("%w: %s: read body: %v", domain.ErrGatewayUnavailable, op, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		c.observe(op, "ok", start)
		return raw, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		c.observe(op, "rejected", start)
		return nil, fmt.Errorf("%w: %s: status %d: %s", domain.ErrGatewayRejected, op, resp.StatusCode, errorText(raw))
	default:
		c.observe(op, "error", start)
		return nil, fmt.Errorf("%w: %s: status %d: %s", domain.ErrGatewayError, op, resp.StatusCode, errorText(raw))
	}
}

func (c *Client) observe(op, outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveGatewayCall(op, outcome, time.Since(start))
	}
}

func mapRemoteStatus(status string) domain.RemoteStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "successful":
		return domain.RemoteStatusSuccess
	case "failed", "failure", "cancelled", "canceled":
		return domain.RemoteStatusFailed
	case "pending":
		return domain.RemoteStatusPending
	default:
		return domain.RemoteStatusUnknown
	}
}

func errorText(raw []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(raw, &resp); err == nil && len(resp.Message) > 0 {
		return messageText(resp.Message)
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 256 {
		text = text[:256]
	}
	return text
}

func messageText(msg json.RawMessage) string {
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return s
	}
	return string(msg)
}
