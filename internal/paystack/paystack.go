// Package paystack is the payment-gateway adapter. It speaks the hosted-page
// API (initialize -> redirect -> verify, plus an asynchronous webhook) and is
// the only place amounts cross between internal decimals and the gateway's
// integer minor units.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/apperr"
)

// Gateway is the contract the checkout and reconciliation code depends on.
// Tests substitute a fake; production uses Client.
type Gateway interface {
	Initialize(ctx context.Context, reference string, amountMinor int64, email, callbackURL string) (*InitResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
	Refund(ctx context.Context, reference string, amountMinor int64) (bool, error)
}

type InitResult struct {
	AuthorizationURL  string
	AccessCode        string
	ProviderReference string
}

// OutcomeStatus is the normalized transaction status shared by the verify
// call and the webhook payload.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailed  OutcomeStatus = "failed"
	OutcomePending OutcomeStatus = "pending"
)

type VerifyResult struct {
	Status          OutcomeStatus
	AmountMinor     int64
	PaidAt          time.Time
	Channel         string
	GatewayResponse string
	Raw             string
}

type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

// NewClientFromEnv builds the production client from PAYSTACK_SECRET_KEY and
// optional PAYSTACK_BASE_URL / PAYSTACK_TIMEOUT_SECONDS.
func NewClientFromEnv() (*Client, error) {
	secret := os.Getenv("PAYSTACK_SECRET_KEY")
	if secret == "" {
		return nil, fmt.Errorf("paystack configuration missing: PAYSTACK_SECRET_KEY not set")
	}
	baseURL := os.Getenv("PAYSTACK_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	timeout := 15 * time.Second
	if raw := os.Getenv("PAYSTACK_TIMEOUT_SECONDS"); raw != "" {
		var secs int
		if _, err := fmt.Sscanf(raw, "%d", &secs); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}
	return NewClient(secret, baseURL, timeout), nil
}

func NewClient(secretKey, baseURL string, timeout time.Duration) *Client {
	return &Client{
		secretKey: secretKey,
		baseURL:   baseURL,
		http:      &http.Client{Timeout: timeout},
	}
}

// SecretKey exposes the shared secret for webhook signature checks.
func (c *Client) SecretKey() string { return c.secretKey }

type initResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

func (c *Client) Initialize(ctx context.Context, reference string, amountMinor int64, email, callbackURL string) (*InitResult, error) {
	payload := map[string]any{
		"reference":    reference,
		"amount":       amountMinor,
		"email":        email,
		"callback_url": callbackURL,
	}
	body, err := c.post(ctx, "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}

	var resp initResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperr.Upstream("failed to parse gateway response", err)
	}
	if !resp.Status {
		return nil, apperr.Upstream("gateway rejected initialization: "+resp.Message, nil)
	}
	if resp.Data.AuthorizationURL == "" {
		return nil, apperr.Upstream("gateway returned empty authorization URL", nil)
	}
	return &InitResult{
		AuthorizationURL:  resp.Data.AuthorizationURL,
		AccessCode:        resp.Data.AccessCode,
		ProviderReference: resp.Data.Reference,
	}, nil
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status          string `json:"status"` // success, failed, abandoned, pending
		Amount          int64  `json:"amount"`
		PaidAt          string `json:"paid_at"`
		Channel         string `json:"channel"`
		GatewayResponse string `json:"gateway_response"`
	} `json:"data"`
}

func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp verifyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperr.Upstream("failed to parse gateway response", err)
	}
	if !resp.Status {
		return nil, apperr.Upstream("gateway verification rejected: "+resp.Message, nil)
	}

	result := &VerifyResult{
		AmountMinor:     resp.Data.Amount,
		Channel:         resp.Data.Channel,
		GatewayResponse: resp.Data.GatewayResponse,
		Raw:             string(body),
	}
	switch resp.Data.Status {
	case "success":
		result.Status = OutcomeSuccess
	case "failed", "abandoned", "reversed":
		result.Status = OutcomeFailed
	default:
		result.Status = OutcomePending
	}
	if resp.Data.PaidAt != "" {
		if ts, err := time.Parse(time.RFC3339, resp.Data.PaidAt); err == nil {
			result.PaidAt = ts
		}
	}
	return result, nil
}

type refundResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// Refund is best-effort: callers proceed with local refund bookkeeping even
// when the upstream call fails, and log the discrepancy for manual follow-up.
func (c *Client) Refund(ctx context.Context, reference string, amountMinor int64) (bool, error) {
	payload := map[string]any{
		"transaction": reference,
		"amount":      amountMinor,
	}
	body, err := c.post(ctx, "/refund", payload)
	if err != nil {
		return false, err
	}
	var resp refundResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, apperr.Upstream("failed to parse gateway response", err)
	}
	if !resp.Status {
		return false, apperr.Upstream("gateway declined refund: "+resp.Message, nil)
	}
	return true, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(data))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	return c.do(req)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Upstream("failed to reach payment gateway", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Upstream("failed to read gateway response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Upstream(fmt.Sprintf("gateway API error (%d): %s", resp.StatusCode, string(body)), nil)
	}
	return body, nil
}
