package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error codes the gateway returns in its envelope. PAYOUT_NOT_ENABLED is
// permanent for the merchant account; everything 5xx-shaped is transient.
const codePayoutNotEnabled = "PAYOUT_NOT_ENABLED"

// ErrPayoutNotEnabled means the merchant account cannot perform automated
// payouts; retrying will not help.
var ErrPayoutNotEnabled = errors.New("gateway account is not payout-enabled")

// TransientError wraps a network failure or 5xx response; the call is safe
// to retry.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient gateway error during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// CheckoutRequest initializes a hosted checkout for a payment reference.
type CheckoutRequest struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	TxRef       string  `json:"tx_ref"`
	PayerName   string  `json:"payer_name"`
	PayerEmail  string  `json:"payer_email"`
	CallbackURL string  `json:"callback_url"`
	ReturnURL   string  `json:"return_url"`
}

// RefundRequest pays a previously completed transaction out to a bank
// account.
type RefundRequest struct {
	TxRef           string `json:"tx_ref"`
	BankAccountName string `json:"bank_account_name"`
	BankAccountNo   string `json:"bank_account_number"`
	BankCode        string `json:"bank_code"`
}

// envelope is the gateway's uniform response wrapper.
type envelope struct {
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    struct {
		CheckoutURL string `json:"checkout_url,omitempty"`
	} `json:"data"`
}

// Client is the payment-gateway HTTP contract consumed by the payment
// service.
type Client interface {
	InitCheckout(ctx context.Context, req CheckoutRequest) (string, error)
	Refund(ctx context.Context, req RefundRequest) error
}

// HTTPClient talks to the real gateway.
type HTTPClient struct {
	baseURL   string
	secretKey string
	hc        *http.Client
}

// NewHTTPClient creates a gateway client with a bounded request timeout.
func NewHTTPClient(baseURL, secretKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:   baseURL,
		secretKey: secretKey,
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *HTTPClient) post(ctx context.Context, op, path string, payload any) (*envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &TransientError{Op: op, Err: fmt.Errorf("gateway returned %d", resp.StatusCode)}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &TransientError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &env, nil
}

func (c *HTTPClient) InitCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	env, err := c.post(ctx, "checkout", "/v1/checkout", req)
	if err != nil {
		return "", err
	}
	if env.Status != "success" {
		return "", fmt.Errorf("checkout rejected: %s", env.Message)
	}
	return env.Data.CheckoutURL, nil
}

func (c *HTTPClient) Refund(ctx context.Context, req RefundRequest) error {
	env, err := c.post(ctx, "refund", "/v1/refunds", req)
	if err != nil {
		return err
	}
	if env.Status != "success" {
		if env.Code == codePayoutNotEnabled {
			return ErrPayoutNotEnabled
		}
		return fmt.Errorf("refund rejected: %s", env.Message)
	}
	return nil
}
