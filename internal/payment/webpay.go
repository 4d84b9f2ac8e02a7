// Package payment implements the client for the Webpay-style payment
// provider. The provider exposes a transaction resource with three
// operations: create (returns a redirect URL and token), commit
// (finalizes after the payer returns) and status. Each call is a
// synchronous request/response; failures surface as *GatewayError so
// callers can distinguish provider rejections from transport faults.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StatusAuthorized is the provider status that confirms a payment.
// Any other commit status means the payment was not authorized.
const StatusAuthorized = "AUTHORIZED"

const transactionsPath = "/rswebpaytransaction/api/webpay/v1.2/transactions"

// Credentials identify the commerce with the provider. Both values
// travel as headers on every request.
type Credentials struct {
	CommerceCode string
	APIKey       string
}

// Client is a minimal HTTP client for the provider's transaction API.
type Client struct {
	hc      *http.Client
	baseURL string
	creds   Credentials
}

// New constructs a Client against the given base URL.
func New(baseURL string, creds Credentials) *Client {
	return &Client{
		hc:      &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		creds:   creds,
	}
}

// Transaction is the provider's answer to a create call: the token
// identifying the transaction and the URL the payer must be
// redirected to.
type Transaction struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// Result is the provider's answer to commit and status calls.
type Result struct {
	Status   string `json:"status"`
	BuyOrder string `json:"buy_order"`
	Amount   uint32 `json:"amount"`
}

// GatewayError describes a failed provider call. StatusCode is zero
// when the request never reached the provider.
type GatewayError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("payment gateway %s failed: %s (status=%d)", e.Op, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("payment gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Create opens a new transaction for the given order and amount. The
// returned token must be persisted so the provider callback can be
// correlated with the payment row.
func (c *Client) Create(ctx context.Context, buyOrder, sessionID string, amountCents uint32, returnURL string) (*Transaction, error) {
	body := map[string]interface{}{
		"buy_order":  buyOrder,
		"session_id": sessionID,
		"amount":     amountCents,
		"return_url": returnURL,
	}
	var tx Transaction
	if err := c.do(ctx, "create", http.MethodPost, c.baseURL+transactionsPath, body, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Commit finalizes the transaction identified by token after the
// payer returns from the provider's checkout page.
func (c *Client) Commit(ctx context.Context, token string) (*Result, error) {
	var res Result
	if err := c.do(ctx, "commit", http.MethodPut, c.baseURL+transactionsPath+"/"+token, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Status fetches the current state of a transaction without
// finalizing it.
func (c *Client) Status(ctx context.Context, token string) (*Result, error) {
	var res Result
	if err := c.do(ctx, "status", http.MethodGet, c.baseURL+transactionsPath+"/"+token, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, op, method, url string, body interface{}, out interface{}) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &GatewayError{Op: op, Err: err}
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Tbk-Api-Key-Id", c.creds.CommerceCode)
	req.Header.Set("Tbk-Api-Key-Secret", c.creds.APIKey)
	resp, err := c.hc.Do(req)
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	if resp.StatusCode >= 400 {
		// The provider reports errors as {"error_message": "..."}.
		var msg struct {
			ErrorMessage string `json:"error_message"`
		}
		_ = json.Unmarshal(data, &msg)
		if msg.ErrorMessage == "" {
			msg.ErrorMessage = http.StatusText(resp.StatusCode)
		}
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: msg.ErrorMessage}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &GatewayError{Op: op, Err: err}
		}
	}
	return nil
}
