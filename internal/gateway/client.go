// Package gateway is the outbound client for the payment gateway's REST API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"payment-relay/internal/config"
)

const defaultTimeoutMs = 5_000

// Fetcher is the read side the reconciliation engine depends on.
type Fetcher interface {
	FetchPayment(ctx context.Context, id string) (*PaymentRecord, error)
}

type Client struct {
	client      *http.Client
	baseURL     string
	accessToken string
}

func NewClient(cfg config.Gateway) *Client {
	timeoutMs := cfg.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = defaultTimeoutMs
	}

	return &Client{
		client:      &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
	}
}

func (c *Client) FetchPayment(ctx context.Context, id string) (*PaymentRecord, error) {
	url := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating fetch payment request")
	}
	c.setHeaders(req, "")

	return c.do(req)
}

// CreatePayment posts a new payment. The idempotency key guarantees a retried
// call does not create a duplicate charge on the gateway side.
func (c *Client) CreatePayment(ctx context.Context, request *PaymentRequest, idempotencyKey string) (*PaymentRecord, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling payment request")
	}

	url := fmt.Sprintf("%s/v1/payments", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "creating create payment request")
	}
	c.setHeaders(req, idempotencyKey)

	return c.do(req)
}

func (c *Client) setHeaders(req *http.Request, idempotencyKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}
}

func (c *Client) do(req *http.Request) (*PaymentRecord, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calling payment gateway")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading gateway response")
	}

	if resp.StatusCode >= 400 {
		return nil, errors.Errorf("gateway error response: %s: %s", resp.Status, respBody)
	}

	var record PaymentRecord
	if err := json.Unmarshal(respBody, &record); err != nil {
		return nil, errors.Wrap(err, "unmarshalling payment record")
	}

	return &record, nil
}
