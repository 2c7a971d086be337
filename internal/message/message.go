package message

import (
	"net/http"

	"github.com/google/uuid"
)

type WebhookAction string

const (
	ActionPaymentCreated  WebhookAction = "payment.created"
	ActionPaymentUpdated  WebhookAction = "payment.updated"
	ActionPaymentRefunded WebhookAction = "payment.refunded"
)

// WebhookBody is the JSON shape the gateway posts to the webhook endpoint.
type WebhookBody struct {
	Action string      `json:"action"`
	Data   WebhookData `json:"data"`
}

type WebhookData struct {
	ID string `json:"id"`
}

// WebhookEvent is the verified, immutable form of one webhook delivery. It is
// built once per inbound request and discarded after processing.
type WebhookEvent struct {
	Action    WebhookAction
	PaymentID string
	Header    http.Header
	RawBody   []byte
}

// WebhookResponse is the in-band envelope returned for every webhook
// delivery. The HTTP status is always 200; failures are reported here.
type WebhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// StreamEvent is one SSE data line pushed to a waiting storefront client.
type StreamEvent struct {
	Status string `json:"status"`
}

// CapturedEvent is the audit record published to Kafka after an order
// payment is captured.
type CapturedEvent struct {
	ID        uuid.UUID `json:"id"`
	PaymentID string    `json:"paymentId"`
	CartID    string    `json:"cartId"`
	OrderID   uuid.UUID `json:"orderId"`
	Status    string    `json:"status"`
}
