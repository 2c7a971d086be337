// Package provider holds the payment method variants. Each variant only
// implements the operations it actually supports; there is no shared base
// with not-implemented stubs.
package provider

import (
	"context"
	"fmt"
	"strings"

	"payment-relay/internal/commerce"
	"payment-relay/internal/gateway"
	"payment-relay/internal/status"
)

const (
	CreditCardKey = "creditcard"
	PixKey        = "pix"
)

// Creator is the slice of the gateway client the variants need.
type Creator interface {
	CreatePayment(ctx context.Context, request *gateway.PaymentRequest, idempotencyKey string) (*gateway.PaymentRecord, error)
}

// FormData is the payment form collected by the storefront.
type FormData struct {
	Token              string `json:"token,omitempty"`
	Installments       int    `json:"installment,omitempty"`
	IssuerID           int    `json:"issuerId,omitempty"`
	CPFCNPJ            string `json:"cpfCnpj,omitempty"`
	IdentificationType string `json:"identificationType,omitempty"`
	PaymentMethodID    string `json:"paymentMethodId"`
}

// AuthorizeContext distinguishes webhook-originated authorization, where the
// gateway already holds the money, from a user-initiated one that still has
// to create the payment.
type AuthorizeContext struct {
	WebhookOriginated bool
	PaymentID         string
	GatewayStatus     string
}

type Result struct {
	Status        status.Status
	PaymentID     string
	GatewayStatus string
	QRCode        string
	QRCodeBase64  string
}

type Method interface {
	ID() string
	Authorize(ctx context.Context, cart *commerce.Cart, form FormData, actx AuthorizeContext) (*Result, error)
}

type Registry struct {
	methods map[string]Method
}

func NewRegistry(methods ...Method) *Registry {
	r := &Registry{methods: make(map[string]Method)}
	for _, m := range methods {
		r.methods[m.ID()] = m
	}
	return r
}

func (r *Registry) Resolve(id string) (Method, bool) {
	m, ok := r.methods[id]
	return m, ok
}

// paymentFromCart builds the common create-payment request. Amounts are
// stored in the smallest currency unit; the gateway wants major units.
func paymentFromCart(cart *commerce.Cart, webhookURL string) *gateway.PaymentRequest {
	return &gateway.PaymentRequest{
		ExternalReference: cart.ID,
		TransactionAmount: float64(cart.Amount) / 100,
		NotificationURL:   webhookURL,
		Payer: &gateway.Payer{
			Email: cart.Email,
		},
	}
}

// idempotencyKey ties a create-payment call to the payment session and the
// amount, so a retried call cannot double-charge.
func idempotencyKey(cart *commerce.Cart) string {
	return fmt.Sprintf("%s-%d", cart.PaymentSessionID, cart.Amount)
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r < '0' || r > '9' {
			return -1
		}
		return r
	}, s)
}
