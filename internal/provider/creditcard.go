package provider

import (
	"context"

	"github.com/pkg/errors"
	"payment-relay/internal/commerce"
	"payment-relay/internal/gateway"
	"payment-relay/internal/status"
)

// CreditCard authorization settles synchronously: the gateway answers with a
// terminal-ish status right away, so the result is whatever the gateway says.
type CreditCard struct {
	creator    Creator
	webhookURL string
}

func NewCreditCard(creator Creator, webhookURL string) *CreditCard {
	return &CreditCard{creator: creator, webhookURL: webhookURL}
}

func (c *CreditCard) ID() string {
	return CreditCardKey
}

func (c *CreditCard) Authorize(ctx context.Context, cart *commerce.Cart, form FormData, _ AuthorizeContext) (*Result, error) {
	installments := form.Installments
	issuerID := form.IssuerID

	request := paymentFromCart(cart, c.webhookURL)
	request.Token = form.Token
	request.Installments = &installments
	request.IssuerID = &issuerID
	request.Description = "CreditCard Payment"
	request.PaymentMethodID = form.PaymentMethodID
	request.Payer.Identification = &gateway.Identification{
		Number: digitsOnly(form.CPFCNPJ),
		Type:   form.IdentificationType,
	}

	record, err := c.creator.CreatePayment(ctx, request, idempotencyKey(cart))
	if err != nil {
		return nil, errors.Wrap(err, "creating credit card payment")
	}

	result := &Result{
		Status:    status.FromRecord(record.Status),
		PaymentID: record.ID,
	}
	if record.Status != nil {
		result.GatewayStatus = *record.Status
	}
	return result, nil
}
