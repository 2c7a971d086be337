package provider

import (
	"context"

	"github.com/pkg/errors"
	"payment-relay/internal/commerce"
	"payment-relay/internal/gateway"
	"payment-relay/internal/status"
)

// Pix settles asynchronously: a user-initiated authorize only creates the
// payment and hands the QR code back, and the real authorization arrives
// later through the webhook.
type Pix struct {
	creator    Creator
	webhookURL string
}

func NewPix(creator Creator, webhookURL string) *Pix {
	return &Pix{creator: creator, webhookURL: webhookURL}
}

func (p *Pix) ID() string {
	return PixKey
}

func (p *Pix) Authorize(ctx context.Context, cart *commerce.Cart, form FormData, actx AuthorizeContext) (*Result, error) {
	if actx.WebhookOriginated {
		// The gateway already confirmed the transfer; no new payment is made.
		return &Result{
			Status:        status.Authorized,
			PaymentID:     actx.PaymentID,
			GatewayStatus: actx.GatewayStatus,
		}, nil
	}

	request := paymentFromCart(cart, p.webhookURL)
	request.Description = "PIX Payment"
	request.PaymentMethodID = "pix"
	request.Payer.Identification = &gateway.Identification{
		Number: digitsOnly(form.CPFCNPJ),
		Type:   "CPF",
	}

	record, err := p.creator.CreatePayment(ctx, request, idempotencyKey(cart))
	if err != nil {
		return nil, errors.Wrap(err, "creating pix payment")
	}

	result := &Result{
		Status:    status.RequiresMore,
		PaymentID: record.ID,
	}
	if record.Status != nil {
		result.GatewayStatus = *record.Status
	}
	if record.PointOfInteraction != nil && record.PointOfInteraction.TransactionData != nil {
		result.QRCode = record.PointOfInteraction.TransactionData.QRCode
		result.QRCodeBase64 = record.PointOfInteraction.TransactionData.QRCodeBase64
	}
	return result, nil
}
