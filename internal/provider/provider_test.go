package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"payment-relay/internal/commerce"
	"payment-relay/internal/gateway"
	"payment-relay/internal/status"
)

type fakeCreator struct {
	request *gateway.PaymentRequest
	key     string
	record  *gateway.PaymentRecord
	err     error
}

func (f *fakeCreator) CreatePayment(_ context.Context, request *gateway.PaymentRequest, idempotencyKey string) (*gateway.PaymentRecord, error) {
	f.request = request
	f.key = idempotencyKey
	return f.record, f.err
}

func testCart() *commerce.Cart {
	return &commerce.Cart{
		ID:               "cart_1",
		Email:            "buyer@example.com",
		PaymentSessionID: "session_1",
		PaymentMethodID:  PixKey,
		Amount:           2500,
	}
}

func TestPix_WebhookOriginatedAuthorizeSkipsGateway(t *testing.T) {
	creator := &fakeCreator{}
	pix := NewPix(creator, "http://relay.test/webhooks/payment")

	result, err := pix.Authorize(context.Background(), testCart(), FormData{}, AuthorizeContext{
		WebhookOriginated: true,
		PaymentID:         "pay_1",
		GatewayStatus:     "approved",
	})

	assert.NoError(t, err)
	assert.Equal(t, status.Authorized, result.Status)
	assert.Equal(t, "pay_1", result.PaymentID)
	assert.Nil(t, creator.request, "no gateway call expected")
}

func TestPix_UserInitiatedAuthorizeReturnsQRCode(t *testing.T) {
	pending := "pending"
	creator := &fakeCreator{record: &gateway.PaymentRecord{
		ID:     "pay_2",
		Status: &pending,
		PointOfInteraction: &gateway.PointOfInteraction{
			TransactionData: &gateway.TransactionData{QRCode: "qr", QRCodeBase64: "cXI="},
		},
	}}
	pix := NewPix(creator, "http://relay.test/webhooks/payment")

	result, err := pix.Authorize(context.Background(), testCart(), FormData{CPFCNPJ: "123.456.789-00"}, AuthorizeContext{})

	assert.NoError(t, err)
	assert.Equal(t, status.RequiresMore, result.Status)
	assert.Equal(t, "qr", result.QRCode)
	assert.Equal(t, "cXI=", result.QRCodeBase64)

	assert.Equal(t, "pix", creator.request.PaymentMethodID)
	assert.Equal(t, "cart_1", creator.request.ExternalReference)
	assert.Equal(t, 25.0, creator.request.TransactionAmount)
	assert.Equal(t, "12345678900", creator.request.Payer.Identification.Number)
	assert.Equal(t, "session_1-2500", creator.key)
}

func TestCreditCard_AuthorizeMapsGatewayStatus(t *testing.T) {
	approved := "approved"
	creator := &fakeCreator{record: &gateway.PaymentRecord{ID: "pay_3", Status: &approved}}
	cc := NewCreditCard(creator, "")

	result, err := cc.Authorize(context.Background(), testCart(), FormData{
		Token:           "tok_1",
		Installments:    3,
		IssuerID:        42,
		PaymentMethodID: "master",
	}, AuthorizeContext{})

	assert.NoError(t, err)
	assert.Equal(t, status.Authorized, result.Status)
	assert.Equal(t, "pay_3", result.PaymentID)
	assert.Equal(t, "tok_1", creator.request.Token)
	assert.Equal(t, 3, *creator.request.Installments)
	assert.Equal(t, 42, *creator.request.IssuerID)
}

func TestRegistry_Resolve(t *testing.T) {
	pix := NewPix(&fakeCreator{}, "")
	registry := NewRegistry(pix, NewCreditCard(&fakeCreator{}, ""))

	method, ok := registry.Resolve(PixKey)
	assert.True(t, ok)
	assert.Equal(t, pix, method)

	_, ok = registry.Resolve("boleto")
	assert.False(t, ok)
}
