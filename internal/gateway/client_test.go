package gateway

import (
	"context"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"payment-relay/internal/config"
)

func newTestClient() *Client {
	return NewClient(config.Gateway{
		BaseURL:     "http://gateway.test",
		AccessToken: "test-token",
	})
}

func TestFetchPayment(t *testing.T) {
	defer gock.Off()

	gock.New("http://gateway.test").
		Get("/v1/payments/pay_1").
		MatchHeader("Authorization", "Bearer test-token").
		Reply(200).
		JSON(map[string]any{
			"id":                 "pay_1",
			"status":             "approved",
			"payment_method_id":  "master",
			"external_reference": "cart_1",
		})

	record, err := newTestClient().FetchPayment(context.Background(), "pay_1")

	assert.NoError(t, err)
	assert.Equal(t, "pay_1", record.ID)
	assert.Equal(t, "approved", *record.Status)
	assert.Equal(t, "cart_1", record.ExternalReference)
	assert.True(t, gock.IsDone())
}

func TestFetchPayment_GatewayError(t *testing.T) {
	defer gock.Off()

	gock.New("http://gateway.test").
		Get("/v1/payments/pay_1").
		Reply(500).
		JSON(map[string]string{"error": "internal server error"})

	record, err := newTestClient().FetchPayment(context.Background(), "pay_1")

	assert.Error(t, err)
	assert.Nil(t, record)
	assert.True(t, gock.IsDone())
}

func TestCreatePayment_SendsIdempotencyKey(t *testing.T) {
	defer gock.Off()

	gock.New("http://gateway.test").
		Post("/v1/payments").
		MatchHeader("X-Idempotency-Key", "session_1-100").
		Reply(201).
		JSON(map[string]any{
			"id":     "pay_2",
			"status": "pending",
			"point_of_interaction": map[string]any{
				"transaction_data": map[string]any{
					"qr_code": "qr-data",
				},
			},
		})

	record, err := newTestClient().CreatePayment(context.Background(), &PaymentRequest{
		PaymentMethodID:   "pix",
		ExternalReference: "cart_1",
		TransactionAmount: 100,
	}, "session_1-100")

	assert.NoError(t, err)
	assert.Equal(t, "pay_2", record.ID)
	assert.Equal(t, "qr-data", record.PointOfInteraction.TransactionData.QRCode)
	assert.True(t, gock.IsDone())
}
