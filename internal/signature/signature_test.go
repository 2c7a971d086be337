package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testSecret = "super-secret"

func signedHeader(paymentID, requestID, ts, secret string) http.Header {
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", paymentID, requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	digest := hex.EncodeToString(mac.Sum(nil))

	header := http.Header{}
	header.Set("x-signature", fmt.Sprintf("ts=%s,v1=%s", ts, digest))
	header.Set("x-request-id", requestID)
	return header
}

func TestVerify_NoSecretAlwaysSucceeds(t *testing.T) {
	assert.True(t, Verify(http.Header{}, "pay_1", ""))
	assert.True(t, Verify(nil, "", ""))
}

func TestVerify_ValidSignature(t *testing.T) {
	header := signedHeader("pay_1", "req_1", "1700000000", testSecret)

	assert.True(t, Verify(header, "pay_1", testSecret))
}

func TestVerify_Deterministic(t *testing.T) {
	header := signedHeader("pay_1", "req_1", "1700000000", testSecret)

	for i := 0; i < 3; i++ {
		assert.True(t, Verify(header, "pay_1", testSecret))
	}
}

func TestVerify_WrongDigest(t *testing.T) {
	header := signedHeader("pay_1", "req_1", "1700000000", "other-secret")

	assert.False(t, Verify(header, "pay_1", testSecret))
}

func TestVerify_TamperedPaymentID(t *testing.T) {
	header := signedHeader("pay_1", "req_1", "1700000000", testSecret)

	assert.False(t, Verify(header, "pay_2", testSecret))
}

func TestVerify_MalformedInput(t *testing.T) {
	tests := []struct {
		name      string
		signature string
		paymentID string
	}{
		{"missing header", "", "pay_1"},
		{"no pairs", "garbage", "pay_1"},
		{"missing v1", "ts=1700000000", "pay_1"},
		{"missing ts", "v1=abcdef", "pay_1"},
		{"missing payment id", "ts=1700000000,v1=abcdef", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.signature != "" {
				header.Set("x-signature", tt.signature)
			}
			header.Set("x-request-id", "req_1")

			assert.False(t, Verify(header, tt.paymentID, testSecret))
		})
	}
}

func TestVerify_IgnoresUnknownPairsAndSpacing(t *testing.T) {
	header := signedHeader("pay_1", "req_1", "1700000000", testSecret)
	original := header.Get("x-signature")
	header.Set("x-signature", "alg=sha256, "+original)

	assert.True(t, Verify(header, "pay_1", testSecret))
}
