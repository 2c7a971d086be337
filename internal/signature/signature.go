// Package signature verifies that inbound webhook deliveries originated from
// the payment gateway, using the gateway's x-signature HMAC scheme.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// Verify checks the x-signature header against an HMAC-SHA256 digest of the
// gateway's canonical manifest. An empty secret disables verification and
// every delivery is accepted; this is the documented development default and
// must not be used with a publicly reachable endpoint.
//
// Verification never fails loudly: any missing or malformed input yields
// false.
func Verify(header http.Header, paymentID, secret string) bool {
	if secret == "" {
		return true
	}

	ts, digest, ok := parseSignatureHeader(header.Get("x-signature"))
	if !ok {
		return false
	}

	if paymentID == "" {
		return false
	}

	manifest := buildManifest(paymentID, header.Get("x-request-id"), ts)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	// hmac.Equal keeps the comparison constant-time.
	return hmac.Equal([]byte(expected), []byte(digest))
}

// parseSignatureHeader splits "ts=<epoch>,v1=<hex>" into its parts. Pairs the
// scheme does not define are ignored.
func parseSignatureHeader(value string) (ts, digest string, ok bool) {
	if value == "" {
		return "", "", false
	}

	for _, part := range strings.Split(value, ",") {
		key, val, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(val)
		case "v1":
			digest = strings.TrimSpace(val)
		}
	}

	if ts == "" || digest == "" {
		return "", "", false
	}
	return ts, digest, true
}

// buildManifest produces the exact string the gateway signs. Field order and
// separators are part of the gateway contract.
func buildManifest(paymentID, requestID, ts string) string {
	return fmt.Sprintf("id:%s;request-id:%s;ts:%s;", paymentID, requestID, ts)
}
