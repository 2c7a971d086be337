package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"payment-relay/internal/commerce"
	"payment-relay/internal/logcontext"
	"payment-relay/internal/provider"
	"payment-relay/internal/status"
)

type authorizeRequest struct {
	CartID string `json:"cartId"`
	provider.FormData
}

type authorizeResponse struct {
	Status       status.Status `json:"status"`
	PaymentID    string        `json:"paymentId,omitempty"`
	QRCode       string        `json:"qrCode,omitempty"`
	QRCodeBase64 string        `json:"qrCodeBase64,omitempty"`
}

// handleAuthorizePayment is the user-initiated path: the storefront submits
// the payment form and gets back either a settled status (cards) or the pix
// QR data to continue with.
func (s *Server) handleAuthorizePayment(w http.ResponseWriter, r *http.Request) {
	var req authorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.CartID == "" {
		writeJSONError(w, http.StatusBadRequest, "cartId is required")
		return
	}

	ctx := logcontext.AppendCtx(r.Context(), slog.String("cartId", req.CartID))

	method, ok := s.registry.Resolve(providerKey(req.PaymentMethodID))
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "unsupported payment method")
		return
	}

	var result *provider.Result
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx commerce.Tx) error {
		cart, err := tx.RetrieveCartByID(ctx, req.CartID)
		if err != nil {
			return err
		}

		result, err = method.Authorize(ctx, cart, req.FormData, provider.AuthorizeContext{})
		if err != nil {
			return err
		}

		if result.Status == status.Authorized {
			return tx.AuthorizeCartPayment(ctx, cart.ID, commerce.AuthorizeMeta{
				PaymentID: result.PaymentID,
				Status:    result.GatewayStatus,
			})
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error authorizing payment", "error", err)
		writeJSONError(w, http.StatusBadGateway, "payment authorization failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(authorizeResponse{
		Status:       result.Status,
		PaymentID:    result.PaymentID,
		QRCode:       result.QRCode,
		QRCodeBase64: result.QRCodeBase64,
	})
}

// providerKey maps the gateway payment method to the variant that handles
// it. Everything that is not pix goes through the card flow.
func providerKey(paymentMethodID string) string {
	if paymentMethodID == "pix" {
		return provider.PixKey
	}
	return provider.CreditCardKey
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
