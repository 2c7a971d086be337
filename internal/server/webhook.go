package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
	"github.com/pkg/errors"
	"payment-relay/internal/logcontext"
	"payment-relay/internal/message"
	"payment-relay/internal/reconcile"
	"payment-relay/internal/signature"
)

var (
	webhookSuccessCounter          = metrics.GetOrCreateCounter(`webhook_total{result="success"}`)
	webhookInvalidPayloadCounter   = metrics.GetOrCreateCounter(`webhook_total{result="invalid_payload"}`)
	webhookInvalidSignatureCounter = metrics.GetOrCreateCounter(`webhook_total{result="invalid_signature"}`)
	webhookProcessErrorCounter     = metrics.GetOrCreateCounter(`webhook_total{result="process_error"}`)
)

// handleWebhook receives gateway notifications. The gateway only cares about
// reaching us, so the HTTP status is always 200 and the outcome travels in
// the body envelope; the gateway redelivers on its own schedule when we
// report a failure.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		webhookInvalidPayloadCounter.Inc()
		writeEnvelope(w, false, "unreadable body")
		return
	}

	var body message.WebhookBody
	if err := json.Unmarshal(rawBody, &body); err != nil {
		webhookInvalidPayloadCounter.Inc()
		writeEnvelope(w, false, "invalid payload")
		return
	}

	ctx := logcontext.AppendCtx(r.Context(), slog.String("paymentId", body.Data.ID))
	if requestID := r.Header.Get("x-request-id"); requestID != "" {
		ctx = logcontext.AppendCtx(ctx, slog.String("requestId", requestID))
	}

	if !signature.Verify(r.Header, body.Data.ID, s.secret) {
		s.logger.WarnContext(ctx, "Webhook signature verification failed")
		webhookInvalidSignatureCounter.Inc()
		writeEnvelope(w, false, "invalid signature")
		return
	}

	event := message.WebhookEvent{
		Action:    message.WebhookAction(body.Action),
		PaymentID: body.Data.ID,
		Header:    r.Header,
		RawBody:   rawBody,
	}

	if err := s.engine.Process(ctx, event); err != nil {
		webhookProcessErrorCounter.Inc()
		writeEnvelope(w, false, webhookErrorMessage(err))
		return
	}

	webhookSuccessCounter.Inc()
	writeEnvelope(w, true, "")
}

// webhookErrorMessage keeps error detail out of the gateway-facing response
// while still telling the failure kinds apart.
func webhookErrorMessage(err error) string {
	switch {
	case errors.Is(err, reconcile.ErrMissingCorrelation):
		return "no cart reference"
	case errors.Is(err, reconcile.ErrGatewayFetch):
		return "payment lookup failed"
	default:
		return "processing failed"
	}
}

func writeEnvelope(w http.ResponseWriter, success bool, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(message.WebhookResponse{Success: success, Message: msg})
}
