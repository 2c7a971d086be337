// Package stream serves the long-lived status connection a storefront opens
// after sending the customer to the payment step. Terminal status arrives by
// broker push; a polling fallback covers the case where the webhook fired
// before the client connected.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/pkg/errors"
	"payment-relay/internal/broker"
	"payment-relay/internal/commerce"
	"payment-relay/internal/config"
	"payment-relay/internal/logcontext"
	"payment-relay/internal/status"
)

const defaultPollingIntervalMs = 10_000

var (
	connectionsCounter = metrics.GetOrCreateCounter(`stream_connections_total`)
	pushErrorCounter   = metrics.GetOrCreateCounter(`stream_pushes_total{result="error"}`)
	pushSuccessCounter = metrics.GetOrCreateCounter(`stream_pushes_total{result="success"}`)
)

type Handler struct {
	broker   *broker.Broker
	store    commerce.Store
	interval time.Duration
	logger   *slog.Logger
}

func NewHandler(b *broker.Broker, store commerce.Store, cfg config.Stream, logger *slog.Logger) *Handler {
	intervalMs := cfg.PollingIntervalMs
	if intervalMs <= 0 {
		intervalMs = defaultPollingIntervalMs
	}

	return &Handler{
		broker:   b,
		store:    store,
		interval: time.Duration(intervalMs) * time.Millisecond,
		logger:   logger,
	}
}

// ServeHTTP runs one connection's OPEN state until a terminal status or the
// client disconnect closes it. The broker subscription and the poll ticker
// are both torn down on every exit path; the disconnect path is the only
// guaranteed cleanup, so it must never be skipped.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("id")
	if clientID == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"message": "Missing id query parameter"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := logcontext.AppendCtx(r.Context(), slog.String("clientId", clientID))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	connectionsCounter.Inc()
	h.logger.InfoContext(ctx, "Client stream opened")

	events := h.broker.Subscribe(clientID)
	defer h.broker.Unsubscribe(clientID, events)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.InfoContext(ctx, "Client disconnected")
			return

		case st, open := <-events:
			if !open {
				// Subscription was replaced by a newer connection.
				h.logger.InfoContext(ctx, "Subscription replaced, closing stream")
				return
			}
			h.push(ctx, w, flusher, string(st))
			if st == status.Captured {
				h.logger.InfoContext(ctx, "Terminal status delivered, closing stream")
				return
			}

		case <-ticker.C:
			st := h.pollStatus(ctx, clientID)
			h.push(ctx, w, flusher, st)
			if st == string(commerce.PaymentCaptured) {
				h.logger.InfoContext(ctx, "Terminal status observed via polling, closing stream")
				return
			}
		}
	}
}

// pollStatus reads the current order status straight from the store. No order
// yet means the webhook has not landed, which the client sees as pending; a
// read failure is reported as failed without closing the stream.
func (h *Handler) pollStatus(ctx context.Context, clientID string) string {
	order, err := h.store.RetrieveOrderByCartID(ctx, clientID)
	if errors.Is(err, commerce.ErrNotFound) {
		return string(status.Pending)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "Error polling order status", "error", err)
		return string(status.Failed)
	}
	return string(order.PaymentStatus)
}

// push writes one SSE event. Write failures mean the client is gone; they are
// swallowed so the loop keeps running until the disconnect signal arrives.
func (h *Handler) push(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, st string) {
	payload, err := json.Marshal(map[string]string{"status": st})
	if err != nil {
		pushErrorCounter.Inc()
		return
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		h.logger.DebugContext(ctx, "Error writing to stream", "error", err)
		pushErrorCounter.Inc()
		return
	}
	flusher.Flush()
	pushSuccessCounter.Inc()
}
