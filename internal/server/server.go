// Package server wires the HTTP surface: the gateway-facing webhook endpoint
// and the storefront-facing payment endpoints.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"payment-relay/internal/commerce"
	"payment-relay/internal/message"
	"payment-relay/internal/provider"
	"payment-relay/internal/stream"
)

// Processor consumes one verified webhook delivery.
type Processor interface {
	Process(ctx context.Context, ev message.WebhookEvent) error
}

type Server struct {
	engine   Processor
	store    commerce.Store
	registry *provider.Registry
	secret   string
	logger   *slog.Logger
}

func New(engine Processor, streamHandler *stream.Handler, store commerce.Store, registry *provider.Registry, secret string, logger *slog.Logger) http.Handler {
	s := &Server{
		engine:   engine,
		store:    store,
		registry: registry,
		secret:   secret,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /liveness", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /webhooks/payment", s.handleWebhook)
	mux.HandleFunc("POST /store/payment", s.handleAuthorizePayment)
	mux.Handle("GET /store/payment", streamHandler)

	return requestMiddleware(mux, logger)
}
