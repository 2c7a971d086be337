package main

import (
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"payment-relay/internal/broker"
	"payment-relay/internal/commerce"
	"payment-relay/internal/config"
	"payment-relay/internal/db"
	"payment-relay/internal/events"
	"payment-relay/internal/gateway"
	"payment-relay/internal/kafka"
	"payment-relay/internal/logging"
	"payment-relay/internal/metrics"
	"payment-relay/internal/provider"
	"payment-relay/internal/reconcile"
	"payment-relay/internal/server"
	"payment-relay/internal/stream"
)

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoadConfig(".")

	// Secrets come from the environment (.env locally), not from config.yaml.
	if cfg.Gateway.AccessToken == "" {
		cfg.Gateway.AccessToken = os.Getenv("GATEWAY_ACCESS_TOKEN")
	}
	if cfg.Gateway.WebhookSecret == "" {
		cfg.Gateway.WebhookSecret = os.Getenv("GATEWAY_WEBHOOK_SECRET")
	}

	logger := logging.GetLogger(cfg.Logs)
	metrics.Setup(cfg.Metrics)

	connStr := db.ConnStr(cfg.Database)
	if err := db.RunMigrations(connStr, "migrations"); err != nil {
		log.Fatal(err)
	}

	pool, err := db.GetPool(connStr)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	store := commerce.NewPgStore(pool)
	gatewayClient := gateway.NewClient(cfg.Gateway)
	eventBroker := broker.New()

	var sink reconcile.CaptureSink
	if cfg.Kafka.Broker.URL != "" {
		writer := kafka.NewWriter(cfg.Kafka)
		defer writer.Close()
		sink = events.NewPublisher(writer, logger)
	}

	engine := reconcile.NewEngine(store, gatewayClient, eventBroker, sink, logger)

	registry := provider.NewRegistry(
		provider.NewCreditCard(gatewayClient, cfg.Gateway.WebhookURL),
		provider.NewPix(gatewayClient, cfg.Gateway.WebhookURL),
	)

	streamHandler := stream.NewHandler(eventBroker, store, cfg.Stream, logger)

	handler := server.New(engine, streamHandler, store, registry, cfg.Gateway.WebhookSecret, logger)

	logger.Info("Starting server", "port", cfg.Server.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Server.Port, handler))
}
