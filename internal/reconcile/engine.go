// Package reconcile is the webhook state machine: it turns one verified
// gateway notification into the idempotent order-capture action and relays
// the terminal status to any waiting client.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"payment-relay/internal/broker"
	"payment-relay/internal/commerce"
	"payment-relay/internal/gateway"
	"payment-relay/internal/logcontext"
	"payment-relay/internal/message"
	"payment-relay/internal/provider"
	"payment-relay/internal/status"
)

var (
	// ErrMissingCorrelation marks a payment record without a cart reference.
	// The delivery is dropped; there is nothing to reconcile it against.
	ErrMissingCorrelation = errors.New("payment has no cart reference")

	// ErrGatewayFetch marks a failed payment lookup. There is no internal
	// retry; the gateway's own redelivery policy covers it.
	ErrGatewayFetch = errors.New("fetching payment from gateway failed")
)

var (
	processedCounter      = metrics.GetOrCreateCounter(`reconcile_total{result="processed"}`)
	capturedCounter       = metrics.GetOrCreateCounter(`reconcile_total{result="captured"}`)
	noopCounter           = metrics.GetOrCreateCounter(`reconcile_total{result="noop"}`)
	errorCounter          = metrics.GetOrCreateCounter(`reconcile_total{result="error"}`)
	processDurationMillis = metrics.GetOrCreateHistogram(`reconcile_duration_milliseconds`)
)

// CaptureSink receives an audit record for every capture the engine applies.
type CaptureSink interface {
	PublishCaptured(ctx context.Context, event message.CapturedEvent)
}

type Engine struct {
	store   commerce.Store
	gateway gateway.Fetcher
	broker  *broker.Broker
	sink    CaptureSink
	logger  *slog.Logger
}

// NewEngine wires the reconciliation engine. sink may be nil when no outbound
// event feed is configured.
func NewEngine(store commerce.Store, fetcher gateway.Fetcher, b *broker.Broker, sink CaptureSink, logger *slog.Logger) *Engine {
	return &Engine{
		store:   store,
		gateway: fetcher,
		broker:  b,
		sink:    sink,
		logger:  logger,
	}
}

// Process applies one webhook delivery. All store mutations for the delivery
// happen inside a single transaction scope; the broker publish and the audit
// event only fire after that scope commits. Redelivering the same webhook is
// safe: every mutating branch checks current state first, so the end state
// converges no matter how often or in which order deliveries arrive.
func (e *Engine) Process(ctx context.Context, ev message.WebhookEvent) error {
	startTime := time.Now()
	defer func() {
		processDurationMillis.Update(float64(time.Since(startTime).Milliseconds()))
	}()

	record, err := e.gateway.FetchPayment(ctx, ev.PaymentID)
	if err != nil {
		e.logger.ErrorContext(ctx, "Error fetching payment", "paymentId", ev.PaymentID, "error", err)
		errorCounter.Inc()
		return errors.WithMessagef(ErrGatewayFetch, "payment %s: %v", ev.PaymentID, err)
	}

	cartID := record.ExternalReference
	if cartID == "" {
		e.logger.ErrorContext(ctx, "Payment has no external reference", "paymentId", ev.PaymentID)
		errorCounter.Inc()
		return ErrMissingCorrelation
	}

	ctx = logcontext.AppendCtx(ctx, slog.String("cartId", cartID))

	// Only an authorized record moves state. Rejected, pending or missing
	// statuses are acknowledged and skipped; the gateway redelivers once the
	// payment settles.
	if st := status.FromRecord(record.Status); st != status.Authorized {
		e.logger.InfoContext(ctx, "Payment not authorized, nothing to reconcile", "paymentStatus", string(st))
		noopCounter.Inc()
		processedCounter.Inc()
		return nil
	}

	var capture *message.CapturedEvent

	err = e.store.WithinTx(ctx, func(ctx context.Context, tx commerce.Tx) error {
		order, err := tx.RetrieveOrderByCartID(ctx, cartID)
		if err != nil && !errors.Is(err, commerce.ErrNotFound) {
			return err
		}

		switch ev.Action {
		case message.ActionPaymentUpdated:
			if order == nil {
				capture, err = e.authorizeAndCreate(ctx, tx, record, cartID)
				return err
			}
			if order.PaymentStatus == commerce.PaymentCaptured {
				// Redelivery after capture.
				e.logger.InfoContext(ctx, "Order already captured, skipping")
				return nil
			}
			if err := tx.CaptureOrderPayment(ctx, order.ID); err != nil {
				return err
			}
			capture = capturedEvent(record, cartID, order.ID)
			return nil

		case message.ActionPaymentCreated:
			// Some methods authorize before any payment.updated arrives; the
			// credit card provider is the known case. Anything else waits for
			// the update.
			if order != nil && order.PaymentMethodID == provider.CreditCardKey {
				if err := tx.CaptureOrderPayment(ctx, order.ID); err != nil {
					return err
				}
				capture = capturedEvent(record, cartID, order.ID)
			}
			return nil

		default:
			return nil
		}
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "Error reconciling webhook", "error", err)
		errorCounter.Inc()
		return err
	}

	if capture == nil {
		noopCounter.Inc()
		processedCounter.Inc()
		return nil
	}

	e.broker.Publish(cartID, status.Captured)
	if e.sink != nil {
		e.sink.PublishCaptured(ctx, *capture)
	}

	e.logger.InfoContext(ctx, "Order payment captured", "orderId", capture.OrderID)
	capturedCounter.Inc()
	processedCounter.Inc()
	return nil
}

// authorizeAndCreate handles payment.updated for a cart with no order yet:
// authorize the cart's payment session, create the order, then capture unless
// the fresh order somehow already carries a settled payment.
func (e *Engine) authorizeAndCreate(ctx context.Context, tx commerce.Tx, record *gateway.PaymentRecord, cartID string) (*message.CapturedEvent, error) {
	meta := commerce.AuthorizeMeta{
		PaymentID:         record.ID,
		WebhookOriginated: true,
	}
	if record.Status != nil {
		meta.Status = *record.Status
	}

	if err := tx.AuthorizeCartPayment(ctx, cartID, meta); err != nil {
		return nil, err
	}

	order, err := tx.CreateOrderFromCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == commerce.PaymentAuthorized || order.PaymentStatus == commerce.PaymentCaptured {
		return nil, nil
	}

	if err := tx.CaptureOrderPayment(ctx, order.ID); err != nil {
		return nil, err
	}
	return capturedEvent(record, cartID, order.ID), nil
}

func capturedEvent(record *gateway.PaymentRecord, cartID string, orderID uuid.UUID) *message.CapturedEvent {
	return &message.CapturedEvent{
		ID:        uuid.New(),
		PaymentID: record.ID,
		CartID:    cartID,
		OrderID:   orderID,
		Status:    string(status.Captured),
	}
}
