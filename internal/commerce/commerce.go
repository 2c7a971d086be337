// Package commerce is the boundary to the cart/order store. The reconciliation
// engine only ever mutates it through a single transaction scope obtained via
// Store.WithinTx, so a fault mid-sequence rolls everything back.
package commerce

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("commerce: not found")

type PaymentStatus string

const (
	PaymentAwaiting   PaymentStatus = "awaiting"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCaptured   PaymentStatus = "captured"
)

type Cart struct {
	ID                string
	Email             string
	PaymentSessionID  string
	PaymentMethodID   string
	Amount            int64 // smallest currency unit
	PaymentAuthorized bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Order struct {
	ID              uuid.UUID
	CartID          string
	PaymentStatus   PaymentStatus
	PaymentMethodID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AuthorizeMeta travels with a cart payment authorization so downstream logic
// can tell a webhook-originated authorization apart from a user-initiated one.
type AuthorizeMeta struct {
	PaymentID         string
	Status            string
	WebhookOriginated bool
}

type TxFunc func(ctx context.Context, tx Tx) error

type Store interface {
	// WithinTx runs fn inside one transaction; fn returning an error rolls
	// everything back.
	WithinTx(ctx context.Context, fn TxFunc) error

	// RetrieveOrderByCartID is the non-transactional read used by the status
	// stream's polling fallback.
	RetrieveOrderByCartID(ctx context.Context, cartID string) (*Order, error)
}

// Tx is the operation set available inside a transaction scope.
type Tx interface {
	RetrieveCartByID(ctx context.Context, id string) (*Cart, error)
	RetrieveOrderByCartID(ctx context.Context, cartID string) (*Order, error)
	AuthorizeCartPayment(ctx context.Context, cartID string, meta AuthorizeMeta) error
	CreateOrderFromCart(ctx context.Context, cartID string) (*Order, error)
	CaptureOrderPayment(ctx context.Context, orderID uuid.UUID) error
}
