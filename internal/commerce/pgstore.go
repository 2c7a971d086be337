package commerce

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) WithinTx(ctx context.Context, fn TxFunc) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

func (s *PgStore) RetrieveOrderByCartID(ctx context.Context, cartID string) (*Order, error) {
	return scanOrderByCartID(ctx, s.pool, cartID)
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) RetrieveCartByID(ctx context.Context, id string) (*Cart, error) {
	query := `SELECT id, email, payment_session_id, payment_method_id, amount, payment_authorized, created_at, updated_at
	          FROM carts WHERE id = $1`
	row := t.tx.QueryRow(ctx, query, id)

	var cart Cart
	err := row.Scan(&cart.ID, &cart.Email, &cart.PaymentSessionID, &cart.PaymentMethodID,
		&cart.Amount, &cart.PaymentAuthorized, &cart.CreatedAt, &cart.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "selecting cart")
	}
	return &cart, nil
}

func (t *pgTx) RetrieveOrderByCartID(ctx context.Context, cartID string) (*Order, error) {
	return scanOrderByCartID(ctx, t.tx, cartID)
}

func (t *pgTx) AuthorizeCartPayment(ctx context.Context, cartID string, meta AuthorizeMeta) error {
	query := `UPDATE carts
	          SET payment_authorized = true, payment_id = $2, payment_status = $3,
	              webhook_originated = $4, updated_at = now()
	          WHERE id = $1`
	tag, err := t.tx.Exec(ctx, query, cartID, meta.PaymentID, meta.Status, meta.WebhookOriginated)
	if err != nil {
		return errors.Wrap(err, "authorizing cart payment")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateOrderFromCart inserts the order row for a cart. The unique constraint
// on cart_id is what ultimately enforces at most one order per cart, even if
// two webhook deliveries race past the existence check.
func (t *pgTx) CreateOrderFromCart(ctx context.Context, cartID string) (*Order, error) {
	cart, err := t.RetrieveCartByID(ctx, cartID)
	if err != nil {
		return nil, err
	}

	paymentStatus := PaymentAwaiting
	if cart.PaymentAuthorized {
		paymentStatus = PaymentAuthorized
	}

	order := &Order{
		ID:              uuid.New(),
		CartID:          cart.ID,
		PaymentStatus:   paymentStatus,
		PaymentMethodID: cart.PaymentMethodID,
	}

	query := `INSERT INTO orders (id, cart_id, payment_status, payment_method_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, now(), now())
	          RETURNING created_at, updated_at`
	err = t.tx.QueryRow(ctx, query, order.ID, order.CartID, order.PaymentStatus, order.PaymentMethodID).
		Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "inserting order")
	}
	return order, nil
}

// CaptureOrderPayment flips the order to captured. Capturing an already
// captured order is a no-op, which is what makes webhook redelivery safe.
func (t *pgTx) CaptureOrderPayment(ctx context.Context, orderID uuid.UUID) error {
	query := `UPDATE orders SET payment_status = $2, updated_at = now()
	          WHERE id = $1 AND payment_status <> $2`
	_, err := t.tx.Exec(ctx, query, orderID, PaymentCaptured)
	if err != nil {
		return errors.Wrap(err, "capturing order payment")
	}
	return nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanOrderByCartID(ctx context.Context, q queryRower, cartID string) (*Order, error) {
	query := `SELECT id, cart_id, payment_status, payment_method_id, created_at, updated_at
	          FROM orders WHERE cart_id = $1`
	row := q.QueryRow(ctx, query, cartID)

	var order Order
	err := row.Scan(&order.ID, &order.CartID, &order.PaymentStatus, &order.PaymentMethodID,
		&order.CreatedAt, &order.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "selecting order")
	}
	return &order, nil
}
