package commerce

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"payment-relay/internal/commerce"
	"payment-relay/internal/db"
	"payment-relay/tests/testhelpers"
)

type PgStoreTestSuite struct {
	suite.Suite
	pgContainer *testhelpers.PostgresContainer
	pool        *pgxpool.Pool
	sut         *commerce.PgStore
	ctx         context.Context
}

func (s *PgStoreTestSuite) SetupSuite() {
	time.Local = time.UTC

	s.ctx = context.Background()
	pgContainer, err := testhelpers.CreatePostgresContainer(s.ctx)
	if err != nil {
		log.Fatal(err)
	}
	s.pgContainer = pgContainer

	if err := db.RunMigrations(pgContainer.ConnectionString, "../../../migrations"); err != nil {
		log.Fatal(err)
	}

	pool, err := db.GetPool(pgContainer.ConnectionString)
	if err != nil {
		log.Fatal(err)
	}

	s.pool = pool
	s.sut = commerce.NewPgStore(pool)
}

func (s *PgStoreTestSuite) TearDownSuite() {
	s.pool.Close()

	if err := s.pgContainer.Terminate(s.ctx); err != nil {
		log.Fatalf("error terminating postgres container: %s", err)
	}
}

func (s *PgStoreTestSuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, "DELETE FROM orders")
	if err != nil {
		log.Fatalf("error truncating orders table: %s", err)
	}
	_, err = s.pool.Exec(s.ctx, "DELETE FROM carts")
	if err != nil {
		log.Fatalf("error truncating carts table: %s", err)
	}
}

func (s *PgStoreTestSuite) insertCart(id string) {
	_, err := s.pool.Exec(s.ctx,
		`INSERT INTO carts (id, email, payment_session_id, payment_method_id, amount)
		 VALUES ($1, 'buyer@example.com', 'session_1', 'pix', 2500)`, id)
	assert.NoError(s.T(), err)
}

func (s *PgStoreTestSuite) TestCreateOrderFromCart() {
	t := s.T()
	s.insertCart("cart_1")

	var order *commerce.Order
	err := s.sut.WithinTx(s.ctx, func(ctx context.Context, tx commerce.Tx) error {
		var err error
		order, err = tx.CreateOrderFromCart(ctx, "cart_1")
		return err
	})

	assert.NoError(t, err)
	assert.Equal(t, "cart_1", order.CartID)
	assert.Equal(t, commerce.PaymentAwaiting, order.PaymentStatus)
	assert.Equal(t, "pix", order.PaymentMethodID)

	found, err := s.sut.RetrieveOrderByCartID(s.ctx, "cart_1")
	assert.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
}

func (s *PgStoreTestSuite) TestCreateOrderFromCart_SecondOrderRejected() {
	t := s.T()
	s.insertCart("cart_1")

	err := s.sut.WithinTx(s.ctx, func(ctx context.Context, tx commerce.Tx) error {
		_, err := tx.CreateOrderFromCart(ctx, "cart_1")
		return err
	})
	assert.NoError(t, err)

	err = s.sut.WithinTx(s.ctx, func(ctx context.Context, tx commerce.Tx) error {
		_, err := tx.CreateOrderFromCart(ctx, "cart_1")
		return err
	})
	assert.Error(t, err, "unique constraint must reject a second order per cart")
}

func (s *PgStoreTestSuite) TestAuthorizeCartPayment() {
	t := s.T()
	s.insertCart("cart_1")

	err := s.sut.WithinTx(s.ctx, func(ctx context.Context, tx commerce.Tx) error {
		return tx.AuthorizeCartPayment(ctx, "cart_1", commerce.AuthorizeMeta{
			PaymentID:         "pay_1",
			Status:            "approved",
			WebhookOriginated: true,
		})
	})
	assert.NoError(t, err)

	err = s.sut.WithinTx(s.ctx, func(ctx context.Context, tx commerce.Tx) error {
		cart, err := tx.RetrieveCartByID(ctx, "cart_1")
		if err != nil {
			return err
		}
		assert.True(t, cart.PaymentAuthorized)
		return nil
	})
	assert.NoError(t, err)
}

func (s *PgStoreTestSuite) TestAuthorizeCartPayment_UnknownCart() {
	err := s.sut.WithinTx(s.ctx, func(ctx context.Context, tx commerce.Tx) error {
		return tx.AuthorizeCartPayment(ctx, "cart_404", commerce.AuthorizeMeta{})
	})
	assert.True(s.T(), errors.Is(err, commerce.ErrNotFound))
}

func (s *PgStoreTestSuite) TestCaptureOrderPayment_Idempotent() {
	t := s.T()
	s.insertCart("cart_1")

	var orderID uuid.UUID
	err := s.sut.WithinTx(s.ctx, func(ctx context.Context, tx commerce.Tx) error {
		order, err := tx.CreateOrderFromCart(ctx, "cart_1")
		if err != nil {
			return err
		}
		orderID = order.ID
		return tx.CaptureOrderPayment(ctx, orderID)
	})
	assert.NoError(t, err)

	// Second capture is a no-op, not an error.
	err = s.sut.WithinTx(s.ctx, func(ctx context.Context, tx commerce.Tx) error {
		return tx.CaptureOrderPayment(ctx, orderID)
	})
	assert.NoError(t, err)

	order, err := s.sut.RetrieveOrderByCartID(s.ctx, "cart_1")
	assert.NoError(t, err)
	assert.Equal(t, commerce.PaymentCaptured, order.PaymentStatus)
}

func (s *PgStoreTestSuite) TestRetrieveOrderByCartID_NotFound() {
	_, err := s.sut.RetrieveOrderByCartID(s.ctx, "cart_404")
	assert.True(s.T(), errors.Is(err, commerce.ErrNotFound))
}

func (s *PgStoreTestSuite) TestWithinTx_RollbackOnError() {
	t := s.T()
	s.insertCart("cart_1")

	err := s.sut.WithinTx(s.ctx, func(ctx context.Context, tx commerce.Tx) error {
		if _, err := tx.CreateOrderFromCart(ctx, "cart_1"); err != nil {
			return err
		}
		return errors.New("boom")
	})
	assert.Error(t, err)

	_, err = s.sut.RetrieveOrderByCartID(s.ctx, "cart_1")
	assert.True(t, errors.Is(err, commerce.ErrNotFound), "order insert must be rolled back")
}

func TestPgStoreTestSuite(t *testing.T) {
	suite.Run(t, new(PgStoreTestSuite))
}
