package checkout

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/user"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	order.Executor
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// PostgresUnitOfWork runs each Do call in one read committed transaction.
// Product rows locked by LockProduct stay locked until commit or rollback.
type PostgresUnitOfWork struct {
	pool     DBPool
	catalog  *catalog.PostgresRepository
	carts    *cart.PostgresRepository
	orders   *order.PostgresRepository
	users    *user.PostgresRepository
	txOption pgx.TxOptions
}

func NewPostgresUnitOfWork(pool DBPool) *PostgresUnitOfWork {
	return &PostgresUnitOfWork{
		pool:     pool,
		catalog:  catalog.NewPostgresRepository(pool),
		carts:    cart.NewPostgresRepository(pool),
		orders:   order.NewPostgresRepository(pool),
		users:    user.NewPostgresRepository(pool),
		txOption: pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
	}
}

func (u *PostgresUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	tx, err := u.pool.BeginTx(ctx, u.txOption)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stores := Stores{
		Catalog: u.catalog.WithExecutor(tx),
		Carts:   u.carts.WithExecutor(tx),
		Orders:  u.orders.WithExecutor(tx),
		Users:   u.users.WithExecutor(tx),
	}
	if err := fn(ctx, stores); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
