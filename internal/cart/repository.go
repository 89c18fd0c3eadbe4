package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/user"
)

var (
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

type Executor interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	GetOrCreate(ctx context.Context, userID string) (*Cart, error)
	Lines(ctx context.Context, userID string) ([]Line, error)
	ItemQuantity(ctx context.Context, cartID, productID string) (int, error)
	SetItem(ctx context.Context, cartID, productID string, quantity int) error
	DeleteItem(ctx context.Context, cartID, productID string) error
	ClearByUser(ctx context.Context, userID string) error
}

type PostgresRepository struct {
	db Executor
}

func NewPostgresRepository(db Executor) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) WithExecutor(exec Executor) *PostgresRepository {
	if exec == nil {
		return r
	}
	clone := *r
	clone.db = exec
	return &clone
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// GetOrCreate returns the user's cart with its items, creating an empty cart
// on first access. Ids without a user row fail with user.ErrNotFound.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, userID string) (*Cart, error) {
	if !validID(userID) {
		return nil, user.ErrNotFound
	}
	c := &Cart{UserID: userID}
	err := r.db.QueryRow(ctx, `
		INSERT INTO carts (id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, updated_at
	`, uuid.NewString(), userID).Scan(&c.ID, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("get or create cart: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT ci.id, ci.product_id, p.name, p.price, ci.quantity, ci.added_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.added_at, ci.id
	`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()

	c.Items = []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.UnitPrice, &it.Quantity, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		c.Items = append(c.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	c.recalculate()
	return c, nil
}

// Lines loads every (product, quantity) pair of the user's cart ordered by product id.
// A user without a cart has no lines.
func (r *PostgresRepository) Lines(ctx context.Context, userID string) ([]Line, error) {
	if !validID(userID) {
		return []Line{}, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT ci.product_id, ci.quantity
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE c.user_id = $1
		ORDER BY ci.product_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart lines: %w", err)
	}
	defer rows.Close()

	lines := []Line{}
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *PostgresRepository) ItemQuantity(ctx context.Context, cartID, productID string) (int, error) {
	if !validID(productID) {
		return 0, ErrItemNotFound
	}
	var qty int
	err := r.db.QueryRow(ctx, `SELECT quantity FROM cart_items WHERE cart_id=$1 AND product_id=$2`, cartID, productID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrItemNotFound
		}
		return 0, fmt.Errorf("get cart item: %w", err)
	}
	return qty, nil
}

// SetItem writes the absolute quantity for a product, inserting the line if needed.
func (r *PostgresRepository) SetItem(ctx context.Context, cartID, productID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity
	`, uuid.NewString(), cartID, productID, quantity)
	if err != nil {
		return fmt.Errorf("set cart item: %w", err)
	}
	return r.touch(ctx, cartID)
}

func (r *PostgresRepository) DeleteItem(ctx context.Context, cartID, productID string) error {
	if !validID(productID) {
		return ErrItemNotFound
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1 AND product_id=$2`, cartID, productID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return r.touch(ctx, cartID)
}

// ClearByUser deletes every item of the user's cart. The cart row stays.
func (r *PostgresRepository) ClearByUser(ctx context.Context, userID string) error {
	if !validID(userID) {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		DELETE FROM cart_items
		WHERE cart_id IN (SELECT id FROM carts WHERE user_id = $1)
	`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (r *PostgresRepository) touch(ctx context.Context, cartID string) error {
	if _, err := r.db.Exec(ctx, `UPDATE carts SET updated_at=$2 WHERE id=$1`, cartID, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}
