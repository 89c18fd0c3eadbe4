package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/paging"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid order status")
)

// Executor matches *pgxpool.Pool and pgx.Tx. Begin on a pgx.Tx opens a savepoint.
type Executor interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID string) (*Order, error)
	ListByUser(ctx context.Context, userID string, req paging.Request) (paging.Page[Order], error)
	ListAll(ctx context.Context, req paging.Request) (paging.Page[Order], error)
	ListByStatus(ctx context.Context, status Status) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID string, status Status) (*Order, *StatusChange, error)
	History(ctx context.Context, orderID string) ([]StatusChange, error)
	CountAll(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status Status) (int64, error)
}

const orderColumns = `id, user_id, total_amount, shipping_address, status, created_at, updated_at`

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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.ShippingAddress, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// Create inserts the order and its items. Ids are assigned when empty and
// the status defaults to PENDING.
func (r *PostgresRepository) Create(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO orders (id, user_id, total_amount, shipping_address, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, o.ID, o.UserID, o.TotalAmount, o.ShippingAddress, string(o.Status)).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		_, err := r.db.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, it.ID, o.ID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, orderID string) (*Order, error) {
	if !validID(orderID) {
		return nil, ErrNotFound
	}
	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	orders := []Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListByUser returns the user's orders, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, req paging.Request) (paging.Page[Order], error) {
	if !validID(userID) {
		return paging.NewPage[Order](nil, req.Normalize(), 0), nil
	}
	return r.listOrders(ctx, "user_id=$1", []any{userID}, req)
}

func (r *PostgresRepository) ListAll(ctx context.Context, req paging.Request) (paging.Page[Order], error) {
	return r.listOrders(ctx, "", nil, req)
}

func (r *PostgresRepository) ListByStatus(ctx context.Context, status Status) ([]Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status=$1
		ORDER BY created_at ASC, id ASC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list orders by status: %w", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *PostgresRepository) listOrders(ctx context.Context, where string, args []any, req paging.Request) (paging.Page[Order], error) {
	req = req.Normalize()
	filter := ""
	if where != "" {
		filter = " WHERE " + where
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM orders`+filter, args...).Scan(&total); err != nil {
		return paging.Page[Order]{}, fmt.Errorf("count orders: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d`,
		orderColumns, filter, n+1, n+2)
	rows, err := r.db.Query(ctx, query, append(append([]any{}, args...), req.Size, req.Offset())...)
	if err != nil {
		return paging.Page[Order]{}, fmt.Errorf("list orders: %w", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return paging.Page[Order]{}, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return paging.Page[Order]{}, err
	}
	return paging.NewPage(orders, req, total), nil
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

// attachItems loads the items of all given orders with one query.
func (r *PostgresRepository) attachItems(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].Items = []Item{}
	}

	rows, err := r.db.Query(ctx, `
		SELECT order_id, id, product_id, product_name, quantity, unit_price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, product_id
	`, ids)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var it Item
		if err := rows.Scan(&orderID, &it.ID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return rows.Err()
}

// UpdateStatus locks the order, writes the new status and appends a history
// row. Setting the current status again changes nothing and returns a nil change.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, orderID string, status Status) (*Order, *StatusChange, error) {
	status, err := ParseStatus(string(status))
	if err != nil {
		return nil, nil, err
	}
	if !validID(orderID) {
		return nil, nil, ErrNotFound
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("lock order: %w", err)
	}

	var change *StatusChange
	if current != status {
		now := time.Now().UTC()
		if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`, orderID, string(status), now); err != nil {
			return nil, nil, fmt.Errorf("update order status: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_status_history (order_id, from_status, to_status, changed_at)
			VALUES ($1, $2, $3, $4)
		`, orderID, string(current), string(status), now); err != nil {
			return nil, nil, fmt.Errorf("insert status history: %w", err)
		}
		change = &StatusChange{OrderID: orderID, From: current, To: status, ChangedAt: now}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit status update: %w", err)
	}

	o, err := r.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return o, change, nil
}

func (r *PostgresRepository) History(ctx context.Context, orderID string) ([]StatusChange, error) {
	if !validID(orderID) {
		return nil, ErrNotFound
	}
	rows, err := r.db.Query(ctx, `
		SELECT order_id, from_status, to_status, changed_at
		FROM order_status_history
		WHERE order_id=$1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	changes := []StatusChange{}
	for rows.Next() {
		var c StatusChange
		if err := rows.Scan(&c.OrderID, &c.From, &c.To, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func (r *PostgresRepository) CountAll(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) CountByStatus(ctx context.Context, status Status) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM orders WHERE status=$1`, string(status)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders by status: %w", err)
	}
	return n, nil
}
