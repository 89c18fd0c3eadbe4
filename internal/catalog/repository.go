package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/paging"
)

// Executor matches the query methods shared by *pgxpool.Pool and pgx.Tx.
type Executor interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	Get(ctx context.Context, productID string) (Product, error)
	List(ctx context.Context, req paging.Request) (paging.Page[Product], error)
	ListByCategory(ctx context.Context, categoryID string, req paging.Request) (paging.Page[Product], error)
	Search(ctx context.Context, keyword string, req paging.Request) (paging.Page[Product], error)
	SearchInCategory(ctx context.Context, categoryID, keyword string, req paging.Request) (paging.Page[Product], error)
	ListAvailable(ctx context.Context, req paging.Request) (paging.Page[Product], error)
	ListLowStock(ctx context.Context, threshold int) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, productID string) error
	Count(ctx context.Context) (int64, error)

	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, categoryID string) (Category, error)
	CreateCategory(ctx context.Context, c *Category) error
}

const productColumns = `id, name, description, price, stock_quantity, category_id, created_at, updated_at`

var productSortColumns = map[string]string{
	"id":            "id",
	"name":          "name",
	"price":         "price",
	"stock":         "stock_quantity",
	"stockQuantity": "stock_quantity",
	"created":       "created_at",
	"createdAt":     "created_at",
}

type PostgresRepository struct {
	db Executor
}

func NewPostgresRepository(db Executor) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// WithExecutor returns a copy of the repository bound to exec, usually a pgx.Tx.
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

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// validID reports whether id can name a row; ids are UUIDs.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// validCategoryRef accepts an unset category or a well-formed id.
func validCategoryRef(categoryID *string) bool {
	return categoryID == nil || validID(*categoryID)
}

func (r *PostgresRepository) Get(ctx context.Context, productID string) (Product, error) {
	if !validID(productID) {
		return Product{}, &ProductNotFoundError{ProductID: productID}
	}
	p, err := scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, &ProductNotFoundError{ProductID: productID}
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// LockProduct reads a product and holds its row lock until the surrounding
// transaction ends. It must run on a transaction executor.
func (r *PostgresRepository) LockProduct(ctx context.Context, productID string) (Product, error) {
	if !validID(productID) {
		return Product{}, &ProductNotFoundError{ProductID: productID}
	}
	p, err := scanProduct(r.db.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id=$1
		FOR UPDATE
	`, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, &ProductNotFoundError{ProductID: productID}
		}
		return Product{}, fmt.Errorf("lock product: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) SetStock(ctx context.Context, productID string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("%w: stock quantity must not be negative", ErrInvalidProduct)
	}
	if !validID(productID) {
		return &ProductNotFoundError{ProductID: productID}
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE products
		SET stock_quantity=$2, updated_at=now()
		WHERE id=$1
	`, productID, quantity)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &ProductNotFoundError{ProductID: productID}
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, req paging.Request) (paging.Page[Product], error) {
	return r.listProducts(ctx, "", nil, req)
}

func (r *PostgresRepository) ListByCategory(ctx context.Context, categoryID string, req paging.Request) (paging.Page[Product], error) {
	if !validID(categoryID) {
		return paging.NewPage[Product](nil, req.Normalize(), 0), nil
	}
	return r.listProducts(ctx, "category_id=$1", []any{categoryID}, req)
}

func (r *PostgresRepository) Search(ctx context.Context, keyword string, req paging.Request) (paging.Page[Product], error) {
	return r.listProducts(ctx, "(name ILIKE $1 OR description ILIKE $1)", []any{likePattern(keyword)}, req)
}

func (r *PostgresRepository) SearchInCategory(ctx context.Context, categoryID, keyword string, req paging.Request) (paging.Page[Product], error) {
	if !validID(categoryID) {
		return paging.NewPage[Product](nil, req.Normalize(), 0), nil
	}
	return r.listProducts(ctx, "category_id=$1 AND (name ILIKE $2 OR description ILIKE $2)",
		[]any{categoryID, likePattern(keyword)}, req)
}

func (r *PostgresRepository) ListAvailable(ctx context.Context, req paging.Request) (paging.Page[Product], error) {
	return r.listProducts(ctx, "stock_quantity > 0", nil, req)
}

// ListLowStock returns products whose stock is at or below threshold, lowest first.
func (r *PostgresRepository) ListLowStock(ctx context.Context, threshold int) ([]Product, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE stock_quantity <= $1
		ORDER BY stock_quantity ASC, id ASC
	`, threshold)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	return collectProducts(rows)
}

// listProducts runs a count and a page query sharing the same filter.
func (r *PostgresRepository) listProducts(ctx context.Context, where string, args []any, req paging.Request) (paging.Page[Product], error) {
	req = req.Normalize()
	filter := ""
	if where != "" {
		filter = " WHERE " + where
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM products`+filter, args...).Scan(&total); err != nil {
		return paging.Page[Product]{}, fmt.Errorf("count products: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		productColumns, filter, req.OrderBy(productSortColumns, "id"), n+1, n+2)
	pageArgs := append(append([]any{}, args...), req.Size, req.Offset())

	rows, err := r.db.Query(ctx, query, pageArgs...)
	if err != nil {
		return paging.Page[Product]{}, fmt.Errorf("list products: %w", err)
	}
	products, err := collectProducts(rows)
	if err != nil {
		return paging.Page[Product]{}, err
	}
	return paging.NewPage(products, req, total), nil
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func likePattern(keyword string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.TrimSpace(keyword))
	return "%" + escaped + "%"
}

func (r *PostgresRepository) Create(ctx context.Context, p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if !validCategoryRef(p.CategoryID) {
		return ErrCategoryNotFound
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO products (id, name, description, price, stock_quantity, category_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Description, p.Price, p.StockQuantity, p.CategoryID).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if !validID(p.ID) {
		return &ProductNotFoundError{ProductID: p.ID}
	}
	if !validCategoryRef(p.CategoryID) {
		return ErrCategoryNotFound
	}
	err := r.db.QueryRow(ctx, `
		UPDATE products
		SET name=$2, description=$3, price=$4, stock_quantity=$5, category_id=$6, updated_at=now()
		WHERE id=$1
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Description, p.Price, p.StockQuantity, p.CategoryID).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &ProductNotFoundError{ProductID: p.ID}
		}
		if isForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// Delete removes a product. Products that appear in any order are kept as
// history and fail with ErrProductInUse.
func (r *PostgresRepository) Delete(ctx context.Context, productID string) error {
	if !validID(productID) {
		return &ProductNotFoundError{ProductID: productID}
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id=$1`, productID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductInUse
		}
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &ProductNotFoundError{ProductID: productID}
	}
	return nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, slug, description FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *PostgresRepository) GetCategory(ctx context.Context, categoryID string) (Category, error) {
	if !validID(categoryID) {
		return Category{}, ErrCategoryNotFound
	}
	var c Category
	err := r.db.QueryRow(ctx, `SELECT id, name, slug, description FROM categories WHERE id=$1`, categoryID).
		Scan(&c.ID, &c.Name, &c.Slug, &c.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, ErrCategoryNotFound
		}
		return Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// CreateCategory derives the slug from the name.
func (r *PostgresRepository) CreateCategory(ctx context.Context, c *Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCategory)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Slug = slug.Make(c.Name)

	_, err := r.db.Exec(ctx, `
		INSERT INTO categories (id, name, slug, description)
		VALUES ($1, $2, $3, $4)
	`, c.ID, c.Name, c.Slug, c.Description)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrCategoryExists
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
