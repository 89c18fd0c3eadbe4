package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/paging"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username is already taken")
	ErrEmailTaken    = errors.New("email is already in use")
	ErrInvalidRole   = errors.New("invalid role")
	ErrInvalidUser   = errors.New("invalid user")
)

const (
	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_key"
	uniqueViolation    = "23505"
)

type Executor interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, userID string) (User, error)
	Exists(ctx context.Context, userID string) (bool, error)
	List(ctx context.Context, req paging.Request) (paging.Page[User], error)
	UpdateRole(ctx context.Context, userID string, role Role) (User, error)
	Count(ctx context.Context) (int64, error)
}

const userColumns = `id, username, email, first_name, last_name, address, phone, role, created_at`

var userSortColumns = map[string]string{
	"username":  "username",
	"email":     "email",
	"created":   "created_at",
	"createdAt": "created_at",
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Address, &u.Phone, &u.Role, &u.CreatedAt)
	return u, err
}

// Create stores a new customer account. Username and email must be unique.
func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := u.validate(); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleCustomer
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO users (id, username, email, first_name, last_name, address, phone, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, u.ID, u.Username, u.Email, u.FirstName, u.LastName, u.Address, u.Phone, string(u.Role)).Scan(&u.CreatedAt)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case usernameConstraint:
			return ErrUsernameTaken
		case emailConstraint:
			return ErrEmailTaken
		}
	}
	return fmt.Errorf("create user: %w", err)
}

// validID reports whether id can name a row; ids are UUIDs.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (User, error) {
	if !validID(userID) {
		return User{}, ErrNotFound
	}
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// Exists reports false for ids that are not UUIDs without querying.
func (r *PostgresRepository) Exists(ctx context.Context, userID string) (bool, error) {
	if !validID(userID) {
		return false, nil
	}
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) List(ctx context.Context, req paging.Request) (paging.Page[User], error) {
	req = req.Normalize()

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return paging.Page[User]{}, fmt.Errorf("count users: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY `+req.OrderBy(userSortColumns, "created_at")+` LIMIT $1 OFFSET $2`,
		req.Size, req.Offset())
	if err != nil {
		return paging.Page[User]{}, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return paging.Page[User]{}, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return paging.Page[User]{}, err
	}
	return paging.NewPage(users, req, total), nil
}

func (r *PostgresRepository) UpdateRole(ctx context.Context, userID string, role Role) (User, error) {
	role, err := ParseRole(string(role))
	if err != nil {
		return User{}, err
	}
	if !validID(userID) {
		return User{}, ErrNotFound
	}
	u, err := scanUser(r.db.QueryRow(ctx, `
		UPDATE users SET role=$2
		WHERE id=$1
		RETURNING `+userColumns, userID, string(role)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("update role: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
