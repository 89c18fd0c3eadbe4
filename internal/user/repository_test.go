package user

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/paging"
)

const userID = "6f1c2a3e-0b4d-4c7e-9a52-1d3e5f7a9b01"

var userCols = []string{"id", "username", "email", "first_name", "last_name", "address", "phone", "role", "created_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestPostgresRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("defaults to customer", func(t *testing.T) {
		mock := newMock(t)
		repo := NewPostgresRepository(mock)
		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs(pgxmock.AnyArg(), "alice", "alice@example.com", "Alice", "", "1 Main St", "", "CUSTOMER").
			WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

		u := &User{Username: " alice ", Email: "Alice@Example.com", FirstName: "Alice", Address: "1 Main St"}
		require.NoError(t, repo.Create(ctx, u))
		assert.NotEmpty(t, u.ID)
		assert.Equal(t, RoleCustomer, u.Role)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	tests := []struct {
		constraint string
		want       error
	}{
		{constraint: usernameConstraint, want: ErrUsernameTaken},
		{constraint: emailConstraint, want: ErrEmailTaken},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			mock := newMock(t)
			repo := NewPostgresRepository(mock)
			mock.ExpectQuery(`INSERT INTO users`).
				WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: tt.constraint})

			err := repo.Create(ctx, &User{Username: "bob", Email: "bob@example.com"})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("invalid email", func(t *testing.T) {
		repo := NewPostgresRepository(newMock(t))
		err := repo.Create(ctx, &User{Username: "bob", Email: "nope"})
		assert.ErrorIs(t, err, ErrInvalidUser)
	})
}

func TestPostgresRepository_GetMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id=$1`)).
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Get(context.Background(), userID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresRepository_Exists(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`)).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.Exists(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPostgresRepository_MalformedIDs(t *testing.T) {
	ctx := context.Background()
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	_, err := repo.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := repo.Exists(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.UpdateRole(ctx, "123", RoleAdmin)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdateRole(t *testing.T) {
	ctx := context.Background()

	t.Run("promotes", func(t *testing.T) {
		mock := newMock(t)
		repo := NewPostgresRepository(mock)
		mock.ExpectQuery(`UPDATE users SET role=\$2`).
			WithArgs(userID, "ADMIN").
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow(userID, "alice", "a@x.io", "", "", "", "", RoleAdmin, time.Now()))

		u, err := repo.UpdateRole(ctx, userID, RoleAdmin)
		require.NoError(t, err)
		assert.True(t, u.IsAdmin())
	})

	t.Run("unknown role", func(t *testing.T) {
		repo := NewPostgresRepository(newMock(t))
		_, err := repo.UpdateRole(ctx, userID, Role("ROOT"))
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("normalizes role", func(t *testing.T) {
		mock := newMock(t)
		repo := NewPostgresRepository(mock)
		mock.ExpectQuery(`UPDATE users SET role=\$2`).
			WithArgs(userID, "CUSTOMER").
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow(userID, "alice", "a@x.io", "", "", "", "", RoleCustomer, time.Now()))

		u, err := repo.UpdateRole(ctx, userID, Role(" customer "))
		require.NoError(t, err)
		assert.Equal(t, RoleCustomer, u.Role)
	})
}

func TestPostgresRepository_List(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM users`)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY username ASC LIMIT $1 OFFSET $2`)).
		WithArgs(10, 0).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(userID, "alice", "a@x.io", "", "", "", "", RoleCustomer, time.Now()))

	page, err := repo.List(context.Background(), paging.Request{SortBy: "username"})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "alice", page.Content[0].Username)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	_, err = ParseRole("owner")
	assert.ErrorIs(t, err, ErrInvalidRole)
}
