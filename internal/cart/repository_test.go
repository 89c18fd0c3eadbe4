package cart

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/user"
)

const (
	userID   = "00000000-0000-4000-8000-000000000002"
	widgetID = "20000000-0000-4000-8000-000000000001"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestPostgresRepository_GetOrCreate(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO carts .* ON CONFLICT \(user_id\)`).
		WithArgs(pgxmock.AnyArg(), userID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "updated_at"}).AddRow("c1", now))
	mock.ExpectQuery(`FROM cart_items ci\s+JOIN products p`).
		WithArgs("c1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "product_id", "name", "price", "quantity", "added_at"}).
			AddRow("i1", widgetID, "Widget", decimal.RequireFromString("10.00"), 2, now).
			AddRow("i2", "gadget", "Gadget", decimal.RequireFromString("5.00"), 1, now))

	c, err := repo.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)
	require.Len(t, c.Items, 2)
	assert.True(t, c.Items[0].Subtotal.Equal(decimal.RequireFromString("20.00")))
	assert.True(t, c.TotalAmount.Equal(decimal.RequireFromString("25.00")))
	assert.Equal(t, 3, c.TotalItems)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetOrCreateUnknownUser(t *testing.T) {
	t.Run("malformed id never reaches the database", func(t *testing.T) {
		mock := newMock(t)
		repo := NewPostgresRepository(mock)

		_, err := repo.GetOrCreate(context.Background(), "abc")
		assert.ErrorIs(t, err, user.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign key violation", func(t *testing.T) {
		mock := newMock(t)
		repo := NewPostgresRepository(mock)
		mock.ExpectQuery(`INSERT INTO carts`).
			WithArgs(pgxmock.AnyArg(), userID).
			WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "carts_user_id_fkey"})

		_, err := repo.GetOrCreate(context.Background(), userID)
		assert.ErrorIs(t, err, user.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRepository_MalformedProductID(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	_, err := repo.ItemQuantity(context.Background(), "c1", "xyz")
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.ErrorIs(t, repo.DeleteItem(context.Background(), "c1", "xyz"), ErrItemNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Lines(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(`SELECT ci.product_id, ci.quantity\s+FROM cart_items ci\s+JOIN carts c`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "quantity"}).
			AddRow("a", 1).
			AddRow("b", 4))

	lines, err := repo.Lines(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []Line{{ProductID: "a", Quantity: 1}, {ProductID: "b", Quantity: 4}}, lines)
}

func TestPostgresRepository_SetItem(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts and touches cart", func(t *testing.T) {
		mock := newMock(t)
		repo := NewPostgresRepository(mock)
		mock.ExpectExec(`INSERT INTO cart_items .* ON CONFLICT \(cart_id, product_id\)`).
			WithArgs(pgxmock.AnyArg(), "c1", widgetID, 3).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE carts SET updated_at=$2 WHERE id=$1`)).
			WithArgs("c1", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.SetItem(ctx, "c1", widgetID, 3))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		repo := NewPostgresRepository(newMock(t))
		assert.ErrorIs(t, repo.SetItem(ctx, "c1", widgetID, 0), ErrInvalidQuantity)
	})
}

func TestPostgresRepository_DeleteItemMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)
	mock.ExpectExec(`DELETE FROM cart_items WHERE cart_id=\$1 AND product_id=\$2`).
		WithArgs("c1", widgetID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.DeleteItem(context.Background(), "c1", widgetID)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestPostgresRepository_ClearByUserKeepsCart(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)
	mock.ExpectExec(`DELETE FROM cart_items\s+WHERE cart_id IN \(SELECT id FROM carts WHERE user_id = \$1\)`).
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	require.NoError(t, repo.ClearByUser(context.Background(), userID))
	require.NoError(t, mock.ExpectationsWereMet())
}
