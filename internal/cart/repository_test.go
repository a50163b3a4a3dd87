package cart_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/cart"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/session"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "postgres"), mock
}

var lineCols = []string{"id", "user_id", "session_id", "product_id", "size", "color", "quantity", "price_at_time", "created_at", "updated_at"}

func TestCartRepository_Delete_ScopedToOwner(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := cart.NewRepository(sqlxDB)

	intruder := session.Owner{GuestToken: session.NewGuestToken()}
	lineID := uuid.Must(uuid.NewV4())

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cart_items WHERE id = $1 AND session_id = $2`)).
		WithArgs(lineID, intruder.GuestToken).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), intruder, lineID)
	require.ErrorIs(t, err, cart.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Clear(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := cart.NewRepository(sqlxDB)
	owner := session.Owner{UserID: uuid.Must(uuid.NewV4())}

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cart_items WHERE user_id = $1`)).
		WithArgs(owner.UserID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cart_items WHERE user_id = $1`)).
		WithArgs(owner.UserID).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.Clear(context.Background(), owner)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = repo.Clear(context.Background(), owner)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Upsert(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := cart.NewRepository(sqlxDB)

	owner := session.Owner{GuestToken: session.NewGuestToken()}
	productID := uuid.Must(uuid.NewV4())
	storedID := uuid.Must(uuid.NewV4())
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (session_id, product_id, size, color) WHERE session_id IS NOT NULL DO UPDATE`)).
		WithArgs(sqlmock.AnyArg(), owner.GuestToken, productID, "M", "Maroon", 4, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(lineCols).
			AddRow(storedID.String(), nil, owner.GuestToken, productID.String(), "M", "Maroon", 4, "1299.00", now, now))

	line := &cart.Line{ProductID: productID, Size: "M", Color: "Maroon", Quantity: 4, PriceAtTime: decimal.RequireFromString("1299")}
	require.NoError(t, repo.Upsert(context.Background(), owner, line))
	require.Equal(t, storedID, line.ID)
	require.Equal(t, owner.GuestToken, line.SessionID.String)
	require.False(t, line.UserID.Valid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Reconcile(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := cart.NewRepository(sqlxDB)

	guest := session.NewGuestToken()
	userID := uuid.Must(uuid.NewV4())
	dupGuestLine := uuid.Must(uuid.NewV4())
	newGuestLine := uuid.Must(uuid.NewV4())
	existingUserLine := uuid.Must(uuid.NewV4())
	productA := uuid.Must(uuid.NewV4())
	productB := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE ci.session_id = $1`)).
		WithArgs(guest).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "size", "color", "quantity", "price", "stock_quantity"}).
			AddRow(dupGuestLine.String(), productA.String(), "M", "", 3, "999.00", 4).
			AddRow(newGuestLine.String(), productB.String(), "", "Blue", 1, "500.00", 0))

	// Line for product A collides: 2 + 3 is capped to the stock of 4.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, quantity FROM cart_items`)).
		WithArgs(userID, productA, "M", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "quantity"}).AddRow(existingUserLine.String(), 2))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE cart_items SET quantity = $1, price_at_time = $2`)).
		WithArgs(4, sqlmock.AnyArg(), sqlmock.AnyArg(), existingUserLine).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cart_items WHERE id = $1`)).
		WithArgs(dupGuestLine).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Line for product B is moved.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, quantity FROM cart_items`)).
		WithArgs(userID, productB, "", "Blue").
		WillReturnRows(sqlmock.NewRows([]string{"id", "quantity"}))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE cart_items SET user_id = $1, session_id = NULL`)).
		WithArgs(userID, sqlmock.AnyArg(), newGuestLine).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := repo.Reconcile(context.Background(), guest, userID)
	require.NoError(t, err)
	require.Equal(t, cart.ReconcileResult{Merged: 1, Moved: 1}, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Reconcile_RollsBack(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := cart.NewRepository(sqlxDB)

	guest := session.NewGuestToken()
	userID := uuid.Must(uuid.NewV4())
	lineID := uuid.Must(uuid.NewV4())
	productID := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE ci.session_id = $1`)).
		WithArgs(guest).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "size", "color", "quantity", "price", "stock_quantity"}).
			AddRow(lineID.String(), productID.String(), "", "", 1, "10.00", 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, quantity FROM cart_items`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "quantity"}))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE cart_items SET user_id = $1`)).
		WillReturnError(sqlmock.ErrCancelled)
	mock.ExpectRollback()

	_, err := repo.Reconcile(context.Background(), guest, userID)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
