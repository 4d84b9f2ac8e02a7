package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/reservaplay/facility-booking/internal/model"
)

func newReservationRepo(t *testing.T) (*ReservationRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewReservationRepo(db), mock
}

func TestCreatePopulatesIDAndTimestamps(t *testing.T) {
	repo, mock := newReservationRepo(t)
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO reservations").
		WithArgs(uint64(42), uint64(7), model.ReservationPendingPayment).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery("SELECT id, user_id, block_instance_id, status, created_at, updated_at").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "block_instance_id", "status", "created_at", "updated_at"}).
			AddRow(5, 42, 7, model.ReservationPendingPayment, now, now))

	res := &model.Reservation{UserID: 42, BlockInstanceID: 7, Status: model.ReservationPendingPayment}
	require.NoError(t, repo.Create(context.Background(), res))
	require.Equal(t, uint64(5), res.ID)
	require.Equal(t, now, res.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountActiveForUserOnDate(t *testing.T) {
	repo, mock := newReservationRepo(t)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(uint64(42), "2026-09-01", model.ReservationPendingPayment, model.ReservationConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.CountActiveForUserOnDate(context.Background(), 42, "2026-09-01")
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelIfActiveChangesExactlyOnce(t *testing.T) {
	repo, mock := newReservationRepo(t)
	mock.ExpectExec("UPDATE reservations SET status = ").
		WithArgs(model.ReservationCancelled, uint64(5), model.ReservationPendingPayment, model.ReservationConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE reservations SET status = ").
		WithArgs(model.ReservationCancelled, uint64(5), model.ReservationPendingPayment, model.ReservationConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.CancelIfActive(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, changed)

	// Second cancel finds the row already terminal.
	changed, err = repo.CancelIfActive(context.Background(), 5)
	require.NoError(t, err)
	require.False(t, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmIfPendingLeavesTerminalRowsAlone(t *testing.T) {
	repo, mock := newReservationRepo(t)
	mock.ExpectExec("UPDATE reservations SET status = ").
		WithArgs(model.ReservationConfirmed, uint64(5), model.ReservationPendingPayment).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE reservations SET status = ").
		WithArgs(model.ReservationConfirmed, uint64(6), model.ReservationPendingPayment).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.ConfirmIfPending(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, changed)

	// A cancelled or failed row does not match the guard.
	changed, err = repo.ConfirmIfPending(context.Background(), 6)
	require.NoError(t, err)
	require.False(t, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFailIfPendingOnlyMovesPendingRows(t *testing.T) {
	repo, mock := newReservationRepo(t)
	mock.ExpectExec("UPDATE reservations SET status = ").
		WithArgs(model.ReservationFailed, uint64(9), model.ReservationPendingPayment).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.FailIfPending(context.Background(), 9)
	require.NoError(t, err)
	require.False(t, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListPendingOlderThan(t *testing.T) {
	repo, mock := newReservationRepo(t)
	created := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, user_id, block_instance_id, status, created_at, updated_at").
		WithArgs(model.ReservationPendingPayment, "2026-09-01 09:30:00").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "block_instance_id", "status", "created_at", "updated_at"}).
			AddRow(5, 42, 7, model.ReservationPendingPayment, created, created))

	pending, err := repo.ListPendingOlderThan(context.Background(), "2026-09-01 09:30:00")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, uint64(7), pending[0].BlockInstanceID)
	require.NoError(t, mock.ExpectationsWereMet())
}
