package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/reservaplay/facility-booking/internal/model"
)

func newPaymentRepo(t *testing.T) (*PaymentRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPaymentRepo(db), mock
}

func TestFinalizeIfPendingFirstCallWins(t *testing.T) {
	repo, mock := newPaymentRepo(t)
	mock.ExpectExec("UPDATE payments SET status = ").
		WithArgs(model.PaymentCompleted, "tok-1", model.PaymentPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE payments SET status = ").
		WithArgs(model.PaymentCompleted, "tok-1", model.PaymentPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.FinalizeIfPending(context.Background(), "tok-1", model.PaymentCompleted)
	require.NoError(t, err)
	require.True(t, changed)

	// A replayed callback finds the row no longer pending.
	changed, err = repo.FinalizeIfPending(context.Background(), "tok-1", model.PaymentCompleted)
	require.NoError(t, err)
	require.False(t, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByTransactionIDNotFound(t *testing.T) {
	repo, mock := newPaymentRepo(t)
	mock.ExpectQuery("FROM payments").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "reservation_id", "amount_cents", "status", "transaction_id", "created_at", "updated_at"}))

	_, err := repo.GetByTransactionID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrPaymentNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
