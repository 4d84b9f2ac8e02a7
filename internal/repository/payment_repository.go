package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/reservaplay/facility-booking/internal/model"
)

// ErrPaymentNotFound is returned when a payment lookup fails.
var ErrPaymentNotFound = errors.New("payment not found")

// PaymentRepo persists the gateway transactions backing premium
// reservations. Rows are created as pending and finalized exactly
// once through FinalizeIfPending, which is what makes repeated
// provider callbacks harmless.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// Create inserts a payment row and populates the generated ID.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	const q = `INSERT INTO payments (reservation_id, amount_cents, status, transaction_id) VALUES (?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, p.ReservationID, p.AmountCents, p.Status, p.TransactionID)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByTransactionID loads a payment by the provider's token. It
// returns ErrPaymentNotFound when no row matches.
func (r *PaymentRepo) GetByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error) {
	const q = `SELECT id, reservation_id, amount_cents, status, transaction_id, created_at, updated_at
	           FROM payments WHERE transaction_id = ?`
	var p model.Payment
	err := r.db.QueryRowContext(ctx, q, transactionID).Scan(
		&p.ID, &p.ReservationID, &p.AmountCents, &p.Status, &p.TransactionID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// OpenByReservation returns the pending payment of a reservation, or
// ErrPaymentNotFound when the reservation has no open payment.
func (r *PaymentRepo) OpenByReservation(ctx context.Context, reservationID uint64) (*model.Payment, error) {
	const q = `SELECT id, reservation_id, amount_cents, status, transaction_id, created_at, updated_at
	           FROM payments WHERE reservation_id = ? AND status = ?`
	var p model.Payment
	err := r.db.QueryRowContext(ctx, q, reservationID, model.PaymentPending).Scan(
		&p.ID, &p.ReservationID, &p.AmountCents, &p.Status, &p.TransactionID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FinalizeIfPending moves a payment out of the pending state in a
// single conditional update keyed on the provider token. It reports
// false without error when the payment was already finalized, so a
// retried callback observes a no-op instead of rewriting terminal
// state.
func (r *PaymentRepo) FinalizeIfPending(ctx context.Context, transactionID, status string) (bool, error) {
	const q = `UPDATE payments SET status = ?, updated_at = NOW() WHERE transaction_id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, q, status, transactionID, model.PaymentPending)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
