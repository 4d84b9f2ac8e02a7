package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/reservaplay/facility-booking/internal/model"
)

// ErrReservationNotFound is returned when a reservation lookup fails.
var ErrReservationNotFound = errors.New("reservation not found")

// ReservationRepo provides persistence for reservations. A
// reservation references exactly one block instance; the block's
// availability flag is managed by BlockInstanceRepo, never here.
// All timestamp fields are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// Create inserts a new reservation and populates the generated ID and
// timestamps on the passed model. Status must be one of the defined
// enumeration values.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations (user_id, block_instance_id, status) VALUES (?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, res.UserID, res.BlockInstanceID, res.Status)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	// Query back the full row to populate timestamps and defaults.
	const sel = `SELECT id, user_id, block_instance_id, status, created_at, updated_at FROM reservations WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, res.ID).Scan(
		&res.ID, &res.UserID, &res.BlockInstanceID, &res.Status, &res.CreatedAt, &res.UpdatedAt,
	)
}

// GetByID loads a reservation row. It returns ErrReservationNotFound
// when no row matches.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT id, user_id, block_instance_id, status, created_at, updated_at FROM reservations WHERE id = ?`
	var res model.Reservation
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&res.ID, &res.UserID, &res.BlockInstanceID, &res.Status, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &res, nil
}

// ReservationDetail joins a reservation with its block instance,
// template times and facility for display to users.
type ReservationDetail struct {
	ID              uint64 `json:"id"`
	UserID          uint64 `json:"user_id"`
	BlockInstanceID uint64 `json:"block_instance_id"`
	Status          string `json:"status"`
	FacilityID      uint64 `json:"facility_id"`
	FacilityName    string `json:"facility_name"`
	Tier            string `json:"tier"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	CreatedAt       string `json:"created_at"`
}

// GetDetail returns a reservation joined with facility and slot
// information. It returns ErrReservationNotFound when no row matches.
func (r *ReservationRepo) GetDetail(ctx context.Context, id uint64) (*ReservationDetail, error) {
	const q = `SELECT r.id, r.user_id, r.block_instance_id, r.status,
	                  f.id, f.name, f.tier,
	                  bi.date, t.start_time, t.end_time,
	                  r.created_at
	           FROM reservations r
	           JOIN facility_block_instances bi ON bi.id = r.block_instance_id
	           JOIN block_templates t ON t.id = bi.template_id
	           JOIN facilities f ON f.id = bi.facility_id
	           WHERE r.id = ?`
	var det ReservationDetail
	var createdAt sql.NullTime
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&det.ID, &det.UserID, &det.BlockInstanceID, &det.Status,
		&det.FacilityID, &det.FacilityName, &det.Tier,
		&det.Date, &det.StartTime, &det.EndTime,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	if createdAt.Valid {
		det.CreatedAt = createdAt.Time.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return &det, nil
}

// CountActiveForUserOnDate counts the user's reservations in
// PENDING_PAYMENT or CONFIRMED state whose block instance falls on
// the given date, across all facilities. The quota check reads this
// before reserving; the count is advisory, not serialized against
// concurrent bookings by the same user.
func (r *ReservationRepo) CountActiveForUserOnDate(ctx context.Context, userID uint64, date string) (int, error) {
	const q = `SELECT COUNT(*)
	           FROM reservations r
	           JOIN facility_block_instances bi ON bi.id = r.block_instance_id
	           WHERE r.user_id = ? AND bi.date = ? AND r.status IN (?, ?)`
	var n int
	err := r.db.QueryRowContext(ctx, q, userID, date, model.ReservationPendingPayment, model.ReservationConfirmed).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ConfirmIfPending flips a PENDING_PAYMENT reservation to CONFIRMED
// and reports whether a row changed. The payment callback confirms
// through this, so an authorized commit that lost a race against a
// cancellation or the expiry sweep leaves the terminal status in
// place instead of overwriting it.
func (r *ReservationRepo) ConfirmIfPending(ctx context.Context, id uint64) (bool, error) {
	return r.moveIf(ctx, id, model.ReservationConfirmed, model.ReservationPendingPayment)
}

// CancelIfActive flips an active reservation to CANCELLED in one
// conditional statement and reports whether a row changed. A false
// result means the reservation was already terminal (or never
// existed); callers must not release the block in that case. The
// status write lands before any release, which keeps a crash between
// the two steps recoverable: a cancelled reservation with a stale
// hold can be released, an available block with an active
// reservation cannot be told apart from a double booking.
func (r *ReservationRepo) CancelIfActive(ctx context.Context, id uint64) (bool, error) {
	return r.moveIf(ctx, id, model.ReservationCancelled,
		model.ReservationPendingPayment, model.ReservationConfirmed)
}

// FailIfPending flips a PENDING_PAYMENT reservation to FAILED and
// reports whether a row changed. Both the declined-payment path and
// the abandoned-checkout sweep go through this, so a payment callback
// racing the sweep resolves to exactly one FAILED transition.
func (r *ReservationRepo) FailIfPending(ctx context.Context, id uint64) (bool, error) {
	return r.moveIf(ctx, id, model.ReservationFailed, model.ReservationPendingPayment)
}

func (r *ReservationRepo) moveIf(ctx context.Context, id uint64, to string, from ...string) (bool, error) {
	q := `UPDATE reservations SET status = ? WHERE id = ? AND status IN (?`
	args := []interface{}{to, id}
	for i, s := range from {
		if i > 0 {
			q += ", ?"
		}
		args = append(args, s)
	}
	q += `)`
	result, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Repoint moves a reservation to a different block instance. Only the
// modify flow may call this, and only after the new instance has been
// reserved.
func (r *ReservationRepo) Repoint(ctx context.Context, id, newInstanceID uint64) error {
	const q = `UPDATE reservations SET block_instance_id = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q, newInstanceID, id)
	if err != nil {
		return err
	}
	if _, err := result.RowsAffected(); err != nil {
		return err
	}
	return nil
}

// ListPendingOlderThan returns PENDING_PAYMENT reservations created
// before the cutoff, oldest first. Input to the abandoned-checkout
// sweep.
func (r *ReservationRepo) ListPendingOlderThan(ctx context.Context, cutoff string) ([]model.Reservation, error) {
	const q = `SELECT id, user_id, block_instance_id, status, created_at, updated_at
	           FROM reservations
	           WHERE status = ? AND created_at < ?
	           ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, model.ReservationPendingPayment, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.UserID, &res.BlockInstanceID, &res.Status, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
