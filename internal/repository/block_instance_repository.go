package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/reservaplay/facility-booking/internal/model"
)

// ErrBlockNotFound is returned when a block instance lookup fails.
var ErrBlockNotFound = errors.New("block instance not found")

// BlockInstanceRepo owns the availability flag of facility block
// instances. Reserve is the only way a block becomes unavailable to
// bookings and Release the only way it returns to the pool, so every
// other component treats the flag as read-only.
type BlockInstanceRepo struct {
	db *sql.DB
}

// NewBlockInstanceRepo returns a new BlockInstanceRepo bound to the given database.
func NewBlockInstanceRepo(db *sql.DB) *BlockInstanceRepo { return &BlockInstanceRepo{db: db} }

// Upsert inserts one (facility, template, date) instance with
// available = TRUE, skipping silently when the combination already
// exists. The unique key on the triple makes range generation
// idempotent. It reports whether a new row was created.
func (r *BlockInstanceRepo) Upsert(ctx context.Context, facilityID, templateID uint64, date string) (bool, error) {
	const q = `INSERT IGNORE INTO facility_block_instances (facility_id, template_id, date, available)
	           VALUES (?, ?, ?, TRUE)`
	result, err := r.db.ExecContext(ctx, q, facilityID, templateID, date)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Reserve flips available from TRUE to FALSE in a single conditional
// update. When zero rows change the block is either missing or
// already held: a follow-up existence probe distinguishes
// ErrBlockNotFound from ErrConflict. This statement is the sole
// mutual-exclusion mechanism against double booking; it is safe
// across processes because the condition and the write are one
// statement at the storage layer.
func (r *BlockInstanceRepo) Reserve(ctx context.Context, id uint64) error {
	const q = `UPDATE facility_block_instances SET available = FALSE WHERE id = ? AND available = TRUE`
	result, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM facility_block_instances WHERE id = ?)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrBlockNotFound
	}
	return ErrConflict
}

// Release unconditionally sets available back to TRUE. Releasing an
// already-available instance is a no-op success, which keeps
// compensating releases and repeated payment callbacks safe.
func (r *BlockInstanceRepo) Release(ctx context.Context, id uint64) error {
	const q = `UPDATE facility_block_instances SET available = TRUE WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports zero affected rows both for a missing row and
		// for a row already TRUE; probe to tell them apart.
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM facility_block_instances WHERE id = ?)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrBlockNotFound
		}
	}
	return nil
}

// Status reports the availability flag of one instance. It returns
// ErrBlockNotFound when the instance does not exist.
func (r *BlockInstanceRepo) Status(ctx context.Context, id uint64) (bool, error) {
	const q = `SELECT available FROM facility_block_instances WHERE id = ?`
	var available bool
	err := r.db.QueryRowContext(ctx, q, id).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrBlockNotFound
		}
		return false, err
	}
	return available, nil
}

// GetWithFacility loads an instance together with the facility it
// belongs to, so the booking flow can branch on tier and price with a
// single query. ErrBlockNotFound covers both a missing instance and a
// dangling facility reference.
func (r *BlockInstanceRepo) GetWithFacility(ctx context.Context, id uint64) (*model.BlockInstance, *model.Facility, error) {
	const q = `SELECT bi.id, bi.facility_id, bi.template_id, bi.date, bi.available,
	                  f.id, f.name, f.tier, f.price_cents, f.contact_email
	           FROM facility_block_instances bi
	           JOIN facilities f ON f.id = bi.facility_id
	           WHERE bi.id = ?`
	var inst model.BlockInstance
	var fac model.Facility
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&inst.ID, &inst.FacilityID, &inst.TemplateID, &inst.Date, &inst.Available,
		&fac.ID, &fac.Name, &fac.Tier, &fac.PriceCents, &fac.ContactEmail,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrBlockNotFound
		}
		return nil, nil, err
	}
	return &inst, &fac, nil
}

// AvailabilitySlot is one row of the per-date availability listing:
// the instance joined with its template times.
type AvailabilitySlot struct {
	InstanceID uint64 `json:"instance_id"`
	TemplateID uint64 `json:"template_id"`
	Slot       uint32 `json:"slot"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Available  bool   `json:"available"`
}

// AvailabilityForDate lists every instance of a facility on a date,
// joined with template times and ordered by start time. The result
// is a fresh snapshot per call.
func (r *BlockInstanceRepo) AvailabilityForDate(ctx context.Context, facilityID uint64, date string) ([]AvailabilitySlot, error) {
	const q = `SELECT bi.id, bi.template_id, t.slot, t.start_time, t.end_time, bi.available
	           FROM facility_block_instances bi
	           JOIN block_templates t ON t.id = bi.template_id
	           WHERE bi.facility_id = ? AND bi.date = ?
	           ORDER BY t.start_time`
	rows, err := r.db.QueryContext(ctx, q, facilityID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	slots := make([]AvailabilitySlot, 0)
	for rows.Next() {
		var s AvailabilitySlot
		if err := rows.Scan(&s.InstanceID, &s.TemplateID, &s.Slot, &s.StartTime, &s.EndTime, &s.Available); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}

// ListByFacility returns every instance of a facility ordered by date.
func (r *BlockInstanceRepo) ListByFacility(ctx context.Context, facilityID uint64) ([]model.BlockInstance, error) {
	const q = `SELECT id, facility_id, template_id, date, available, created_at
	           FROM facility_block_instances
	           WHERE facility_id = ?
	           ORDER BY date`
	rows, err := r.db.QueryContext(ctx, q, facilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	instances := make([]model.BlockInstance, 0)
	for rows.Next() {
		var b model.BlockInstance
		if err := rows.Scan(&b.ID, &b.FacilityID, &b.TemplateID, &b.Date, &b.Available, &b.CreatedAt); err != nil {
			return nil, err
		}
		instances = append(instances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return instances, nil
}

// DeleteForDate removes every instance of a facility on one date.
// Administrative purge only; instances referenced by reservations are
// held back by the foreign key and the whole delete fails with
// ErrConflict.
func (r *BlockInstanceRepo) DeleteForDate(ctx context.Context, facilityID uint64, date string) (int64, error) {
	const q = `DELETE FROM facility_block_instances WHERE facility_id = ? AND date = ?`
	result, err := r.db.ExecContext(ctx, q, facilityID, date)
	if err != nil {
		return 0, asConflict(err)
	}
	return result.RowsAffected()
}
