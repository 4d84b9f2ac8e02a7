package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/reservaplay/facility-booking/internal/model"
)

// ErrFacilityNotFound is returned when a facility lookup fails.
var ErrFacilityNotFound = errors.New("facility not found")

// FacilityRepo reads facility rows. Facilities are owned by an
// external CRUD surface; this engine only needs the tier, price and
// contact address when branching between the free and paid flows.
type FacilityRepo struct {
	db *sql.DB
}

// NewFacilityRepo returns a new FacilityRepo bound to the given database.
func NewFacilityRepo(db *sql.DB) *FacilityRepo { return &FacilityRepo{db: db} }

// GetByID loads a single facility. It returns ErrFacilityNotFound
// when no row matches.
func (r *FacilityRepo) GetByID(ctx context.Context, id uint64) (*model.Facility, error) {
	const q = `SELECT id, name, tier, price_cents, contact_email FROM facilities WHERE id = ?`
	var f model.Facility
	err := r.db.QueryRowContext(ctx, q, id).Scan(&f.ID, &f.Name, &f.Tier, &f.PriceCents, &f.ContactEmail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFacilityNotFound
		}
		return nil, err
	}
	return &f, nil
}
