package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/reservaplay/facility-booking/internal/model"
)

// ErrTemplateNotFound is returned when a block template lookup fails.
var ErrTemplateNotFound = errors.New("block template not found")

// BlockTemplateRepo manages the registry of standard daily time
// slots. The set is small and shared by all facilities; the block
// generator reads it when materializing instances.
type BlockTemplateRepo struct {
	db *sql.DB
}

// NewBlockTemplateRepo returns a new BlockTemplateRepo bound to the given database.
func NewBlockTemplateRepo(db *sql.DB) *BlockTemplateRepo { return &BlockTemplateRepo{db: db} }

// Create inserts a new template and populates the generated ID.
func (r *BlockTemplateRepo) Create(ctx context.Context, t *model.BlockTemplate) error {
	const q = `INSERT INTO block_templates (slot, start_time, end_time) VALUES (?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, t.Slot, t.StartTime, t.EndTime)
	if err != nil {
		return asConflict(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// List returns every template ordered by slot index.
func (r *BlockTemplateRepo) List(ctx context.Context) ([]model.BlockTemplate, error) {
	const q = `SELECT id, slot, start_time, end_time FROM block_templates ORDER BY slot`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	templates := make([]model.BlockTemplate, 0)
	for rows.Next() {
		var t model.BlockTemplate
		if err := rows.Scan(&t.ID, &t.Slot, &t.StartTime, &t.EndTime); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return templates, nil
}

// UpdateTimes changes the start and end time of a template. It
// returns ErrTemplateNotFound when the template does not exist.
func (r *BlockTemplateRepo) UpdateTimes(ctx context.Context, id uint64, startTime, endTime string) error {
	const q = `UPDATE block_templates SET start_time = ?, end_time = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q, startTime, endTime, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// Delete removes a template. It returns ErrTemplateNotFound when no
// row matched and ErrConflict when materialized instances still
// reference the template.
func (r *BlockTemplateRepo) Delete(ctx context.Context, id uint64) error {
	const q = `DELETE FROM block_templates WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return asConflict(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTemplateNotFound
	}
	return nil
}
