package repository

import (
	"context"
	"database/sql"

	"github.com/readypixelgo/venue-booking/internal/model"
)

// OverrideRepo provides data access to the time_slot_overrides table.  Only
// closed slots are stored; reopening a slot deletes its row.
type OverrideRepo struct {
	db *sql.DB
}

// NewOverrideRepo returns a new OverrideRepo bound to the given database.
func NewOverrideRepo(db *sql.DB) *OverrideRepo { return &OverrideRepo{db: db} }

// ListByDate returns the overrides stored for a date ordered by slot.
func (r *OverrideRepo) ListByDate(ctx context.Context, date string) ([]model.SlotOverride, error) {
	const q = `SELECT DATE_FORMAT(slot_date, '%Y-%m-%d'), time_slot, is_active, updated_by, updated_at
		FROM time_slot_overrides WHERE slot_date = ? ORDER BY time_slot`
	rows, err := r.db.QueryContext(ctx, q, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.SlotOverride{}
	for rows.Next() {
		var o model.SlotOverride
		if err := rows.Scan(&o.SlotDate, &o.TimeSlot, &o.IsActive, &o.UpdatedBy, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Set applies one override.  isActive=true removes any stored row;
// isActive=false upserts a closed row keyed by (date, slot).
func (r *OverrideRepo) Set(ctx context.Context, date, slot string, isActive bool, updatedBy string) error {
	if isActive {
		_, err := r.db.ExecContext(ctx,
			`DELETE FROM time_slot_overrides WHERE slot_date = ? AND time_slot = ?`, date, slot)
		return err
	}
	const q = `INSERT INTO time_slot_overrides (slot_date, time_slot, is_active, updated_by)
		VALUES (?, ?, 0, ?)
		ON DUPLICATE KEY UPDATE is_active = 0, updated_by = VALUES(updated_by), updated_at = CURRENT_TIMESTAMP(3)`
	_, err := r.db.ExecContext(ctx, q, date, slot, updatedBy)
	return err
}
