package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/readypixelgo/venue-booking/internal/model"
)

// WaitlistRepo provides data access to the waitlist table.  Email is the
// natural key.
type WaitlistRepo struct {
	db *sql.DB
}

// NewWaitlistRepo returns a new WaitlistRepo bound to the given database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

const waitlistColumns = `id, email, first_name, last_name, DATE_FORMAT(dob, '%Y-%m-%d'),
	consent, code_sent, code_sent_at, created_at`

func scanWaitlist(row rowScanner) (*model.WaitlistEntry, error) {
	var e model.WaitlistEntry
	var dob sql.NullString
	var sentAt sql.NullTime
	if err := row.Scan(&e.ID, &e.Email, &e.FirstName, &e.LastName, &dob,
		&e.Consent, &e.CodeSent, &sentAt, &e.CreatedAt); err != nil {
		return nil, err
	}
	if dob.Valid {
		d := dob.String
		e.DOB = &d
	}
	if sentAt.Valid {
		t := sentAt.Time
		e.CodeSentAt = &t
	}
	return &e, nil
}

// GetByEmail returns the entry for email or ErrNotFound.
func (r *WaitlistRepo) GetByEmail(ctx context.Context, email string) (*model.WaitlistEntry, error) {
	e, err := scanWaitlist(r.db.QueryRowContext(ctx,
		`SELECT `+waitlistColumns+` FROM waitlist WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// Upsert inserts the entry or refreshes the profile fields of an existing
// one.  created_at and the code flags are never touched by an upsert.
func (r *WaitlistRepo) Upsert(ctx context.Context, e model.WaitlistEntry) error {
	const q = `INSERT INTO waitlist (email, first_name, last_name, dob, consent)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE first_name = VALUES(first_name), last_name = VALUES(last_name),
			dob = VALUES(dob), consent = VALUES(consent)`
	var dob any
	if e.DOB != nil {
		dob = *e.DOB
	}
	_, err := r.db.ExecContext(ctx, q, e.Email, e.FirstName, e.LastName, dob, e.Consent)
	return err
}

// ClaimCode marks the entry as having received a discount code when it
// consented, has not received one yet, and fewer than limit codes have been
// sent in total.  The count is read under a locking read so concurrent
// claims cannot overshoot the limit.  It reports whether this call claimed
// the code.
func (r *WaitlistRepo) ClaimCode(ctx context.Context, email string, limit int, at time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var sent int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM waitlist WHERE code_sent = 1 FOR UPDATE`).Scan(&sent); err != nil {
		return false, err
	}
	if sent >= limit {
		return false, nil
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE waitlist SET code_sent = 1, code_sent_at = ?
		 WHERE email = ? AND code_sent = 0 AND consent = 1`, at.UTC(), email)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return n == 1, nil
}

// ReleaseCode undoes a claim whose email could not be delivered so the slot
// under the limit is not lost.
func (r *WaitlistRepo) ReleaseCode(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE waitlist SET code_sent = 0, code_sent_at = NULL WHERE email = ? AND code_sent = 1`, email)
	return err
}

// Delete removes the entry for email and reports whether one existed.
func (r *WaitlistRepo) Delete(ctx context.Context, email string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM waitlist WHERE email = ?`, email)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Stats returns the total and code-sent counts plus the newest rows.
func (r *WaitlistRepo) Stats(ctx context.Context, latest int) (total, sent int, rows []model.WaitlistEntry, err error) {
	if err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(code_sent), 0) FROM waitlist`).Scan(&total, &sent); err != nil {
		return 0, 0, nil, err
	}
	rs, err := r.db.QueryContext(ctx,
		`SELECT `+waitlistColumns+` FROM waitlist ORDER BY created_at DESC LIMIT ?`, latest)
	if err != nil {
		return 0, 0, nil, err
	}
	defer rs.Close()
	rows = []model.WaitlistEntry{}
	for rs.Next() {
		e, scanErr := scanWaitlist(rs)
		if scanErr != nil {
			return 0, 0, nil, scanErr
		}
		rows = append(rows, *e)
	}
	return total, sent, rows, rs.Err()
}
