package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/readypixelgo/venue-booking/internal/model"
)

// BookingRepo provides data access to the bookings table.  Dates travel as
// "YYYY-MM-DD" strings; created_at is stored in UTC.
//
// The table's generated active_slot column and the unique index over
// (booking_date, time_slot, active_slot) make every write that would leave
// two paid or pending bookings on one slot fail with a duplicate-key error,
// which the repo reports as ErrSlotTaken.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, DATE_FORMAT(booking_date, '%Y-%m-%d'), time_slot, adults, children,
	total_price, email, phone, payment_method, payment_status, discount_code,
	discount_percent, provider_session_id, created_at, expired`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var b model.Booking
	var status string
	var code sql.NullString
	err := row.Scan(&b.ID, &b.BookingDate, &b.TimeSlot, &b.Adults, &b.Children,
		&b.TotalPrice, &b.Email, &b.Phone, &b.PaymentMethod, &status, &code,
		&b.DiscountPercent, &b.ProviderSessionID, &b.CreatedAt, &b.Expired)
	if err != nil {
		return nil, err
	}
	b.PaymentStatus = model.PaymentStatus(status)
	if code.Valid {
		c := code.String
		b.DiscountCode = &c
	}
	return &b, nil
}

func scanBookings(rows *sql.Rows) ([]model.Booking, error) {
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Create inserts a pending booking.  CreatedAt is set by the caller so the
// hold window starts at a time the service controls.  A concurrent booking
// that already holds the slot makes this fail with ErrSlotTaken and
// nothing is written.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (id, booking_date, time_slot, adults, children, total_price,
		email, phone, payment_method, payment_status, discount_code, discount_percent,
		provider_session_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var code any
	if b.DiscountCode != nil {
		code = *b.DiscountCode
	}
	_, err := r.db.ExecContext(ctx, q, b.ID, b.BookingDate, b.TimeSlot, b.Adults, b.Children,
		b.TotalPrice, b.Email, b.Phone, b.PaymentMethod, string(b.PaymentStatus), code,
		b.DiscountPercent, b.ProviderSessionID, b.CreatedAt.UTC())
	if isDuplicate(err) {
		return ErrSlotTaken
	}
	return err
}

// ActiveByDate lists the paid and pending bookings on a date, ordered by
// slot.
func (r *BookingRepo) ActiveByDate(ctx context.Context, date string) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE booking_date = ? AND payment_status IN ('paid','pending')
		ORDER BY time_slot`
	rows, err := r.db.QueryContext(ctx, q, date)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

// GetByID returns one booking or ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// GetBySession returns the booking created for a checkout session or
// ErrNotFound.
func (r *BookingRepo) GetBySession(ctx context.Context, sessionID string) (*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE provider_session_id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// ExpirePending cancels pending bookings created before cutoff, marks them
// expired and returns how many rows changed together with the distinct
// dates they were on.  An empty date sweeps every date.  The rows are
// locked while their dates are read so the update touches exactly that
// set; the WHERE clause re-checks the status so a booking confirmed
// concurrently is never cancelled, and running it twice changes nothing
// the second time.
func (r *BookingRepo) ExpirePending(ctx context.Context, cutoff time.Time, date string) (int64, []string, error) {
	where := ` WHERE payment_status = 'pending' AND created_at < ?`
	args := []any{cutoff.UTC()}
	if date != "" {
		where += ` AND booking_date = ?`
		args = append(args, date)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx,
		`SELECT DISTINCT DATE_FORMAT(booking_date, '%Y-%m-%d') FROM bookings`+where+` FOR UPDATE`, args...)
	if err != nil {
		return 0, nil, err
	}
	dates := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			_ = rows.Close()
			return 0, nil, err
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, nil, err
	}
	_ = rows.Close()
	if len(dates) == 0 {
		return 0, dates, nil
	}

	res, err := tx.ExecContext(ctx, `UPDATE bookings SET payment_status = 'cancelled', expired = 1`+where, args...)
	if err != nil {
		return 0, nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil, err
	}
	if err := tx.Commit(); err != nil {
		return 0, nil, err
	}
	committed = true
	return n, dates, nil
}

// SetStatus moves a booking to status `to` only if its current status is one
// of `from`, clearing the expired marker.  It reports whether the row
// changed.  A transition into an active status that collides with another
// active booking on the same slot returns ErrSlotTaken.
func (r *BookingRepo) SetStatus(ctx context.Context, id string, from []model.PaymentStatus, to model.PaymentStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	q := `UPDATE bookings SET payment_status = ?, expired = 0 WHERE id = ? AND payment_status IN (` +
		placeholders(len(from)) + `)`
	args := make([]any, 0, len(from)+2)
	args = append(args, string(to), id)
	for _, s := range from {
		args = append(args, string(s))
	}
	return r.execChanged(ctx, q, args...)
}

// ReinstatePaid marks a booking paid when the payment arrived after the
// booking left the active set on its own: it failed an earlier check or
// its hold was reaped.  Bookings an operator cancelled are not touched.
// A slot resold in the meantime yields ErrSlotTaken.
func (r *BookingRepo) ReinstatePaid(ctx context.Context, id string) (bool, error) {
	const q = `UPDATE bookings SET payment_status = 'paid', expired = 0
		WHERE id = ? AND (payment_status = 'failed' OR (payment_status = 'cancelled' AND expired = 1))`
	return r.execChanged(ctx, q, id)
}

func (r *BookingRepo) execChanged(ctx context.Context, q string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, q, args...)
	if isDuplicate(err) {
		return false, ErrSlotTaken
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Update applies the supplied fields of upd to a booking in one
// transaction.  The row is locked first.  A result with no guests yields
// ErrNoGuests.  When the effective (date, slot) changes and the booking is
// active, another active booking on the target slot yields ErrSlotTaken.
// Either way nothing is written.  The unique index
// backstops a racing insert between the check and the write.
func (r *BookingRepo) Update(ctx context.Context, id string, upd model.BookingUpdate) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cur, err := scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	adults, children := cur.Adults, cur.Children
	if upd.Adults != nil {
		adults = *upd.Adults
	}
	if upd.Children != nil {
		children = *upd.Children
	}
	if adults+children < 1 {
		return nil, ErrNoGuests
	}

	targetDate, targetSlot := cur.BookingDate, cur.TimeSlot
	if upd.BookingDate != nil {
		targetDate = *upd.BookingDate
	}
	if upd.TimeSlot != nil {
		targetSlot = *upd.TimeSlot
	}
	moved := targetDate != cur.BookingDate || targetSlot != cur.TimeSlot
	if moved && cur.PaymentStatus.Active() {
		var n int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM bookings
			 WHERE booking_date = ? AND time_slot = ? AND id <> ?
			   AND payment_status IN ('paid','pending')`,
			targetDate, targetSlot, id).Scan(&n)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, ErrSlotTaken
		}
	}

	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if upd.BookingDate != nil {
		add("booking_date", *upd.BookingDate)
	}
	if upd.TimeSlot != nil {
		add("time_slot", *upd.TimeSlot)
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.Phone != nil {
		add("phone", *upd.Phone)
	}
	if upd.Adults != nil {
		add("adults", *upd.Adults)
	}
	if upd.Children != nil {
		add("children", *upd.Children)
	}
	if upd.TotalPrice != nil {
		add("total_price", *upd.TotalPrice)
	}
	if len(sets) > 0 {
		args = append(args, id)
		_, err = tx.ExecContext(ctx, `UPDATE bookings SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if isDuplicate(err) {
			return nil, ErrSlotTaken
		}
		if err != nil {
			return nil, err
		}
	}

	updated, err := scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return updated, nil
}

// UpcomingPaid pages through paid bookings on or after fromDate ordered by
// date and slot.  It also returns the total number of matching rows.
func (r *BookingRepo) UpcomingPaid(ctx context.Context, fromDate string, limit, offset int) ([]model.Booking, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE payment_status = 'paid' AND booking_date >= ?`,
		fromDate).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	q := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE payment_status = 'paid' AND booking_date >= ?
		ORDER BY booking_date, time_slot
		LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, fromDate, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	list, err := scanBookings(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
