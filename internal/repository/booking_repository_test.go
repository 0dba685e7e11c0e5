package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readypixelgo/venue-booking/internal/model"
)

var bookingCols = []string{"id", "booking_date", "time_slot", "adults", "children",
	"total_price", "email", "phone", "payment_method", "payment_status", "discount_code",
	"discount_percent", "provider_session_id", "created_at", "expired"}

func newMock(t *testing.T) (*BookingRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBookingRepo(db), mock
}

func bookingRow(id, date, slot, status string) []driver.Value {
	return []driver.Value{id, date, slot, 2, 0, 700, "a@b.se", "0701234567", "card", status, nil, 0,
		"cs_" + id, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), false}
}

func TestBookingRepo_Create_DuplicateIsSlotTaken(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Create(context.Background(), &model.Booking{ID: "b1", BookingDate: "2025-06-02",
		TimeSlot: "14:00", PaymentStatus: model.PaymentPending, CreatedAt: time.Now()})
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_ActiveByDate(t *testing.T) {
	repo, mock := newMock(t)
	rows := sqlmock.NewRows(bookingCols).
		AddRow(bookingRow("b1", "2025-06-02", "10:00", "paid")...).
		AddRow(bookingRow("b2", "2025-06-02", "12:00", "pending")...)
	mock.ExpectQuery(regexp.QuoteMeta("payment_status IN ('paid','pending')")).
		WithArgs("2025-06-02").WillReturnRows(rows)

	list, err := repo.ActiveByDate(context.Background(), "2025-06-02")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, model.PaymentPaid, list[0].PaymentStatus)
	assert.Equal(t, "12:00", list[1].TimeSlot)
	assert.Nil(t, list[0].DiscountCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_GetByID_NotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ?")).
		WithArgs("missing").WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookingRepo_ExpirePending_ScopedToDate(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT DATE_FORMAT(booking_date, '%Y-%m-%d') FROM bookings WHERE payment_status = 'pending' AND created_at < ? AND booking_date = ? FOR UPDATE")).
		WithArgs(sqlmock.AnyArg(), "2025-06-02").
		WillReturnRows(sqlmock.NewRows([]string{"d"}).AddRow("2025-06-02"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET payment_status = 'cancelled', expired = 1 WHERE payment_status = 'pending' AND created_at < ? AND booking_date = ?")).
		WithArgs(sqlmock.AnyArg(), "2025-06-02").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	n, dates, err := repo.ExpirePending(context.Background(), time.Now(), "2025-06-02")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, []string{"2025-06-02"}, dates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_ExpirePending_NothingStale(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"d"}))
	mock.ExpectRollback()

	n, dates, err := repo.ExpirePending(context.Background(), time.Now(), "")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, dates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_SetStatus(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET payment_status = ?, expired = 0 WHERE id = ? AND payment_status IN (?)")).
		WithArgs("paid", "b1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET payment_status = ?")).
		WithArgs("paid", "b2", "cancelled").
		WillReturnError(&mysql.MySQLError{Number: 1062})

	changed, err := repo.SetStatus(context.Background(), "b1", []model.PaymentStatus{model.PaymentPending}, model.PaymentPaid)
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = repo.SetStatus(context.Background(), "b2", []model.PaymentStatus{model.PaymentCancelled}, model.PaymentPaid)
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_ReinstatePaid_OnlyExpiredOrFailed(t *testing.T) {
	repo, mock := newMock(t)
	q := regexp.QuoteMeta("WHERE id = ? AND (payment_status = 'failed' OR (payment_status = 'cancelled' AND expired = 1))")
	mock.ExpectExec(q).WithArgs("reaped").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("released").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q).WithArgs("resold").WillReturnError(&mysql.MySQLError{Number: 1062})

	changed, err := repo.ReinstatePaid(context.Background(), "reaped")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.ReinstatePaid(context.Background(), "released")
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = repo.ReinstatePaid(context.Background(), "resold")
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_Update_NoGuestsRollsBack(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingRow("b1", "2025-06-02", "10:00", "paid")...))
	mock.ExpectRollback()

	zero := 0
	_, err := repo.Update(context.Background(), "b1", model.BookingUpdate{Adults: &zero})
	assert.ErrorIs(t, err, ErrNoGuests)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_Update_ConflictRollsBack(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingRow("b1", "2025-06-02", "10:00", "paid")...))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings")).
		WithArgs("2025-06-02", "11:00", "b1").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	slot := "11:00"
	_, err := repo.Update(context.Background(), "b1", model.BookingUpdate{TimeSlot: &slot})
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_Update_FieldsOnly(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingRow("b1", "2025-06-02", "10:00", "paid")...))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET email = ?, adults = ? WHERE id = ?")).
		WithArgs("new@b.se", 3, "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	updated := bookingRow("b1", "2025-06-02", "10:00", "paid")
	updated[3] = 3
	updated[6] = "new@b.se"
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ?")).WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(updated...))
	mock.ExpectCommit()

	email, adults := "new@b.se", 3
	b, err := repo.Update(context.Background(), "b1", model.BookingUpdate{Email: &email, Adults: &adults})
	require.NoError(t, err)
	assert.Equal(t, "new@b.se", b.Email)
	assert.Equal(t, 3, b.Adults)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_UpcomingPaid(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings WHERE payment_status = 'paid'")).
		WithArgs("2025-06-01").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT ? OFFSET ?")).
		WithArgs("2025-06-01", 5, 0).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingRow("b1", "2025-06-02", "10:00", "paid")...))

	list, total, err := repo.UpcomingPaid(context.Background(), "2025-06-01", 5, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.Len(t, list, 1)
}
