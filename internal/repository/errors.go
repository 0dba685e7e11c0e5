// Package repository holds the MySQL data access for bookings, slot
// overrides and the waitlist.  The sentinel errors below let services tell
// failure scenarios apart without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// ErrSlotTaken is returned when a write would give a (date, time slot) a
// second active booking.  The unique index on bookings enforces it; the
// repository translates the duplicate-key error.
var ErrSlotTaken = errors.New("slot already has an active booking")

// ErrNoGuests is returned when an update would leave a booking with no
// adults and no children.
var ErrNoGuests = errors.New("booking must keep at least one guest")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
