package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order on startup.  Every statement is idempotent.
//
// bookings.active_slot is 1 while a booking occupies its slot and NULL
// otherwise.  MySQL unique indexes ignore NULLs, so uq_bookings_active_slot
// admits at most one paid or pending booking per (booking_date, time_slot)
// and any number of failed or cancelled ones.
//
// bookings.expired tells a hold the reaper cancelled apart from a booking
// an operator released; only the former may be reinstated by a late
// payment.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS bookings (
		id                  CHAR(36)     NOT NULL PRIMARY KEY,
		booking_date        DATE         NOT NULL,
		time_slot           CHAR(5)      NOT NULL,
		adults              INT          NOT NULL DEFAULT 0,
		children            INT          NOT NULL DEFAULT 0,
		total_price         INT          NOT NULL,
		email               VARCHAR(255) NOT NULL,
		phone               VARCHAR(32)  NOT NULL,
		payment_method      VARCHAR(32)  NOT NULL DEFAULT 'card',
		payment_status      ENUM('pending','paid','failed','cancelled') NOT NULL DEFAULT 'pending',
		discount_code       VARCHAR(64)  NULL,
		discount_percent    INT          NOT NULL DEFAULT 0,
		provider_session_id VARCHAR(255) NOT NULL,
		created_at          DATETIME(3)  NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		expired             TINYINT(1)   NOT NULL DEFAULT 0,
		active_slot         TINYINT AS (IF(payment_status IN ('paid','pending'), 1, NULL)) STORED,
		UNIQUE KEY uq_bookings_active_slot (booking_date, time_slot, active_slot),
		UNIQUE KEY uq_bookings_session (provider_session_id),
		KEY idx_bookings_status_created (payment_status, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS time_slot_overrides (
		slot_date  DATE        NOT NULL,
		time_slot  CHAR(5)     NOT NULL,
		is_active  TINYINT(1)  NOT NULL DEFAULT 0,
		updated_by VARCHAR(64) NOT NULL DEFAULT 'admin-portal',
		updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
		PRIMARY KEY (slot_date, time_slot)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS waitlist (
		id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email        VARCHAR(255)    NOT NULL,
		first_name   VARCHAR(100)    NOT NULL DEFAULT '',
		last_name    VARCHAR(100)    NOT NULL DEFAULT '',
		dob          DATE            NULL,
		consent      TINYINT(1)      NOT NULL DEFAULT 0,
		code_sent    TINYINT(1)      NOT NULL DEFAULT 0,
		code_sent_at DATETIME(3)     NULL,
		created_at   DATETIME(3)     NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		UNIQUE KEY uq_waitlist_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables the service needs if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
