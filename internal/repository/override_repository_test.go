package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverrideRepo_Set(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewOverrideRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM time_slot_overrides")).
		WithArgs("2025-06-02", "10:00").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE is_active = 0")).
		WithArgs("2025-06-02", "11:00", "admin-portal").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Set(context.Background(), "2025-06-02", "10:00", true, "admin-portal"))
	require.NoError(t, repo.Set(context.Background(), "2025-06-02", "11:00", false, "admin-portal"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideRepo_ListByDate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewOverrideRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM time_slot_overrides WHERE slot_date = ?")).
		WithArgs("2025-06-02").
		WillReturnRows(sqlmock.NewRows([]string{"slot_date", "time_slot", "is_active", "updated_by", "updated_at"}).
			AddRow("2025-06-02", "15:00", false, "admin-portal", time.Now()))

	list, err := repo.ListByDate(context.Background(), "2025-06-02")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsActive)
	assert.Equal(t, "15:00", list[0].TimeSlot)
}
