package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tutorRowColumns = []string{"id", "user_id", "full_name", "timezone", "created_at", "updated_at"}

func TestTutorRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewTutorRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, full_name, timezone, created_at, updated_at FROM tutors WHERE id = $1")).
		WithArgs("tutor-1").
		WillReturnRows(sqlmock.NewRows(tutorRowColumns).AddRow("tutor-1", "user-9", "Tia Tutor", "America/New_York", now, now))

	tutor, err := repo.FindByID(context.Background(), "tutor-1")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", tutor.Location().String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTutorRepositoryLockForBooking(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewTutorRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM tutors WHERE id = $1 FOR UPDATE")).
		WithArgs("tutor-1").
		WillReturnRows(sqlmock.NewRows(tutorRowColumns).AddRow("tutor-1", "user-9", "Tia Tutor", "UTC", now, now))
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)
	tutor, err := repo.LockForBookingWithTx(context.Background(), tx, "tutor-1")
	require.NoError(t, err)
	assert.Equal(t, "tutor-1", tutor.ID)
	require.NoError(t, tx.Rollback())

	_, err = repo.LockForBookingWithTx(context.Background(), nil, "tutor-1")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTutorRepositoryUpdateTimezone(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewTutorRepository(db)

	mock.ExpectExec("UPDATE tutors SET timezone = \\$1").
		WithArgs("Asia/Kolkata", sqlmock.AnyArg(), "tutor-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tutors SET timezone = \\$1").
		WithArgs("Asia/Kolkata", sqlmock.AnyArg(), "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateTimezone(context.Background(), "tutor-1", "Asia/Kolkata"))
	assert.ErrorIs(t, repo.UpdateTimezone(context.Background(), "ghost", "Asia/Kolkata"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
