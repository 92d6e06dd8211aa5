package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
)

const tutorColumns = "id, user_id, full_name, timezone, created_at, updated_at"

// TutorRepository reads mentor profiles and their timezone.
type TutorRepository struct {
	db *sqlx.DB
}

// NewTutorRepository creates a new tutor repository.
func NewTutorRepository(db *sqlx.DB) *TutorRepository {
	return &TutorRepository{db: db}
}

// FindByID loads a tutor by id.
func (r *TutorRepository) FindByID(ctx context.Context, id string) (*models.Tutor, error) {
	query := "SELECT " + tutorColumns + " FROM tutors WHERE id = $1"
	var tutor models.Tutor
	if err := r.db.GetContext(ctx, &tutor, query, id); err != nil {
		return nil, err
	}
	return &tutor, nil
}

// FindByUserID loads the tutor profile owned by a user account.
func (r *TutorRepository) FindByUserID(ctx context.Context, userID string) (*models.Tutor, error) {
	query := "SELECT " + tutorColumns + " FROM tutors WHERE user_id = $1"
	var tutor models.Tutor
	if err := r.db.GetContext(ctx, &tutor, query, userID); err != nil {
		return nil, err
	}
	return &tutor, nil
}

// LockForBookingWithTx takes a row lock on the tutor for the rest of tx so
// that concurrent bookings for the same mentor are serialised.
func (r *TutorRepository) LockForBookingWithTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Tutor, error) {
	if err := requireTx(tx); err != nil {
		return nil, err
	}
	query := "SELECT " + tutorColumns + " FROM tutors WHERE id = $1 FOR UPDATE"
	var tutor models.Tutor
	if err := tx.GetContext(ctx, &tutor, query, id); err != nil {
		return nil, err
	}
	return &tutor, nil
}

// UpdateTimezone sets the IANA timezone of a tutor.
func (r *TutorRepository) UpdateTimezone(ctx context.Context, id, timezone string) error {
	const query = `UPDATE tutors SET timezone = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, timezone, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update tutor timezone: %w", err)
	}
	return expectAffected(res)
}
