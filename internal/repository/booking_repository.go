package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
)

// BookingRepository persists booking envelopes.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// CreateWithTx inserts the booking envelope using an existing transaction.
func (r *BookingRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, booking *models.Booking) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	const query = `INSERT INTO bookings (id, student_id, tutor_id, start_date, end_date, duration_minutes, frequency, status, created_at, updated_at) VALUES (:id, :student_id, :tutor_id, :start_date, :end_date, :duration_minutes, :frequency, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// FindByID loads a booking envelope without its lessons.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	const query = `SELECT id, student_id, tutor_id, start_date, end_date, duration_minutes, frequency, status, created_at, updated_at FROM bookings WHERE id = $1`
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}
