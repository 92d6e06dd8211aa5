package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
)

var lessonColumns = []string{"id", "booking_id", "tutor_id", "student_id", "start_time", "end_time", "status", "meeting_url", "meeting_event_id", "created_at", "updated_at"}

// LessonRepository persists concrete lesson sessions.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a new lesson repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// ListBusy returns the tutor's non-cancelled lessons intersecting [from, to).
func (r *LessonRepository) ListBusy(ctx context.Context, tutorID string, from, to time.Time) ([]models.Lesson, error) {
	return r.listBusy(ctx, r.db, tutorID, from, to)
}

// ListBusyWithTx is ListBusy inside an open transaction.
func (r *LessonRepository) ListBusyWithTx(ctx context.Context, tx *sqlx.Tx, tutorID string, from, to time.Time) ([]models.Lesson, error) {
	if err := requireTx(tx); err != nil {
		return nil, err
	}
	return r.listBusy(ctx, tx, tutorID, from, to)
}

func (r *LessonRepository) listBusy(ctx context.Context, q sqlx.QueryerContext, tutorID string, from, to time.Time) ([]models.Lesson, error) {
	query, args, err := psql.Select(lessonColumns...).
		From("lessons").
		Where(sq.Eq{"tutor_id": tutorID}).
		Where(sq.NotEq{"status": models.LessonStatusCancelled}).
		Where(sq.Lt{"start_time": to}).
		Where(sq.Gt{"end_time": from}).
		OrderBy("start_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build busy lessons query: %w", err)
	}

	lessons := make([]models.Lesson, 0)
	if err := sqlx.SelectContext(ctx, q, &lessons, query, args...); err != nil {
		return nil, fmt.Errorf("list busy lessons: %w", err)
	}
	return lessons, nil
}

// CreateWithTx inserts a lesson using an existing transaction. An insert
// rejected by the no-overlap exclusion constraint yields ErrLessonOverlap.
func (r *LessonRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, lesson *models.Lesson) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lesson.CreatedAt = now
	lesson.UpdatedAt = now

	const query = `INSERT INTO lessons (id, booking_id, tutor_id, student_id, start_time, end_time, status, meeting_url, meeting_event_id, created_at, updated_at) VALUES (:id, :booking_id, :tutor_id, :student_id, :start_time, :end_time, :status, :meeting_url, :meeting_event_id, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, lesson); err != nil {
		if IsExclusionViolation(err) {
			return fmt.Errorf("%w: %v", ErrLessonOverlap, err)
		}
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// ListByBooking returns the lessons of a booking ordered by start time.
func (r *LessonRepository) ListByBooking(ctx context.Context, bookingID string) ([]models.Lesson, error) {
	query, args, err := psql.Select(lessonColumns...).
		From("lessons").
		Where(sq.Eq{"booking_id": bookingID}).
		OrderBy("start_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build booking lessons query: %w", err)
	}
	lessons := make([]models.Lesson, 0)
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, fmt.Errorf("list booking lessons: %w", err)
	}
	return lessons, nil
}

// SetMeeting stores the remote meeting reference of a lesson.
func (r *LessonRepository) SetMeeting(ctx context.Context, lessonID, meetingURL, eventID string) error {
	const query = `UPDATE lessons SET meeting_url = $1, meeting_event_id = $2, updated_at = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, meetingURL, eventID, time.Now().UTC(), lessonID)
	if err != nil {
		return fmt.Errorf("set lesson meeting: %w", err)
	}
	return expectAffected(res)
}
