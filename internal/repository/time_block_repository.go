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

var timeBlockColumns = []string{"id", "tutor_id", "start_time", "end_time", "reason", "created_at", "updated_at"}

// TimeBlockRepository persists ad-hoc unavailable intervals of tutors.
type TimeBlockRepository struct {
	db *sqlx.DB
}

// NewTimeBlockRepository creates a new time block repository.
func NewTimeBlockRepository(db *sqlx.DB) *TimeBlockRepository {
	return &TimeBlockRepository{db: db}
}

// List returns the tutor's blocks overlapping the optional [From, To) window
// ordered by start time.
func (r *TimeBlockRepository) List(ctx context.Context, filter models.TimeBlockFilter) ([]models.TutorTimeBlock, error) {
	builder := psql.Select(timeBlockColumns...).
		From("tutor_time_blocks").
		Where(sq.Eq{"tutor_id": filter.TutorID})
	if filter.To != nil {
		builder = builder.Where(sq.Lt{"start_time": *filter.To})
	}
	if filter.From != nil {
		builder = builder.Where(sq.Gt{"end_time": *filter.From})
	}
	query, args, err := builder.OrderBy("start_time ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list time blocks: %w", err)
	}

	blocks := make([]models.TutorTimeBlock, 0)
	if err := r.db.SelectContext(ctx, &blocks, query, args...); err != nil {
		return nil, fmt.Errorf("list time blocks: %w", err)
	}
	return blocks, nil
}

// ListOverlapping returns every block of the tutor intersecting [from, to).
func (r *TimeBlockRepository) ListOverlapping(ctx context.Context, tutorID string, from, to time.Time) ([]models.TutorTimeBlock, error) {
	return r.List(ctx, models.TimeBlockFilter{TutorID: tutorID, From: &from, To: &to})
}

// FindByIDForTutor loads a block only when it belongs to the tutor.
func (r *TimeBlockRepository) FindByIDForTutor(ctx context.Context, id, tutorID string) (*models.TutorTimeBlock, error) {
	query, args, err := psql.Select(timeBlockColumns...).
		From("tutor_time_blocks").
		Where(sq.Eq{"id": id, "tutor_id": tutorID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find time block: %w", err)
	}
	var block models.TutorTimeBlock
	if err := r.db.GetContext(ctx, &block, query, args...); err != nil {
		return nil, err
	}
	return &block, nil
}

// Create stores a new block.
func (r *TimeBlockRepository) Create(ctx context.Context, block *models.TutorTimeBlock) error {
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	block.CreatedAt = now
	block.UpdatedAt = now

	const query = `INSERT INTO tutor_time_blocks (id, tutor_id, start_time, end_time, reason, created_at, updated_at) VALUES (:id, :tutor_id, :start_time, :end_time, :reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, block); err != nil {
		return fmt.Errorf("create time block: %w", err)
	}
	return nil
}

// Update rewrites the interval and reason of a block owned by block.TutorID.
func (r *TimeBlockRepository) Update(ctx context.Context, block *models.TutorTimeBlock) error {
	block.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tutor_time_blocks SET start_time = :start_time, end_time = :end_time, reason = :reason, updated_at = :updated_at WHERE id = :id AND tutor_id = :tutor_id`
	res, err := r.db.NamedExecContext(ctx, query, block)
	if err != nil {
		return fmt.Errorf("update time block: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a block owned by the tutor.
func (r *TimeBlockRepository) Delete(ctx context.Context, id, tutorID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tutor_time_blocks WHERE id = $1 AND tutor_id = $2`, id, tutorID)
	if err != nil {
		return fmt.Errorf("delete time block: %w", err)
	}
	return expectAffected(res)
}
