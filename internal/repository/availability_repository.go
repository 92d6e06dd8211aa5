package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
)

// AvailabilityRepository persists weekly availability rules.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository creates a new availability repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListByTutor returns the tutor's rules ordered by weekday then start time.
func (r *AvailabilityRepository) ListByTutor(ctx context.Context, tutorID string) ([]models.WeeklyAvailabilityRule, error) {
	const query = `SELECT id, tutor_id, day_of_week, start_time, end_time, created_at FROM weekly_availability_rules WHERE tutor_id = $1 ORDER BY day_of_week ASC, start_time ASC`
	rules := make([]models.WeeklyAvailabilityRule, 0)
	if err := r.db.SelectContext(ctx, &rules, query, tutorID); err != nil {
		return nil, fmt.Errorf("list availability rules: %w", err)
	}
	return rules, nil
}

// ReplaceForTutor deletes every rule of the tutor and inserts the given set
// in one transaction. Rules are stamped with ids and the tutor id.
func (r *AvailabilityRepository) ReplaceForTutor(ctx context.Context, tutorID string, rules []models.WeeklyAvailabilityRule) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace availability rules: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM weekly_availability_rules WHERE tutor_id = $1`, tutorID); err != nil {
		return fmt.Errorf("delete availability rules: %w", err)
	}

	now := time.Now().UTC()
	const insert = `INSERT INTO weekly_availability_rules (id, tutor_id, day_of_week, start_time, end_time, created_at) VALUES (:id, :tutor_id, :day_of_week, :start_time, :end_time, :created_at)`
	for i := range rules {
		rules[i].ID = uuid.NewString()
		rules[i].TutorID = tutorID
		rules[i].CreatedAt = now
		if _, err = tx.NamedExecContext(ctx, insert, rules[i]); err != nil {
			return fmt.Errorf("insert availability rule: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace availability rules: %w", err)
	}
	return nil
}
