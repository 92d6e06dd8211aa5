package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
)

const notificationSavepoint = "notifications_enqueue"

// ErrTxAborted marks failures after which the surrounding transaction can
// no longer be used and must be rolled back by the caller.
var ErrTxAborted = errors.New("transaction aborted")

// NotificationRepository stores best-effort notification records.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// EnqueueWithTx inserts the records under a savepoint of tx. A failed insert
// rolls back to the savepoint only, leaving the surrounding transaction usable.
func (r *NotificationRepository) EnqueueWithTx(ctx context.Context, tx *sqlx.Tx, notifications []models.Notification) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	if len(notifications) == 0 {
		return nil
	}

	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+notificationSavepoint); err != nil {
		return fmt.Errorf("%w: savepoint notifications: %v", ErrTxAborted, err)
	}

	now := time.Now().UTC()
	const query = `INSERT INTO notifications (id, recipient_user_id, kind, payload, status, created_at) VALUES (:id, :recipient_user_id, :kind, :payload, :status, :created_at)`
	for i := range notifications {
		n := &notifications[i]
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.Status == "" {
			n.Status = models.NotificationStatusPending
		}
		n.CreatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, n); err != nil {
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+notificationSavepoint); rbErr != nil {
				return fmt.Errorf("%w: rollback notifications savepoint: %v (insert: %v)", ErrTxAborted, rbErr, err)
			}
			return fmt.Errorf("enqueue notification: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+notificationSavepoint); err != nil {
		return fmt.Errorf("%w: release notifications savepoint: %v", ErrTxAborted, err)
	}
	return nil
}
