package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// NotificationKind enumerates queued notification templates.
type NotificationKind string

const (
	NotificationBookingCreated  NotificationKind = "BOOKING_CREATED"
	NotificationLessonScheduled NotificationKind = "LESSON_SCHEDULED"
)

// NotificationStatusPending marks a record not yet handed to a delivery channel.
const NotificationStatusPending = "PENDING"

// Notification is a best-effort delivery record picked up by the notifier.
type Notification struct {
	ID              string           `db:"id" json:"id"`
	RecipientUserID string           `db:"recipient_user_id" json:"recipient_user_id"`
	Kind            NotificationKind `db:"kind" json:"kind"`
	Payload         types.JSONText   `db:"payload" json:"payload"`
	Status          string           `db:"status" json:"status"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}
