package models

import "time"

// WeeklyAvailabilityRule is one recurring open window of a mentor, in the
// mentor's local wall-clock time. DayOfWeek uses 0=Sunday..6=Saturday.
type WeeklyAvailabilityRule struct {
	ID        string    `db:"id" json:"id"`
	TutorID   string    `db:"tutor_id" json:"tutor_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TutorTimeBlock is an ad-hoc unavailable interval owned by a mentor.
type TutorTimeBlock struct {
	ID        string    `db:"id" json:"id"`
	TutorID   string    `db:"tutor_id" json:"tutor_id"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
	Reason    *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TimeBlockFilter narrows time block listings to an optional window.
type TimeBlockFilter struct {
	TutorID string
	From    *time.Time
	To      *time.Time
}
