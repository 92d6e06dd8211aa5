package models

import "time"

// LessonStatus tracks a concrete session lifecycle.
type LessonStatus string

const (
	LessonStatusPending   LessonStatus = "PENDING"
	LessonStatusBooked    LessonStatus = "BOOKED"
	LessonStatusCompleted LessonStatus = "COMPLETED"
	LessonStatusCancelled LessonStatus = "CANCELLED"
)

// BlocksAvailability reports whether a lesson in this status occupies the mentor.
func (s LessonStatus) BlocksAvailability() bool {
	return s != LessonStatusCancelled
}

// BookingFrequency is the declared cadence of a booking envelope.
type BookingFrequency string

const (
	FrequencyOnce         BookingFrequency = "ONCE"
	FrequencyWeekly       BookingFrequency = "WEEKLY"
	FrequencyTwiceWeekly  BookingFrequency = "TWICE_WEEKLY"
	FrequencyThriceWeekly BookingFrequency = "THRICE_WEEKLY"
)

// RecurringCommitment is the window covered by any recurring frequency.
const RecurringCommitment = 28 * 24 * time.Hour

// IsRecurring reports whether the frequency spans multiple weeks.
func (f BookingFrequency) IsRecurring() bool {
	return f == FrequencyWeekly || f == FrequencyTwiceWeekly || f == FrequencyThriceWeekly
}

// EnvelopeEnd computes the end of the booking envelope.
func (f BookingFrequency) EnvelopeEnd(start time.Time, duration time.Duration) time.Time {
	if f.IsRecurring() {
		return start.Add(RecurringCommitment)
	}
	return start.Add(duration)
}

// BookingStatus is the envelope lifecycle state.
type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "ACTIVE"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Booking is the recurrence envelope around one or more lessons.
type Booking struct {
	ID              string           `db:"id" json:"id"`
	StudentID       string           `db:"student_id" json:"student_id"`
	TutorID         string           `db:"tutor_id" json:"tutor_id"`
	StartDate       time.Time        `db:"start_date" json:"start_date"`
	EndDate         time.Time        `db:"end_date" json:"end_date"`
	DurationMinutes int              `db:"duration_minutes" json:"duration_minutes"`
	Frequency       BookingFrequency `db:"frequency" json:"frequency"`
	Status          BookingStatus    `db:"status" json:"status"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
	Lessons         []Lesson         `db:"-" json:"lessons,omitempty"`
}

// Lesson is one concrete scheduled session.
type Lesson struct {
	ID             string       `db:"id" json:"id"`
	BookingID      string       `db:"booking_id" json:"booking_id"`
	TutorID        string       `db:"tutor_id" json:"tutor_id"`
	StudentID      string       `db:"student_id" json:"student_id"`
	StartTime      time.Time    `db:"start_time" json:"start_time"`
	EndTime        time.Time    `db:"end_time" json:"end_time"`
	Status         LessonStatus `db:"status" json:"status"`
	MeetingURL     *string      `db:"meeting_url" json:"meeting_url,omitempty"`
	MeetingEventID *string      `db:"meeting_event_id" json:"meeting_event_id,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}
