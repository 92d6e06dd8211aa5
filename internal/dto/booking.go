package dto

import "time"

// CreateBookingRequest is the student-facing booking payload.
type CreateBookingRequest struct {
	TutorID         string    `json:"tutor_id" validate:"required"`
	StartDate       time.Time `json:"start_date" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"omitempty,min=15,max=480"`
	Frequency       string    `json:"frequency" validate:"omitempty,oneof=ONCE WEEKLY TWICE_WEEKLY THRICE_WEEKLY"`
}

// MeetingJob is the queued payload used to provision a remote meeting.
type MeetingJob struct {
	LessonID  string    `json:"lesson_id"`
	TutorID   string    `json:"tutor_id"`
	StudentID string    `json:"student_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}
