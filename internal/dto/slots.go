package dto

import "time"

// SlotQuery captures the slot search parameters for a mentor.
type SlotQuery struct {
	TutorID         string    `json:"tutor_id" validate:"required"`
	From            time.Time `json:"from" validate:"required"`
	To              time.Time `json:"to" validate:"required,gtfield=From"`
	DurationMinutes int       `json:"duration_minutes" validate:"min=15,max=720"`
	StepMinutes     int       `json:"step_minutes" validate:"min=5,max=720"`
}

// SlotResponse is one bookable interval.
type SlotResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SlotListResponse wraps generated slots with the evaluation context.
type SlotListResponse struct {
	TutorID         string         `json:"tutor_id"`
	Timezone        string         `json:"timezone"`
	DurationMinutes int            `json:"duration_minutes"`
	StepMinutes     int            `json:"step_minutes"`
	Slots           []SlotResponse `json:"slots"`
}
