package dto

import "time"

// WeeklyRuleRequest is a single recurring window in mentor-local time.
type WeeklyRuleRequest struct {
	DayOfWeek *int   `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime string `json:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" validate:"required,hhmm"`
}

// ReplaceWeeklyRulesRequest replaces the full rule set of the calling mentor.
type ReplaceWeeklyRulesRequest struct {
	Rules []WeeklyRuleRequest `json:"rules" validate:"dive"`
}

// UpdateTimezoneRequest sets the mentor IANA timezone.
type UpdateTimezoneRequest struct {
	Timezone string `json:"timezone" validate:"required,timezone"`
}

// WeeklyRuleResponse is a persisted rule.
type WeeklyRuleResponse struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// AvailabilityResponse describes a mentor's recurring availability.
type AvailabilityResponse struct {
	TutorID  string               `json:"tutor_id"`
	Timezone string               `json:"timezone"`
	Rules    []WeeklyRuleResponse `json:"rules"`
}

// TimeBlockRequest creates or updates an ad-hoc unavailable interval.
type TimeBlockRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	Reason    *string   `json:"reason" validate:"omitempty,max=500"`
}
