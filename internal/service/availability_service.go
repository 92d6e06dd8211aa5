package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-scheduling-api/internal/dto"
	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	"github.com/noah-isme/mentor-scheduling-api/internal/scheduling"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
)

type tutorProfileRepo interface {
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
	FindByUserID(ctx context.Context, userID string) (*models.Tutor, error)
	UpdateTimezone(ctx context.Context, id, timezone string) error
}

type ruleRepository interface {
	ListByTutor(ctx context.Context, tutorID string) ([]models.WeeklyAvailabilityRule, error)
	ReplaceForTutor(ctx context.Context, tutorID string, rules []models.WeeklyAvailabilityRule) error
}

// AvailabilityService manages a mentor's weekly rules and timezone.
type AvailabilityService struct {
	tutors    tutorProfileRepo
	rules     ruleRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService builds the service.
func NewAvailabilityService(tutors tutorProfileRepo, rules ruleRepository, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{tutors: tutors, rules: rules, validator: validate, logger: logger}
}

// Get returns the rules and timezone of any mentor.
func (s *AvailabilityService) Get(ctx context.Context, tutorID string) (*dto.AvailabilityResponse, error) {
	tutor, err := s.tutors.FindByID(ctx, tutorID)
	if err != nil {
		return nil, tutorLookupError(err)
	}
	return s.describe(ctx, tutor)
}

// GetOwn returns the caller's own availability.
func (s *AvailabilityService) GetOwn(ctx context.Context, userID string) (*dto.AvailabilityResponse, error) {
	tutor, err := s.tutors.FindByUserID(ctx, userID)
	if err != nil {
		return nil, tutorLookupError(err)
	}
	return s.describe(ctx, tutor)
}

// Replace validates the complete rule list and swaps it in atomically. Any
// invalid rule rejects the whole request.
func (s *AvailabilityService) Replace(ctx context.Context, userID string, req dto.ReplaceWeeklyRulesRequest) (*dto.AvailabilityResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid availability rules")
	}

	rules := make([]models.WeeklyAvailabilityRule, 0, len(req.Rules))
	for _, r := range req.Rules {
		if _, err := scheduling.NewWeeklyRule(*r.DayOfWeek, r.StartTime, r.EndTime); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		rules = append(rules, models.WeeklyAvailabilityRule{DayOfWeek: *r.DayOfWeek, StartTime: r.StartTime, EndTime: r.EndTime})
	}

	tutor, err := s.tutors.FindByUserID(ctx, userID)
	if err != nil {
		return nil, tutorLookupError(err)
	}
	if err := s.rules.ReplaceForTutor(ctx, tutor.ID, rules); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace availability rules")
	}
	s.logger.Info("availability rules replaced", zap.String("tutor_id", tutor.ID), zap.Int("rules", len(rules)))
	return s.describe(ctx, tutor)
}

// UpdateTimezone sets the caller's IANA timezone.
func (s *AvailabilityService) UpdateTimezone(ctx context.Context, userID string, req dto.UpdateTimezoneRequest) (*dto.AvailabilityResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid timezone")
	}
	tutor, err := s.tutors.FindByUserID(ctx, userID)
	if err != nil {
		return nil, tutorLookupError(err)
	}
	if err := s.tutors.UpdateTimezone(ctx, tutor.ID, req.Timezone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timezone")
	}
	tutor.Timezone = req.Timezone
	return s.describe(ctx, tutor)
}

func (s *AvailabilityService) describe(ctx context.Context, tutor *models.Tutor) (*dto.AvailabilityResponse, error) {
	stored, err := s.rules.ListByTutor(ctx, tutor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability rules")
	}
	resp := &dto.AvailabilityResponse{
		TutorID:  tutor.ID,
		Timezone: tutor.Location().String(),
		Rules:    make([]dto.WeeklyRuleResponse, 0, len(stored)),
	}
	for _, r := range stored {
		resp.Rules = append(resp.Rules, dto.WeeklyRuleResponse{DayOfWeek: r.DayOfWeek, StartTime: r.StartTime, EndTime: r.EndTime})
	}
	return resp, nil
}

func tutorLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
}
