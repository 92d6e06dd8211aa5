package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-scheduling-api/internal/dto"
	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	"github.com/noah-isme/mentor-scheduling-api/internal/scheduling"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
)

type tutorReader interface {
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
}

type ruleReader interface {
	ListByTutor(ctx context.Context, tutorID string) ([]models.WeeklyAvailabilityRule, error)
}

type busyCollector interface {
	Collect(ctx context.Context, tutorID string, from, to time.Time, strict bool) ([]scheduling.Interval, error)
	CollectWithTx(ctx context.Context, tx *sqlx.Tx, tutorID string, from, to time.Time, strict bool) ([]scheduling.Interval, error)
}

// SlotConfig holds slot search defaults and limits.
type SlotConfig struct {
	DefaultDuration time.Duration
	DefaultStep     time.Duration
	MaxWindow       time.Duration
}

// SlotService generates bookable slots and re-validates single slots.
type SlotService struct {
	tutors    tutorReader
	rules     ruleReader
	busy      busyCollector
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       SlotConfig
}

// NewSlotService builds the slot service.
func NewSlotService(tutors tutorReader, rules ruleReader, busy busyCollector, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg SlotConfig) *SlotService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = time.Hour
	}
	if cfg.DefaultStep <= 0 {
		cfg.DefaultStep = time.Hour
	}
	return &SlotService{
		tutors:    tutors,
		rules:     rules,
		busy:      busy,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate returns the ordered free slots of a mentor in [From, To). An
// unknown mentor yields an empty list rather than an error.
func (s *SlotService) Generate(ctx context.Context, query dto.SlotQuery) (*dto.SlotListResponse, error) {
	if query.DurationMinutes == 0 {
		query.DurationMinutes = int(s.cfg.DefaultDuration / time.Minute)
	}
	if query.StepMinutes == 0 {
		query.StepMinutes = int(s.cfg.DefaultStep / time.Minute)
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err, "invalid slot query")
	}
	if s.cfg.MaxWindow > 0 && query.To.Sub(query.From) > s.cfg.MaxWindow {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot query window exceeds "+s.cfg.MaxWindow.String())
	}

	resp := &dto.SlotListResponse{
		TutorID:         query.TutorID,
		DurationMinutes: query.DurationMinutes,
		StepMinutes:     query.StepMinutes,
		Slots:           make([]dto.SlotResponse, 0),
	}

	started := time.Now()
	tutor, err := s.tutors.FindByID(ctx, query.TutorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return resp, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}
	resp.Timezone = tutor.Location().String()

	eval, err := s.evaluator(ctx, tutor)
	if err != nil {
		return nil, err
	}
	busy, err := s.busy.Collect(ctx, tutor.ID, query.From, query.To, false)
	if err != nil {
		return nil, err
	}

	slots := scheduling.Generate(eval, busy, query.From, query.To,
		time.Duration(query.DurationMinutes)*time.Minute,
		time.Duration(query.StepMinutes)*time.Minute)
	for _, slot := range slots {
		resp.Slots = append(resp.Slots, dto.SlotResponse{Start: slot.Start, End: slot.End})
	}
	s.metrics.ObserveSlotGeneration(len(slots), time.Since(started))
	return resp, nil
}

// IsAvailable reports whether [start, end) is covered by the mentor's rules
// and free of busy intervals. Unknown mentors are never available.
func (s *SlotService) IsAvailable(ctx context.Context, tutorID string, start, end time.Time) (bool, error) {
	slot, err := scheduling.NewInterval(start, end)
	if err != nil {
		return false, nil
	}
	tutor, err := s.tutors.FindByID(ctx, tutorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}
	return s.CheckSlot(ctx, tutor, slot, false)
}

// CheckSlot applies the coverage and busy tests for an already loaded mentor.
// strict propagates calendar failures instead of ignoring them.
func (s *SlotService) CheckSlot(ctx context.Context, tutor *models.Tutor, slot scheduling.Interval, strict bool) (bool, error) {
	if !slot.Valid() {
		return false, nil
	}
	eval, err := s.evaluator(ctx, tutor)
	if err != nil {
		return false, err
	}
	busy, err := s.busy.Collect(ctx, tutor.ID, slot.Start, slot.End, strict)
	if err != nil {
		return false, err
	}
	return scheduling.Available(eval, busy, slot), nil
}

// CheckSlotWithTx is CheckSlot with committed lessons read through tx. The
// booking path calls it after locking the tutor row in the same transaction.
func (s *SlotService) CheckSlotWithTx(ctx context.Context, tx *sqlx.Tx, tutor *models.Tutor, slot scheduling.Interval, strict bool) (bool, error) {
	if !slot.Valid() {
		return false, nil
	}
	eval, err := s.evaluator(ctx, tutor)
	if err != nil {
		return false, err
	}
	busy, err := s.busy.CollectWithTx(ctx, tx, tutor.ID, slot.Start, slot.End, strict)
	if err != nil {
		return false, err
	}
	return scheduling.Available(eval, busy, slot), nil
}

func (s *SlotService) evaluator(ctx context.Context, tutor *models.Tutor) (*scheduling.Evaluator, error) {
	stored, err := s.rules.ListByTutor(ctx, tutor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability rules")
	}
	rules := make([]scheduling.WeeklyRule, 0, len(stored))
	for _, r := range stored {
		rule, err := scheduling.NewWeeklyRule(r.DayOfWeek, r.StartTime, r.EndTime)
		if err != nil {
			s.logger.Warn("skipping invalid stored availability rule", zap.String("rule_id", r.ID), zap.Error(err))
			continue
		}
		rules = append(rules, rule)
	}
	return scheduling.NewEvaluator(rules, tutor.Location()), nil
}
