package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-scheduling-api/internal/dto"
	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
)

type tutorByUserReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.Tutor, error)
}

type timeBlockRepository interface {
	List(ctx context.Context, filter models.TimeBlockFilter) ([]models.TutorTimeBlock, error)
	FindByIDForTutor(ctx context.Context, id, tutorID string) (*models.TutorTimeBlock, error)
	Create(ctx context.Context, block *models.TutorTimeBlock) error
	Update(ctx context.Context, block *models.TutorTimeBlock) error
	Delete(ctx context.Context, id, tutorID string) error
}

// TimeBlockService manages a mentor's own ad-hoc unavailable intervals.
// Blocks of other mentors are reported as not found.
type TimeBlockService struct {
	tutors    tutorByUserReader
	blocks    timeBlockRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimeBlockService builds the service.
func NewTimeBlockService(tutors tutorByUserReader, blocks timeBlockRepository, validate *validator.Validate, logger *zap.Logger) *TimeBlockService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimeBlockService{tutors: tutors, blocks: blocks, validator: validate, logger: logger}
}

// List returns the caller's blocks overlapping the optional window.
func (s *TimeBlockService) List(ctx context.Context, userID string, from, to *time.Time) ([]models.TutorTimeBlock, error) {
	if from != nil && to != nil && !from.Before(*to) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must be before to")
	}
	tutor, err := s.tutors.FindByUserID(ctx, userID)
	if err != nil {
		return nil, tutorLookupError(err)
	}
	blocks, err := s.blocks.List(ctx, models.TimeBlockFilter{TutorID: tutor.ID, From: from, To: to})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time blocks")
	}
	return blocks, nil
}

// Create stores a new block for the caller.
func (s *TimeBlockService) Create(ctx context.Context, userID string, req dto.TimeBlockRequest) (*models.TutorTimeBlock, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid time block")
	}
	tutor, err := s.tutors.FindByUserID(ctx, userID)
	if err != nil {
		return nil, tutorLookupError(err)
	}
	block := &models.TutorTimeBlock{
		TutorID:   tutor.ID,
		StartTime: req.StartTime.UTC(),
		EndTime:   req.EndTime.UTC(),
		Reason:    req.Reason,
	}
	if err := s.blocks.Create(ctx, block); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create time block")
	}
	s.logger.Info("time block created", zap.String("tutor_id", tutor.ID), zap.String("block_id", block.ID))
	return block, nil
}

// Update rewrites one of the caller's blocks.
func (s *TimeBlockService) Update(ctx context.Context, userID, id string, req dto.TimeBlockRequest) (*models.TutorTimeBlock, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid time block")
	}
	tutor, err := s.tutors.FindByUserID(ctx, userID)
	if err != nil {
		return nil, tutorLookupError(err)
	}
	block, err := s.blocks.FindByIDForTutor(ctx, id, tutor.ID)
	if err != nil {
		return nil, blockLookupError(err)
	}
	block.StartTime = req.StartTime.UTC()
	block.EndTime = req.EndTime.UTC()
	block.Reason = req.Reason
	if err := s.blocks.Update(ctx, block); err != nil {
		return nil, blockLookupError(err)
	}
	return block, nil
}

// Delete removes one of the caller's blocks.
func (s *TimeBlockService) Delete(ctx context.Context, userID, id string) error {
	tutor, err := s.tutors.FindByUserID(ctx, userID)
	if err != nil {
		return tutorLookupError(err)
	}
	if err := s.blocks.Delete(ctx, id, tutor.ID); err != nil {
		return blockLookupError(err)
	}
	return nil
}

func blockLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "time block not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to access time block")
}
