package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-scheduling-api/internal/dto"
	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	"github.com/noah-isme/mentor-scheduling-api/internal/repository"
	"github.com/noah-isme/mentor-scheduling-api/internal/scheduling"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sqlx.Tx) error) error
}

type bookingTutorRepo interface {
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
	FindByUserID(ctx context.Context, userID string) (*models.Tutor, error)
	LockForBookingWithTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Tutor, error)
}

type bookingStudentRepo interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

type bookingRepository interface {
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, booking *models.Booking) error
	FindByID(ctx context.Context, id string) (*models.Booking, error)
}

type bookingLessonRepo interface {
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, lesson *models.Lesson) error
	ListByBooking(ctx context.Context, bookingID string) ([]models.Lesson, error)
}

type notificationEnqueuer interface {
	EnqueueWithTx(ctx context.Context, tx *sqlx.Tx, notifications []models.Notification) error
}

type slotChecker interface {
	CheckSlotWithTx(ctx context.Context, tx *sqlx.Tx, tutor *models.Tutor, slot scheduling.Interval, strict bool) (bool, error)
}

type tutorLocker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error)
}

type meetingScheduler interface {
	Schedule(ctx context.Context, lesson models.Lesson)
}

// BookingConfig holds booking defaults and dependency toggles.
type BookingConfig struct {
	DefaultDuration time.Duration
	LockTTL         time.Duration
	StrictCalendar  bool
}

// BookingDeps groups the collaborators of BookingService. Locker and
// Meetings are optional.
type BookingDeps struct {
	Tx            txRunner
	Tutors        bookingTutorRepo
	Students      bookingStudentRepo
	Bookings      bookingRepository
	Lessons       bookingLessonRepo
	Notifications notificationEnqueuer
	Slots         slotChecker
	Locker        tutorLocker
	Meetings      meetingScheduler
}

// BookingService validates and atomically commits bookings.
type BookingService struct {
	deps      BookingDeps
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       BookingConfig
}

// NewBookingService builds the booking service.
func NewBookingService(deps BookingDeps, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg BookingConfig) *BookingService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = 50 * time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Second
	}
	return &BookingService{deps: deps, validator: validate, metrics: metrics, logger: logger, cfg: cfg}
}

// Create books the first lesson of a new envelope for the student owning
// userID. The availability re-check, envelope insert, lesson insert and
// notification records share one transaction; the meeting is requested only
// after commit.
func (s *BookingService) Create(ctx context.Context, userID string, req dto.CreateBookingRequest) (*models.Booking, error) {
	if req.DurationMinutes == 0 {
		req.DurationMinutes = int(s.cfg.DefaultDuration / time.Minute)
	}
	if req.Frequency == "" {
		req.Frequency = string(models.FrequencyOnce)
	}
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordBooking(BookingOutcomeInvalid)
		return nil, validationError(err, "invalid booking request")
	}

	student, err := s.deps.Students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if _, err := s.deps.Tutors.FindByID(ctx, req.TutorID); err != nil {
		return nil, tutorLookupError(err)
	}

	duration := time.Duration(req.DurationMinutes) * time.Minute
	slot, err := scheduling.NewInterval(req.StartDate, req.StartDate.Add(duration))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking interval")
	}

	if s.deps.Locker != nil {
		release, err := s.deps.Locker.Acquire(ctx, "booking:tutor:"+req.TutorID, s.cfg.LockTTL)
		if err != nil {
			if errors.Is(err, repository.ErrLockHeld) {
				s.metrics.RecordBooking(BookingOutcomeContended)
				return nil, appErrors.Clone(appErrors.ErrConflict, "another booking for this tutor is in progress")
			}
			s.logger.Warn("booking lock unavailable, relying on database locking", zap.Error(err))
		} else {
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					s.logger.Warn("failed to release booking lock", zap.Error(err))
				}
			}()
		}
	}

	frequency := models.BookingFrequency(req.Frequency)
	booking := &models.Booking{
		StudentID:       student.ID,
		TutorID:         req.TutorID,
		StartDate:       slot.Start,
		EndDate:         frequency.EnvelopeEnd(slot.Start, duration),
		DurationMinutes: req.DurationMinutes,
		Frequency:       frequency,
		Status:          models.BookingStatusActive,
	}
	lesson := &models.Lesson{
		TutorID:   req.TutorID,
		StudentID: student.ID,
		StartTime: slot.Start,
		EndTime:   slot.End,
		Status:    models.LessonStatusBooked,
	}

	err = s.deps.Tx.WithTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(tx *sqlx.Tx) error {
		tutor, err := s.deps.Tutors.LockForBookingWithTx(ctx, tx, req.TutorID)
		if err != nil {
			return tutorLookupError(err)
		}

		available, err := s.deps.Slots.CheckSlotWithTx(ctx, tx, tutor, slot, s.cfg.StrictCalendar)
		if err != nil {
			return err
		}
		if !available {
			return appErrors.Clone(appErrors.ErrSlotUnavailable, "requested slot is not available")
		}

		if err := s.deps.Bookings.CreateWithTx(ctx, tx, booking); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
		}
		lesson.BookingID = booking.ID
		if err := s.deps.Lessons.CreateWithTx(ctx, tx, lesson); err != nil {
			if errors.Is(err, repository.ErrLessonOverlap) {
				return appErrors.Wrap(err, appErrors.ErrSlotUnavailable.Code, appErrors.ErrSlotUnavailable.Status, "requested slot is not available")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
		}

		if err := s.deps.Notifications.EnqueueWithTx(ctx, tx, bookingNotifications(tutor, student, booking, lesson)); err != nil {
			if errors.Is(err, repository.ErrTxAborted) {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
			}
			s.logger.Warn("booking notifications not enqueued", zap.String("booking_id", booking.ID), zap.Error(err))
		}
		return nil
	})
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	s.metrics.RecordBooking(BookingOutcomeCreated)
	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("tutor_id", booking.TutorID),
		zap.String("student_id", booking.StudentID),
		zap.Time("start", slot.Start))

	if s.deps.Meetings != nil {
		s.deps.Meetings.Schedule(ctx, *lesson)
	}

	booking.Lessons = []models.Lesson{*lesson}
	return booking, nil
}

// Get returns a booking with its lessons to one of its participants. Other
// callers get not-found.
func (s *BookingService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Booking, error) {
	notFound := appErrors.Clone(appErrors.ErrNotFound, "booking not found")
	if claims == nil {
		return nil, notFound
	}

	booking, err := s.deps.Bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}

	allowed, err := s.isParticipant(ctx, claims, booking)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, notFound
	}

	lessons, err := s.deps.Lessons.ListByBooking(ctx, booking.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	booking.Lessons = lessons
	return booking, nil
}

func (s *BookingService) isParticipant(ctx context.Context, claims *models.JWTClaims, booking *models.Booking) (bool, error) {
	var (
		ownerID string
		err     error
	)
	switch claims.Role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleStudent:
		var student *models.Student
		if student, err = s.deps.Students.FindByUserID(ctx, claims.UserID); err == nil {
			ownerID = student.ID
		}
		if err == nil && ownerID == booking.StudentID {
			return true, nil
		}
	case models.RoleTutor:
		var tutor *models.Tutor
		if tutor, err = s.deps.Tutors.FindByUserID(ctx, claims.UserID); err == nil {
			ownerID = tutor.ID
		}
		if err == nil && ownerID == booking.TutorID {
			return true, nil
		}
	default:
		return false, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve caller profile")
	}
	return false, nil
}

func (s *BookingService) recordFailure(err error) {
	switch {
	case appErrors.Is(err, appErrors.ErrSlotUnavailable):
		s.metrics.RecordBooking(BookingOutcomeUnavailable)
	case appErrors.Is(err, appErrors.ErrNotFound):
		s.metrics.RecordBooking(BookingOutcomeInvalid)
	default:
		s.metrics.RecordBooking(BookingOutcomeError)
	}
}

func bookingNotifications(tutor *models.Tutor, student *models.Student, booking *models.Booking, lesson *models.Lesson) []models.Notification {
	payload, err := json.Marshal(map[string]interface{}{
		"booking_id": booking.ID,
		"lesson_id":  lesson.ID,
		"tutor_id":   booking.TutorID,
		"student_id": booking.StudentID,
		"start_time": lesson.StartTime.UTC(),
		"end_time":   lesson.EndTime.UTC(),
		"frequency":  booking.Frequency,
	})
	if err != nil {
		payload = []byte(`{}`)
	}
	return []models.Notification{
		{RecipientUserID: student.UserID, Kind: models.NotificationBookingCreated, Payload: types.JSONText(payload)},
		{RecipientUserID: tutor.UserID, Kind: models.NotificationLessonScheduled, Payload: types.JSONText(payload)},
	}
}
