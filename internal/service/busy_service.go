package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	"github.com/noah-isme/mentor-scheduling-api/internal/scheduling"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
)

type lessonBusyReader interface {
	ListBusy(ctx context.Context, tutorID string, from, to time.Time) ([]models.Lesson, error)
	ListBusyWithTx(ctx context.Context, tx *sqlx.Tx, tutorID string, from, to time.Time) ([]models.Lesson, error)
}

type timeBlockBusyReader interface {
	ListOverlapping(ctx context.Context, tutorID string, from, to time.Time) ([]models.TutorTimeBlock, error)
}

// BusyConfig tunes the external calendar lookup.
type BusyConfig struct {
	CalendarTimeout  time.Duration
	CalendarCacheTTL time.Duration
}

type cachedBusy struct {
	Connected bool                  `json:"connected"`
	Busy      []scheduling.Interval `json:"busy"`
}

// BusyService collects every interval during which a mentor cannot be booked:
// non-cancelled lessons, manual time blocks and external calendar periods.
type BusyService struct {
	lessons  lessonBusyReader
	blocks   timeBlockBusyReader
	calendar CalendarProvider
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      BusyConfig
}

// NewBusyService wires the busy aggregator. A nil calendar behaves as a
// mentor without a connected calendar.
func NewBusyService(lessons lessonBusyReader, blocks timeBlockBusyReader, calendar CalendarProvider, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg BusyConfig) *BusyService {
	if calendar == nil {
		calendar = NoopCalendar{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CalendarTimeout <= 0 {
		cfg.CalendarTimeout = 2 * time.Second
	}
	return &BusyService{
		lessons:  lessons,
		blocks:   blocks,
		calendar: calendar,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

// Collect returns the unordered busy intervals intersecting [from, to).
// Calendar failures degrade to no external data unless strict is set, in
// which case they surface as ErrServiceUnavailable.
func (s *BusyService) Collect(ctx context.Context, tutorID string, from, to time.Time, strict bool) ([]scheduling.Interval, error) {
	lessons, err := s.lessons.ListBusy(ctx, tutorID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	return s.merge(ctx, lessons, tutorID, from, to, strict)
}

// CollectWithTx is Collect with lessons read through tx, so rows written or
// locked by the transaction are visible.
func (s *BusyService) CollectWithTx(ctx context.Context, tx *sqlx.Tx, tutorID string, from, to time.Time, strict bool) ([]scheduling.Interval, error) {
	lessons, err := s.lessons.ListBusyWithTx(ctx, tx, tutorID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	return s.merge(ctx, lessons, tutorID, from, to, strict)
}

func (s *BusyService) merge(ctx context.Context, lessons []models.Lesson, tutorID string, from, to time.Time, strict bool) ([]scheduling.Interval, error) {
	blocks, err := s.blocks.ListOverlapping(ctx, tutorID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time blocks")
	}

	busy := make([]scheduling.Interval, 0, len(lessons)+len(blocks))
	for _, l := range lessons {
		if !l.Status.BlocksAvailability() {
			continue
		}
		if iv, err := scheduling.NewInterval(l.StartTime, l.EndTime); err == nil {
			busy = append(busy, iv)
		}
	}
	for _, b := range blocks {
		if iv, err := scheduling.NewInterval(b.StartTime, b.EndTime); err == nil {
			busy = append(busy, iv)
		}
	}

	external, err := s.external(ctx, tutorID, from, to)
	if err != nil {
		if strict {
			return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "calendar service unavailable")
		}
		s.logger.Warn("calendar busy lookup failed, continuing without external busy data",
			zap.String("tutor_id", tutorID), zap.Error(err))
		return busy, nil
	}
	return append(busy, external...), nil
}

func (s *BusyService) external(ctx context.Context, tutorID string, from, to time.Time) ([]scheduling.Interval, error) {
	key := calendarCacheKey(tutorID, from, to)
	var cached cachedBusy
	if s.cache.Get(ctx, key, &cached) {
		s.metrics.RecordCalendarFetch(CalendarOutcomeCached)
		return cached.Busy, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CalendarTimeout)
	defer cancel()

	busy, connected, err := s.calendar.FetchBusy(callCtx, tutorID, from, to)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			s.metrics.RecordCalendarFetch(CalendarOutcomeTimeout)
		} else {
			s.metrics.RecordCalendarFetch(CalendarOutcomeError)
		}
		return nil, err
	}
	if !connected {
		s.metrics.RecordCalendarFetch(CalendarOutcomeNotConnected)
		busy = nil
	} else {
		s.metrics.RecordCalendarFetch(CalendarOutcomeOK)
	}

	s.cache.Set(ctx, key, cachedBusy{Connected: connected, Busy: busy}, s.cfg.CalendarCacheTTL)
	return busy, nil
}

func calendarCacheKey(tutorID string, from, to time.Time) string {
	return fmt.Sprintf("calendar:busy:%s:%d:%d", tutorID, from.Unix(), to.Unix())
}
