package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mentor-scheduling-api/internal/dto"
	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	"github.com/noah-isme/mentor-scheduling-api/pkg/jobs"
)

// MeetingJobType is the queue job type for meeting provisioning.
const MeetingJobType = "lesson.meeting"

type meetingLessonRepo interface {
	SetMeeting(ctx context.Context, lessonID, meetingURL, eventID string) error
}

type jobSubmitter interface {
	Submit(jobType string, payload interface{}) (string, error)
}

// MeetingService provisions remote meetings for committed lessons. Every
// failure is logged and never propagated to the booking.
type MeetingService struct {
	calendar CalendarProvider
	lessons  meetingLessonRepo
	queue    jobSubmitter
	metrics  *MetricsService
	logger   *zap.Logger
	timeout  time.Duration
}

// NewMeetingService builds the service. Without a queue, meetings are
// provisioned inline with a bounded timeout.
func NewMeetingService(calendar CalendarProvider, lessons meetingLessonRepo, metrics *MetricsService, logger *zap.Logger, timeout time.Duration) *MeetingService {
	if calendar == nil {
		calendar = NoopCalendar{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MeetingService{calendar: calendar, lessons: lessons, metrics: metrics, logger: logger, timeout: timeout}
}

// UseQueue routes future Schedule calls through q.
func (s *MeetingService) UseQueue(q jobSubmitter) {
	s.queue = q
}

// Schedule requests a meeting for lesson after its transaction committed.
func (s *MeetingService) Schedule(ctx context.Context, lesson models.Lesson) {
	payload := dto.MeetingJob{
		LessonID:  lesson.ID,
		TutorID:   lesson.TutorID,
		StudentID: lesson.StudentID,
		StartTime: lesson.StartTime,
		EndTime:   lesson.EndTime,
	}

	if s.queue != nil {
		if _, err := s.queue.Submit(MeetingJobType, payload); err != nil {
			s.metrics.RecordMeeting(false)
			s.logger.Warn("failed to enqueue meeting provisioning", zap.String("lesson_id", lesson.ID), zap.Error(err))
		}
		return
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.provision(callCtx, payload); err != nil {
		s.logger.Warn("meeting provisioning failed", zap.String("lesson_id", lesson.ID), zap.Error(err))
	}
}

// HandleJob is the queue handler. Returning an error triggers a retry; a
// mentor without a connected calendar is not retried.
func (s *MeetingService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(dto.MeetingJob)
	if !ok {
		s.logger.Error("unexpected meeting job payload", zap.String("job_id", job.ID))
		return nil
	}
	err := s.provision(ctx, payload)
	if errors.Is(err, ErrCalendarNotConnected) {
		return nil
	}
	return err
}

func (s *MeetingService) provision(ctx context.Context, payload dto.MeetingJob) error {
	event, err := s.calendar.CreateMeeting(ctx, MeetingRequest{
		LessonID:  payload.LessonID,
		TutorID:   payload.TutorID,
		StudentID: payload.StudentID,
		Start:     payload.StartTime,
		End:       payload.EndTime,
	})
	if err != nil {
		if errors.Is(err, ErrCalendarNotConnected) {
			s.logger.Debug("skipping meeting, calendar not connected", zap.String("tutor_id", payload.TutorID))
			return err
		}
		s.metrics.RecordMeeting(false)
		return fmt.Errorf("create meeting: %w", err)
	}
	if err := s.lessons.SetMeeting(ctx, payload.LessonID, event.MeetingURL, event.EventID); err != nil {
		s.metrics.RecordMeeting(false)
		return fmt.Errorf("store meeting reference: %w", err)
	}
	s.metrics.RecordMeeting(true)
	s.logger.Info("meeting provisioned", zap.String("lesson_id", payload.LessonID), zap.String("event_id", event.EventID))
	return nil
}
