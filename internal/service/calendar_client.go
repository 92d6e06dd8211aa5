package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/noah-isme/mentor-scheduling-api/internal/scheduling"
)

// ErrCalendarNotConnected is returned by meeting creation for mentors without
// a linked calendar.
var ErrCalendarNotConnected = errors.New("calendar not connected")

// MeetingRequest describes the remote event to create for a lesson.
type MeetingRequest struct {
	LessonID  string    `json:"lesson_id"`
	TutorID   string    `json:"tutor_id"`
	StudentID string    `json:"student_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// MeetingEvent is the provider's reference to a created event.
type MeetingEvent struct {
	EventID    string `json:"event_id"`
	MeetingURL string `json:"meeting_url"`
}

// CalendarProvider is the external calendar capability. FetchBusy returns
// connected=false when the mentor has no linked calendar, which is distinct
// from a connected calendar with no busy periods.
type CalendarProvider interface {
	FetchBusy(ctx context.Context, tutorID string, from, to time.Time) (busy []scheduling.Interval, connected bool, err error)
	CreateMeeting(ctx context.Context, req MeetingRequest) (*MeetingEvent, error)
}

// NoopCalendar reports every mentor as not connected.
type NoopCalendar struct{}

// FetchBusy implements CalendarProvider.
func (NoopCalendar) FetchBusy(context.Context, string, time.Time, time.Time) ([]scheduling.Interval, bool, error) {
	return nil, false, nil
}

// CreateMeeting implements CalendarProvider.
func (NoopCalendar) CreateMeeting(context.Context, MeetingRequest) (*MeetingEvent, error) {
	return nil, ErrCalendarNotConnected
}

// CalendarHTTPClient talks to the calendar integration service over HTTP.
type CalendarHTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCalendarHTTPClient builds a client rooted at baseURL.
func NewCalendarHTTPClient(baseURL string, httpClient *http.Client) *CalendarHTTPClient {
	if httpClient == nil {
		httpClient = DefaultCalendarHTTPClient()
	}
	return &CalendarHTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// DefaultCalendarHTTPClient returns the transport used when none is injected.
// Per-call deadlines come from the context.
func DefaultCalendarHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

type busyResponse struct {
	Busy []struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	} `json:"busy"`
}

// FetchBusy implements CalendarProvider.
func (c *CalendarHTTPClient) FetchBusy(ctx context.Context, tutorID string, from, to time.Time) ([]scheduling.Interval, bool, error) {
	query := url.Values{}
	query.Set("from", from.UTC().Format(time.RFC3339))
	query.Set("to", to.UTC().Format(time.RFC3339))
	endpoint := fmt.Sprintf("%s/tutors/%s/busy?%s", c.baseURL, url.PathEscape(tutorID), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("calendar service unexpected status: %d", resp.StatusCode)
	}

	var body busyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false, fmt.Errorf("decode calendar busy response: %w", err)
	}

	busy := make([]scheduling.Interval, 0, len(body.Busy))
	for _, b := range body.Busy {
		iv, err := scheduling.NewInterval(b.Start, b.End)
		if err != nil {
			// A malformed period cannot make a slot busy; skip it.
			continue
		}
		busy = append(busy, iv)
	}
	return busy, true, nil
}

// CreateMeeting implements CalendarProvider.
func (c *CalendarHTTPClient) CreateMeeting(ctx context.Context, meeting MeetingRequest) (*MeetingEvent, error) {
	payload, err := json.Marshal(meeting)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/tutors/%s/meetings", c.baseURL, url.PathEscape(meeting.TutorID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusNotFound:
		return nil, ErrCalendarNotConnected
	default:
		return nil, fmt.Errorf("calendar service unexpected status: %d", resp.StatusCode)
	}

	var event MeetingEvent
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		return nil, fmt.Errorf("decode meeting response: %w", err)
	}
	if event.EventID == "" {
		return nil, errors.New("calendar response missing event id")
	}
	return &event, nil
}
