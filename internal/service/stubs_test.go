package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	"github.com/noah-isme/mentor-scheduling-api/internal/repository"
	"github.com/noah-isme/mentor-scheduling-api/internal/scheduling"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
)

// memStore emulates the Postgres tables the scheduling services touch,
// including per-transaction staging, the tutor row lock and the lessons
// exclusion constraint.
type memStore struct {
	mu            sync.Mutex
	tutors        map[string]*models.Tutor
	students      map[string]*models.Student
	rules         map[string][]models.WeeklyAvailabilityRule
	blocks        map[string]*models.TutorTimeBlock
	bookings      map[string]*models.Booking
	lessons       []models.Lesson
	notifications []models.Notification
	staged        map[*sqlx.Tx]*stagedWrites
	rowLocks      map[string]*sync.Mutex

	lockRows        bool
	busyReadsWithTx int
	failLessonWith  error
	failNotifyWith  error
	failBookingWith error
}

type stagedWrites struct {
	bookings      []models.Booking
	lessons       []models.Lesson
	notifications []models.Notification
	held          []*sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		tutors:   map[string]*models.Tutor{},
		students: map[string]*models.Student{},
		rules:    map[string][]models.WeeklyAvailabilityRule{},
		blocks:   map[string]*models.TutorTimeBlock{},
		bookings: map[string]*models.Booking{},
		staged:   map[*sqlx.Tx]*stagedWrites{},
		rowLocks: map[string]*sync.Mutex{},
		lockRows: true,
	}
}

func (m *memStore) addTutor(id, userID, tz string) *models.Tutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &models.Tutor{ID: id, UserID: userID, FullName: id, Timezone: tz}
	m.tutors[id] = t
	m.rowLocks[id] = &sync.Mutex{}
	return t
}

func (m *memStore) addStudent(id, userID string) *models.Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &models.Student{ID: id, UserID: userID, FullName: id}
	m.students[id] = s
	return s
}

func (m *memStore) setRules(tutorID string, rules ...models.WeeklyAvailabilityRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[tutorID] = rules
}

func (m *memStore) committedLessons() []models.Lesson {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Lesson, len(m.lessons))
	copy(out, m.lessons)
	return out
}

// memTx implements txRunner over memStore.
type memTx struct{ store *memStore }

func (t memTx) WithTx(ctx context.Context, _ *sql.TxOptions, fn func(tx *sqlx.Tx) error) error {
	tx := &sqlx.Tx{}
	m := t.store
	m.mu.Lock()
	m.staged[tx] = &stagedWrites{}
	m.mu.Unlock()

	err := fn(tx)

	m.mu.Lock()
	st := m.staged[tx]
	delete(m.staged, tx)
	if err == nil {
		for i := range st.bookings {
			b := st.bookings[i]
			m.bookings[b.ID] = &b
		}
		m.lessons = append(m.lessons, st.lessons...)
		m.notifications = append(m.notifications, st.notifications...)
	}
	m.mu.Unlock()
	for _, l := range st.held {
		l.Unlock()
	}
	return err
}

// memTutors implements the tutor repository interfaces.
type memTutors struct{ store *memStore }

func (r memTutors) FindByID(_ context.Context, id string) (*models.Tutor, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tutors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (r memTutors) FindByUserID(_ context.Context, userID string) (*models.Tutor, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.tutors {
		if t.UserID == userID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memTutors) UpdateTimezone(_ context.Context, id, timezone string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tutors[id]
	if !ok {
		return sql.ErrNoRows
	}
	t.Timezone = timezone
	return nil
}

func (r memTutors) LockForBookingWithTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Tutor, error) {
	r.store.mu.Lock()
	lock, ok := r.store.rowLocks[id]
	r.store.mu.Unlock()
	if !ok {
		return nil, sql.ErrNoRows
	}
	if r.store.lockRows {
		lock.Lock()
		r.store.mu.Lock()
		r.store.staged[tx].held = append(r.store.staged[tx].held, lock)
		r.store.mu.Unlock()
	}
	return r.FindByID(ctx, id)
}

// memStudents implements the student repository interface.
type memStudents struct{ store *memStore }

func (r memStudents) FindByID(_ context.Context, id string) (*models.Student, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (r memStudents) FindByUserID(_ context.Context, userID string) (*models.Student, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, s := range r.store.students {
		if s.UserID == userID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

// memRules implements the availability rule repository interfaces.
type memRules struct {
	store *memStore
	calls int
}

func (r *memRules) ListByTutor(_ context.Context, tutorID string) ([]models.WeeklyAvailabilityRule, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]models.WeeklyAvailabilityRule, len(r.store.rules[tutorID]))
	copy(out, r.store.rules[tutorID])
	return out, nil
}

func (r *memRules) ReplaceForTutor(_ context.Context, tutorID string, rules []models.WeeklyAvailabilityRule) error {
	r.calls++
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range rules {
		rules[i].ID = uuid.NewString()
		rules[i].TutorID = tutorID
	}
	r.store.rules[tutorID] = append([]models.WeeklyAvailabilityRule(nil), rules...)
	return nil
}

// memBlocks implements the time block repository interfaces.
type memBlocks struct{ store *memStore }

func (r memBlocks) List(_ context.Context, filter models.TimeBlockFilter) ([]models.TutorTimeBlock, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]models.TutorTimeBlock, 0)
	for _, b := range r.store.blocks {
		if b.TutorID != filter.TutorID {
			continue
		}
		if filter.To != nil && !b.StartTime.Before(*filter.To) {
			continue
		}
		if filter.From != nil && !b.EndTime.After(*filter.From) {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r memBlocks) ListOverlapping(ctx context.Context, tutorID string, from, to time.Time) ([]models.TutorTimeBlock, error) {
	return r.List(ctx, models.TimeBlockFilter{TutorID: tutorID, From: &from, To: &to})
}

func (r memBlocks) FindByIDForTutor(_ context.Context, id, tutorID string) (*models.TutorTimeBlock, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.blocks[id]
	if !ok || b.TutorID != tutorID {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (r memBlocks) Create(_ context.Context, block *models.TutorTimeBlock) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	cp := *block
	r.store.blocks[block.ID] = &cp
	return nil
}

func (r memBlocks) Update(_ context.Context, block *models.TutorTimeBlock) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.blocks[block.ID]
	if !ok || existing.TutorID != block.TutorID {
		return sql.ErrNoRows
	}
	cp := *block
	r.store.blocks[block.ID] = &cp
	return nil
}

func (r memBlocks) Delete(_ context.Context, id, tutorID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.blocks[id]
	if !ok || existing.TutorID != tutorID {
		return sql.ErrNoRows
	}
	delete(r.store.blocks, id)
	return nil
}

// memLessons implements the lesson repository interfaces.
type memLessons struct{ store *memStore }

func (r memLessons) ListBusy(_ context.Context, tutorID string, from, to time.Time) ([]models.Lesson, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	window := scheduling.Interval{Start: from, End: to}
	out := make([]models.Lesson, 0)
	for _, l := range r.store.lessons {
		if l.TutorID != tutorID || l.Status == models.LessonStatusCancelled {
			continue
		}
		if (scheduling.Interval{Start: l.StartTime, End: l.EndTime}).Overlaps(window) {
			out = append(out, l)
		}
	}
	return out, nil
}

// ListBusyWithTx sees committed lessons plus those staged by tx.
func (r memLessons) ListBusyWithTx(ctx context.Context, tx *sqlx.Tx, tutorID string, from, to time.Time) ([]models.Lesson, error) {
	out, _ := r.ListBusy(ctx, tutorID, from, to)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.busyReadsWithTx++
	st, ok := r.store.staged[tx]
	if !ok {
		return out, nil
	}
	window := scheduling.Interval{Start: from, End: to}
	for _, l := range st.lessons {
		if l.TutorID == tutorID && l.Status.BlocksAvailability() &&
			(scheduling.Interval{Start: l.StartTime, End: l.EndTime}).Overlaps(window) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r memLessons) CreateWithTx(_ context.Context, tx *sqlx.Tx, lesson *models.Lesson) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failLessonWith != nil {
		return r.store.failLessonWith
	}
	candidate := scheduling.Interval{Start: lesson.StartTime, End: lesson.EndTime}
	conflicts := func(ls []models.Lesson) bool {
		for _, l := range ls {
			if l.TutorID == lesson.TutorID && l.Status.BlocksAvailability() &&
				(scheduling.Interval{Start: l.StartTime, End: l.EndTime}).Overlaps(candidate) {
				return true
			}
		}
		return false
	}
	if conflicts(r.store.lessons) {
		return repository.ErrLessonOverlap
	}
	for _, st := range r.store.staged {
		if conflicts(st.lessons) {
			return repository.ErrLessonOverlap
		}
	}
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	r.store.staged[tx].lessons = append(r.store.staged[tx].lessons, *lesson)
	return nil
}

func (r memLessons) ListByBooking(_ context.Context, bookingID string) ([]models.Lesson, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]models.Lesson, 0)
	for _, l := range r.store.lessons {
		if l.BookingID == bookingID {
			out = append(out, l)
		}
	}
	return out, nil
}

// memBookings implements the booking repository interface.
type memBookings struct{ store *memStore }

func (r memBookings) CreateWithTx(_ context.Context, tx *sqlx.Tx, booking *models.Booking) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failBookingWith != nil {
		return r.store.failBookingWith
	}
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	r.store.staged[tx].bookings = append(r.store.staged[tx].bookings, *booking)
	return nil
}

func (r memBookings) FindByID(_ context.Context, id string) (*models.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.bookings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

// memNotifications implements notificationEnqueuer.
type memNotifications struct{ store *memStore }

func (r memNotifications) EnqueueWithTx(_ context.Context, tx *sqlx.Tx, notifications []models.Notification) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failNotifyWith != nil {
		return r.store.failNotifyWith
	}
	r.store.staged[tx].notifications = append(r.store.staged[tx].notifications, notifications...)
	return nil
}

// calendarStub is a scripted CalendarProvider.
type calendarStub struct {
	mu        sync.Mutex
	busy      []scheduling.Interval
	connected bool
	err       error
	block     bool
	fetches   int
	meetings  []MeetingRequest
	meetErr   error
}

func (c *calendarStub) FetchBusy(ctx context.Context, _ string, _, _ time.Time) ([]scheduling.Interval, bool, error) {
	c.mu.Lock()
	c.fetches++
	block, busy, connected, err := c.block, c.busy, c.connected, c.err
	c.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, false, ctx.Err()
	}
	return busy, connected, err
}

func (c *calendarStub) CreateMeeting(_ context.Context, req MeetingRequest) (*MeetingEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.meetErr != nil {
		return nil, c.meetErr
	}
	c.meetings = append(c.meetings, req)
	return &MeetingEvent{EventID: "evt-" + req.LessonID, MeetingURL: "https://meet.example/" + req.LessonID}, nil
}

// memCache implements CacheRepository.
type memCache struct {
	mu    sync.Mutex
	items map[string]interface{}
}

func newMemCache() *memCache { return &memCache{items: map[string]interface{}{}} }

func (c *memCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if d, ok := dest.(*cachedBusy); ok {
		*d = v.(cachedBusy)
	}
	return nil
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func rule(day time.Weekday, start, end string) models.WeeklyAvailabilityRule {
	return models.WeeklyAvailabilityRule{DayOfWeek: int(day), StartTime: start, EndTime: end}
}

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}
