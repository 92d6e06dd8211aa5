package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-scheduling-api/internal/dto"
	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	"github.com/noah-isme/mentor-scheduling-api/internal/scheduling"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
)

func newSlotFixture(t *testing.T, cfg SlotConfig) (*memStore, *SlotService) {
	t.Helper()
	store := newMemStore()
	store.addTutor("tutor-ny", "user-ny", "America/New_York")
	store.setRules("tutor-ny", rule(time.Monday, "09:00", "17:00"))
	busy := NewBusyService(memLessons{store}, memBlocks{store}, nil, nil, nil, zap.NewNop(), BusyConfig{})
	svc := NewSlotService(memTutors{store}, &memRules{store: store}, busy, NewValidator(), nil, zap.NewNop(), cfg)
	return store, svc
}

func nyMonday(hour, minute int) time.Time {
	return time.Date(2024, 1, 8, hour, minute, 0, 0, mustLoad("America/New_York"))
}

func TestSlotServiceGenerateWorkingDay(t *testing.T) {
	_, svc := newSlotFixture(t, SlotConfig{})

	resp, err := svc.Generate(context.Background(), dto.SlotQuery{
		TutorID:         "tutor-ny",
		From:            nyMonday(0, 0),
		To:              nyMonday(0, 0).AddDate(0, 0, 1),
		DurationMinutes: 60,
		StepMinutes:     60,
	})
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", resp.Timezone)
	require.Len(t, resp.Slots, 8)
	assert.True(t, resp.Slots[0].Start.Equal(time.Date(2024, 1, 8, 14, 0, 0, 0, time.UTC)))
	assert.True(t, resp.Slots[7].End.Equal(time.Date(2024, 1, 8, 22, 0, 0, 0, time.UTC)))
}

func TestSlotServiceGenerateSkipsBookedLesson(t *testing.T) {
	store, svc := newSlotFixture(t, SlotConfig{})
	store.lessons = append(store.lessons, models.Lesson{
		ID: "l-1", TutorID: "tutor-ny", StartTime: nyMonday(10, 0), EndTime: nyMonday(11, 0), Status: models.LessonStatusBooked,
	})

	resp, err := svc.Generate(context.Background(), dto.SlotQuery{
		TutorID: "tutor-ny", From: nyMonday(0, 0), To: nyMonday(0, 0).AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	require.Len(t, resp.Slots, 7)
	for _, slot := range resp.Slots {
		assert.False(t, slot.Start.Equal(nyMonday(10, 0)))
	}
	assert.True(t, resp.Slots[1].Start.Equal(nyMonday(11, 0)))
}

func TestSlotServiceGenerateAppliesDefaults(t *testing.T) {
	_, svc := newSlotFixture(t, SlotConfig{DefaultDuration: 30 * time.Minute, DefaultStep: 30 * time.Minute})

	resp, err := svc.Generate(context.Background(), dto.SlotQuery{
		TutorID: "tutor-ny", From: nyMonday(9, 0), To: nyMonday(11, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 30, resp.DurationMinutes)
	assert.Equal(t, 30, resp.StepMinutes)
	assert.Len(t, resp.Slots, 4)
}

func TestSlotServiceGenerateUnknownTutor(t *testing.T) {
	_, svc := newSlotFixture(t, SlotConfig{})

	resp, err := svc.Generate(context.Background(), dto.SlotQuery{
		TutorID: "missing", From: nyMonday(0, 0), To: nyMonday(23, 0),
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Slots)
}

func TestSlotServiceGenerateValidation(t *testing.T) {
	_, svc := newSlotFixture(t, SlotConfig{MaxWindow: 48 * time.Hour})

	cases := map[string]dto.SlotQuery{
		"inverted window": {TutorID: "tutor-ny", From: nyMonday(12, 0), To: nyMonday(9, 0)},
		"short duration":  {TutorID: "tutor-ny", From: nyMonday(0, 0), To: nyMonday(12, 0), DurationMinutes: 5},
		"missing tutor":   {From: nyMonday(0, 0), To: nyMonday(12, 0)},
		"window too wide": {TutorID: "tutor-ny", From: nyMonday(0, 0), To: nyMonday(0, 0).AddDate(0, 0, 3)},
	}
	for name, query := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Generate(context.Background(), query)
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
		})
	}
}

func TestSlotServiceIsAvailable(t *testing.T) {
	store, svc := newSlotFixture(t, SlotConfig{})
	store.blocks["b-1"] = &models.TutorTimeBlock{ID: "b-1", TutorID: "tutor-ny", StartTime: nyMonday(13, 0), EndTime: nyMonday(14, 0)}
	ctx := context.Background()

	ok, err := svc.IsAvailable(ctx, "tutor-ny", nyMonday(9, 0), nyMonday(10, 0))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsAvailable(ctx, "tutor-ny", nyMonday(9, 17), nyMonday(10, 7))
	require.NoError(t, err)
	assert.True(t, ok, "off-grid starts are accepted when covered and free")

	ok, err = svc.IsAvailable(ctx, "tutor-ny", nyMonday(8, 30), nyMonday(9, 30))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.IsAvailable(ctx, "tutor-ny", nyMonday(13, 30), nyMonday(14, 30))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.IsAvailable(ctx, "missing", nyMonday(9, 0), nyMonday(10, 0))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.IsAvailable(ctx, "tutor-ny", nyMonday(10, 0), nyMonday(10, 0))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSlotServiceCheckSlotWithTxSeesTransactionLessons(t *testing.T) {
	store, svc := newSlotFixture(t, SlotConfig{})
	tutor, err := memTutors{store}.FindByID(context.Background(), "tutor-ny")
	require.NoError(t, err)

	tx := &sqlx.Tx{}
	store.staged[tx] = &stagedWrites{lessons: []models.Lesson{{
		ID: "l-staged", TutorID: "tutor-ny", StartTime: nyMonday(10, 0), EndTime: nyMonday(11, 0), Status: models.LessonStatusBooked,
	}}}
	slot := scheduling.Interval{Start: nyMonday(10, 30), End: nyMonday(11, 30)}
	ctx := context.Background()

	ok, err := svc.CheckSlotWithTx(ctx, tx, tutor, slot, false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, store.busyReadsWithTx)

	ok, err = svc.CheckSlotWithTx(ctx, &sqlx.Tx{}, tutor, slot, false)
	require.NoError(t, err)
	assert.True(t, ok, "lessons staged by another transaction stay invisible")

	ok, err = svc.CheckSlotWithTx(ctx, tx, tutor, scheduling.Interval{Start: nyMonday(11, 0), End: nyMonday(12, 0)}, false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSlotServiceSkipsInvalidStoredRules(t *testing.T) {
	store, svc := newSlotFixture(t, SlotConfig{})
	store.setRules("tutor-ny", rule(time.Monday, "12:00", "10:00"), rule(time.Monday, "09:00", "10:00"))

	resp, err := svc.Generate(context.Background(), dto.SlotQuery{
		TutorID: "tutor-ny", From: nyMonday(0, 0), To: nyMonday(0, 0).AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	require.Len(t, resp.Slots, 1)
	assert.True(t, resp.Slots[0].Start.Equal(nyMonday(9, 0)))
}
