package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testService(store *memStore, people *fakePeople, notifier Notifier, sweeps SweepScheduler) *Service {
	return NewService(store, people, notifier, sweeps, zap.NewNop())
}

func clockAt(hour, min int) func() time.Time {
	return func() time.Time {
		return time.Date(2025, 3, 14, hour, min, 0, 0, time.Local)
	}
}

func registered(emails ...string) *fakePeople {
	people := &fakePeople{byEmail: map[string]Person{}}
	for _, email := range emails {
		people.byEmail[email] = Person{Email: email, FirstName: "Test", LastName: "Person"}
	}
	return people
}

func TestMarkAttendanceFullDayScenario(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	sweeps := &syncSweeps{sweeper: NewSweeper(store, zap.NewNop())}
	svc := testService(store, registered("p@example.com"), nil, sweeps)
	day, _ := DayWindow(clockAt(8, 0)())

	// 08:00 — first check-in of the day.
	svc.now = clockAt(8, 0)
	res, err := svc.MarkAttendance(ctx, "Pat", "Miller", "p@example.com")
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, StatusPresent, res.Record.Status)
	assert.Equal(t, ProgressNotLate, res.Record.Progress)
	assert.Equal(t, day, res.Record.CalendarDay)
	firstID := res.Record.ID

	// 08:30 — retry inside the same window is absorbed.
	svc.now = clockAt(8, 30)
	res, err = svc.MarkAttendance(ctx, "Pat", "Miller", "p@example.com")
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, firstID, res.Record.ID)
	assert.Equal(t, "Already marked as present today", res.Message)
	assert.Equal(t, 1, store.count("p@example.com", day, StatusPresent))

	// 12:00 — already present, so this is an early leave.
	svc.now = clockAt(12, 0)
	res, err = svc.MarkAttendance(ctx, "Pat", "Miller", "p@example.com")
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, StatusLeave, res.Record.Status)
	assert.Equal(t, ProgressLeaveEarly, res.Record.Progress)
	leaveID := res.Record.ID

	// 22:00 — leave already on file; duplicate against it, no new record.
	svc.now = clockAt(22, 0)
	res, err = svc.MarkAttendance(ctx, "Pat", "Miller", "p@example.com")
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, leaveID, res.Record.ID)
	assert.Equal(t, 1, store.count("p@example.com", day, StatusLeave))
	assert.Equal(t, 0, store.count("p@example.com", day, StatusWarning))
}

func TestMarkAttendanceEveningWithoutMorning(t *testing.T) {
	store := newMemStore()
	svc := testService(store, registered("q@example.com"), nil, nil)
	svc.now = clockAt(20, 0)

	res, err := svc.MarkAttendance(context.Background(), "Quinn", "Lee", "q@example.com")
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, StatusWarning, res.Record.Status)
	assert.Equal(t, ProgressNotMarkedPresentAM, res.Record.Progress)
}

func TestMarkAttendanceMissingFields(t *testing.T) {
	store := newMemStore()
	store.queryErr = errors.New("should not be reached")
	svc := testService(store, &fakePeople{err: errors.New("should not be reached")}, nil, nil)

	for _, args := range [][3]string{
		{"", "Miller", "p@example.com"},
		{"Pat", "", "p@example.com"},
		{"Pat", "Miller", ""},
		{"  ", "Miller", "p@example.com"},
	} {
		_, err := svc.MarkAttendance(context.Background(), args[0], args[1], args[2])
		assert.ErrorIs(t, err, ErrMissingFields)
	}
}

func TestMarkAttendanceUnknownPerson(t *testing.T) {
	svc := testService(newMemStore(), registered(), nil, nil)
	svc.now = clockAt(8, 0)

	_, err := svc.MarkAttendance(context.Background(), "No", "Body", "ghost@example.com")
	assert.ErrorIs(t, err, ErrUnknownPerson)
}

func TestMarkAttendanceStoreFailures(t *testing.T) {
	t.Run("read failure aborts before write", func(t *testing.T) {
		store := newMemStore()
		store.queryErr = errors.New("connection refused")
		svc := testService(store, registered("p@example.com"), nil, nil)
		svc.now = clockAt(8, 0)

		_, err := svc.MarkAttendance(context.Background(), "Pat", "Miller", "p@example.com")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.Empty(t, store.records)
	})

	t.Run("write failure surfaces", func(t *testing.T) {
		store := newMemStore()
		store.insertErr = errors.New("connection refused")
		svc := testService(store, registered("p@example.com"), nil, nil)
		svc.now = clockAt(8, 0)

		_, err := svc.MarkAttendance(context.Background(), "Pat", "Miller", "p@example.com")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})
}

func TestMarkAttendanceNotificationFailureIsSwallowed(t *testing.T) {
	store := newMemStore()
	notifier := newFakeNotifier()
	notifier.err = errors.New("smtp down")
	svc := testService(store, registered("p@example.com"), notifier, nil)
	svc.now = clockAt(8, 0)

	res, err := svc.MarkAttendance(context.Background(), "Pat", "Miller", "p@example.com")
	require.NoError(t, err)
	assert.False(t, res.Duplicate)

	select {
	case sent := <-notifier.sent:
		assert.Equal(t, "p@example.com", sent.Email)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was never attempted")
	}
}

func TestMarkAttendanceNoNotificationOnDuplicate(t *testing.T) {
	store := newMemStore()
	notifier := newFakeNotifier()
	svc := testService(store, registered("p@example.com"), notifier, nil)

	svc.now = clockAt(8, 0)
	_, err := svc.MarkAttendance(context.Background(), "Pat", "Miller", "p@example.com")
	require.NoError(t, err)
	<-notifier.sent

	svc.now = clockAt(8, 30)
	res, err := svc.MarkAttendance(context.Background(), "Pat", "Miller", "p@example.com")
	require.NoError(t, err)
	require.True(t, res.Duplicate)

	select {
	case <-notifier.sent:
		t.Fatal("duplicate check-in must not notify")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMarkAttendanceSchedulesSweepAfterWrite(t *testing.T) {
	store := newMemStore()
	sweeps := &syncSweeps{sweeper: NewSweeper(store, zap.NewNop())}
	svc := testService(store, registered("p@example.com"), nil, sweeps)

	svc.now = clockAt(8, 0)
	_, err := svc.MarkAttendance(context.Background(), "Pat", "Miller", "p@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, sweeps.runs)

	// Duplicate check-in writes nothing and schedules nothing.
	svc.now = clockAt(8, 30)
	_, err = svc.MarkAttendance(context.Background(), "Pat", "Miller", "p@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, sweeps.runs)
}

func TestStatusForToday(t *testing.T) {
	ctx := context.Background()
	day, _ := DayWindow(clockAt(8, 0)())

	seed := func(statuses ...Status) *Service {
		store := newMemStore()
		for i, st := range statuses {
			progress := ProgressNotLate
			switch st {
			case StatusLeave:
				progress = ProgressLeaveOnTime
			case StatusWarning:
				progress = ProgressNotMarkedPresentAM
			}
			_, err := store.InsertRecord(ctx, Record{
				Email:       "p@example.com",
				CalendarDay: day,
				Status:      st,
				Progress:    progress,
				EventTime:   day.Add(time.Duration(i+8) * time.Hour),
			})
			require.NoError(t, err)
		}
		svc := testService(store, registered("p@example.com"), nil, nil)
		svc.now = clockAt(23, 0)
		return svc
	}

	t.Run("present and leave", func(t *testing.T) {
		st, err := seed(StatusPresent, StatusLeave).StatusForToday(ctx, "p@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Present (not_late) → Leave (leave_on_time)", st.Summary)
		assert.NotNil(t, st.Present)
		assert.NotNil(t, st.Leave)
		assert.Nil(t, st.Warning)
	})

	t.Run("present only", func(t *testing.T) {
		st, err := seed(StatusPresent).StatusForToday(ctx, "p@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Present (not_late)", st.Summary)
	})

	t.Run("warning only", func(t *testing.T) {
		st, err := seed(StatusWarning).StatusForToday(ctx, "p@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Warning (not_marked_present_morning)", st.Summary)
	})

	t.Run("nothing on file", func(t *testing.T) {
		st, err := seed().StatusForToday(ctx, "p@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Not marked", st.Summary)
		assert.Equal(t, day.Format("2006-01-02"), st.Date)
	})
}
