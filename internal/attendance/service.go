package attendance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RecordStore is the persistence surface the engine and sweeper need:
// insert, query by person and day range, delete by id.
type RecordStore interface {
	InsertRecord(ctx context.Context, rec Record) (Record, error)
	RecordsForDay(ctx context.Context, email string, start, end time.Time) ([]Record, error)
	DeleteRecord(ctx context.Context, id string) error
}

// RegistrationLookup resolves an email to a registered person.
type RegistrationLookup interface {
	FindPerson(ctx context.Context, email string) (*Person, error)
}

// Notifier delivers the attendance notification. Failures never surface to
// the check-in caller.
type Notifier interface {
	Notify(ctx context.Context, rec Record) error
}

// SweepScheduler requests a best-effort dedup sweep for a person/day window.
type SweepScheduler interface {
	Schedule(ctx context.Context, job SweepJob) error
}

// SweepJob identifies one person/day window to sweep.
type SweepJob struct {
	Email string    `json:"email"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MarkResult is the outcome of a check-in. Duplicate check-ins are not
// errors: the kiosk retries freely, and a repeat within the same window
// returns the pre-existing record with Duplicate set.
type MarkResult struct {
	Duplicate bool   `json:"duplicate"`
	Message   string `json:"message"`
	Record    Record `json:"record"`
}

// Service coordinates check-in classification, persistence and the
// fire-and-forget side effects.
type Service struct {
	store    RecordStore
	people   RegistrationLookup
	notifier Notifier
	sweeps   SweepScheduler
	log      *zap.Logger
	now      func() time.Time
}

// NewService wires the engine. notifier and sweeps may be nil, in which case
// the corresponding side effect is skipped.
func NewService(store RecordStore, people RegistrationLookup, notifier Notifier, sweeps SweepScheduler, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		people:   people,
		notifier: notifier,
		sweeps:   sweeps,
		log:      log,
		now:      time.Now,
	}
}

// MarkAttendance records a check-in event for an identified person.
//
// The read-decide-write sequence is not transactional: two concurrent
// check-ins for the same person can both decide to write. That transient
// duplicate is accepted and converged by the sweeper after the fact.
func (s *Service) MarkAttendance(ctx context.Context, firstName, lastName, email string) (MarkResult, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	email = strings.TrimSpace(email)
	if firstName == "" || lastName == "" || email == "" {
		return MarkResult{}, ErrMissingFields
	}

	person, err := s.people.FindPerson(ctx, email)
	if err != nil {
		return MarkResult{}, fmt.Errorf("%w: lookup registration: %v", ErrStoreUnavailable, err)
	}
	if person == nil {
		return MarkResult{}, ErrUnknownPerson
	}

	now := s.now()
	start, end := DayWindow(now)

	today, err := s.store.RecordsForDay(ctx, email, start, end)
	if err != nil {
		return MarkResult{}, fmt.Errorf("%w: fetch today's records: %v", ErrStoreUnavailable, err)
	}

	outcome := Classify(now, SnapshotOf(today))
	if outcome.Duplicate() {
		duplicatesTotal.Inc()
		return MarkResult{
			Duplicate: true,
			Message:   fmt.Sprintf("Already marked as %s today", outcome.Status),
			Record:    *outcome.Existing,
		}, nil
	}

	rec, err := s.store.InsertRecord(ctx, Record{
		Email:       email,
		FirstName:   firstName,
		LastName:    lastName,
		CalendarDay: start,
		Status:      outcome.Status,
		Progress:    outcome.Progress,
		EventTime:   now,
	})
	if err != nil {
		return MarkResult{}, fmt.Errorf("%w: insert record: %v", ErrStoreUnavailable, err)
	}
	checkinsTotal.WithLabelValues(string(rec.Status), string(rec.Progress)).Inc()

	s.scheduleSweep(SweepJob{Email: email, Start: start, End: end})
	s.notify(rec)

	return MarkResult{Message: "Attendance marked successfully", Record: rec}, nil
}

// scheduleSweep hands the person/day window to the sweep scheduler. The
// check-in succeeds regardless of scheduling failures.
func (s *Service) scheduleSweep(job SweepJob) {
	if s.sweeps == nil {
		return
	}
	if err := s.sweeps.Schedule(context.Background(), job); err != nil {
		s.log.Warn("sweep scheduling failed", zap.String("email", job.Email), zap.Error(err))
	}
}

// notify sends the attendance mail in the background. Failures are logged
// and swallowed.
func (s *Service) notify(rec Record) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.notifier.Notify(ctx, rec); err != nil {
			notifyFailuresTotal.Inc()
			s.log.Warn("attendance notification failed", zap.String("email", rec.Email), zap.Error(err))
		}
	}()
}

// DayStatus is today's per-status view for one person plus the one-line
// summary shown on the kiosk.
type DayStatus struct {
	Date    string  `json:"date"`
	Present *Record `json:"present"`
	Leave   *Record `json:"leave"`
	Warning *Record `json:"warning"`
	Summary string  `json:"summary"`
}

// StatusForToday returns the person's attendance status for the current day.
func (s *Service) StatusForToday(ctx context.Context, email string) (DayStatus, error) {
	now := s.now()
	start, end := DayWindow(now)

	today, err := s.store.RecordsForDay(ctx, email, start, end)
	if err != nil {
		return DayStatus{}, fmt.Errorf("%w: fetch today's records: %v", ErrStoreUnavailable, err)
	}

	snap := SnapshotOf(today)
	return DayStatus{
		Date:    start.Format("2006-01-02"),
		Present: snap.Present,
		Leave:   snap.Leave,
		Warning: snap.Warning,
		Summary: summaryLine(snap),
	}, nil
}

// summaryLine composes the kiosk summary: arrival and departure when both
// exist, otherwise whichever single status is on file.
func summaryLine(snap Snapshot) string {
	switch {
	case snap.Present != nil && snap.Leave != nil:
		return fmt.Sprintf("Present (%s) → Leave (%s)", snap.Present.Progress, snap.Leave.Progress)
	case snap.Present != nil:
		return fmt.Sprintf("Present (%s)", snap.Present.Progress)
	case snap.Leave != nil:
		return fmt.Sprintf("Leave (%s)", snap.Leave.Progress)
	case snap.Warning != nil:
		return fmt.Sprintf("Warning (%s)", snap.Warning.Progress)
	}
	return "Not marked"
}
