package attendance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory RecordStore for engine and sweeper tests.
type memStore struct {
	mu        sync.Mutex
	records   map[string]Record
	nextID    int
	insertErr error
	queryErr  error
	deleteErr map[string]error
	deleted   []string
}

func newMemStore() *memStore {
	return &memStore{records: map[string]Record{}, deleteErr: map[string]error{}}
}

func (m *memStore) InsertRecord(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return Record{}, m.insertErr
	}
	if rec.ID == "" {
		m.nextID++
		rec.ID = fmt.Sprintf("rec-%d", m.nextID)
	}
	m.records[rec.ID] = rec
	return rec, nil
}

func (m *memStore) RecordsForDay(_ context.Context, email string, start, end time.Time) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	var out []Record
	for _, rec := range m.records {
		if rec.Email == email && !rec.CalendarDay.Before(start) && rec.CalendarDay.Before(end) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventTime.After(out[j].EventTime) })
	return out, nil
}

func (m *memStore) DeleteRecord(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErr[id]; err != nil {
		return err
	}
	delete(m.records, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memStore) count(email string, day time.Time, status Status) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rec := range m.records {
		if rec.Email == email && rec.CalendarDay.Equal(day) && rec.Status == status {
			n++
		}
	}
	return n
}

// fakePeople is an in-memory RegistrationLookup.
type fakePeople struct {
	byEmail map[string]Person
	err     error
}

func (f *fakePeople) FindPerson(_ context.Context, email string) (*Person, error) {
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.byEmail[email]; ok {
		return &p, nil
	}
	return nil, nil
}

// fakeNotifier records notifications on a channel so tests can wait for the
// fire-and-forget send.
type fakeNotifier struct {
	sent chan Record
	err  error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(chan Record, 8)}
}

func (f *fakeNotifier) Notify(_ context.Context, rec Record) error {
	f.sent <- rec
	return f.err
}

// syncSweeps runs the sweeper synchronously so tests observe converged state.
type syncSweeps struct {
	sweeper *Sweeper
	runs    int
}

func (s *syncSweeps) Schedule(ctx context.Context, job SweepJob) error {
	s.runs++
	s.sweeper.Run(ctx, job)
	return nil
}
