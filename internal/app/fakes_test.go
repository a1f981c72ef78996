package app

import (
	"context"
	"database/sql"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"student_followup_bot/internal/domain/relay"
	"student_followup_bot/internal/domain/student"
)

var testNow = time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)

func testLogger() (*logrus.Entry, *test.Hook) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.DebugLevel)
	hook := test.NewLocal(l)
	return logrus.NewEntry(l), hook
}

func days(n float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: n, Valid: true}
}

func daysAgo(n int) sql.NullTime {
	return sql.NullTime{Time: testNow.AddDate(0, 0, -n), Valid: true}
}

// call is one mutating request received by fakeStudents.
type call struct {
	Op    string
	ID    string
	Value string
}

type fakeStudents struct {
	mu       sync.Mutex
	students []*student.Status
	listErr  error
	failOn   map[string]error // keyed by "op:id"
	calls    []call
}

func (f *fakeStudents) ListCandidates(_ context.Context) ([]*student.Status, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.students, nil
}

func (f *fakeStudents) SetLastContact(_ context.Context, id string, at time.Time) error {
	return f.record("last_contact", id, at.UTC().Format("2006-01-02"))
}

func (f *fakeStudents) AddTag(_ context.Context, id, tag string) (bool, error) {
	for _, st := range f.students {
		if st.ID == id && st.HasTag(tag) {
			return false, nil
		}
	}
	if err := f.record("add_tag", id, tag); err != nil {
		return false, err
	}
	return true, nil
}

func (f *fakeStudents) SetPlacementStatus(_ context.Context, id, status string) error {
	return f.record("placement_status", id, status)
}

func (f *fakeStudents) record(op, id, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[op+":"+id]; err != nil {
		return err
	}
	f.calls = append(f.calls, call{Op: op, ID: id, Value: value})
	return nil
}

func (f *fakeStudents) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type fakeRelay struct {
	mu      sync.Mutex
	err     error
	batches [][]relay.Message
	block   chan struct{} // when set, Deliver waits until it is closed
	entered chan struct{}
}

func (f *fakeRelay) Deliver(ctx context.Context, msgs []relay.Message) error {
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, msgs)
	return f.err
}

func (f *fakeRelay) Batches() [][]relay.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]relay.Message(nil), f.batches...)
}
