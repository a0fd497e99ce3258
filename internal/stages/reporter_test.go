package stages

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/docketpulse/docketpulse/internal/pipeline"
	"github.com/docketpulse/docketpulse/internal/store/postgres"
)

// --- shared fakes ---

type fakeStateStore struct {
	records     map[string]postgres.StateRecord
	getErr      error
	putErr      error
	checkPutErr error
	// loseRace makes every CheckAndPut report a lost version check.
	loseRace bool
	puts     []pipeline.State
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{records: map[string]postgres.StateRecord{}}
}

func (f *fakeStateStore) seed(documentID string, st pipeline.State) {
	f.records[documentID] = postgres.StateRecord{DocumentID: documentID, State: st, Version: 1}
}

func (f *fakeStateStore) Get(ctx context.Context, documentID string) (postgres.StateRecord, error) {
	if f.getErr != nil {
		return postgres.StateRecord{}, f.getErr
	}
	rec, ok := f.records[documentID]
	if !ok {
		return postgres.StateRecord{}, pgx.ErrNoRows
	}
	return rec, nil
}

func (f *fakeStateStore) Put(ctx context.Context, documentID string, st pipeline.State) error {
	if f.putErr != nil {
		return f.putErr
	}
	rec := f.records[documentID]
	rec.DocumentID = documentID
	rec.State = st
	rec.Version++
	f.records[documentID] = rec
	f.puts = append(f.puts, st)
	return nil
}

func (f *fakeStateStore) CheckAndPut(ctx context.Context, documentID string, st pipeline.State, expectedVersion int64) (bool, error) {
	if f.checkPutErr != nil {
		return false, f.checkPutErr
	}
	rec, ok := f.records[documentID]
	if f.loseRace || !ok || rec.Version != expectedVersion {
		return false, nil
	}
	rec.State = st
	rec.Version++
	f.records[documentID] = rec
	f.puts = append(f.puts, st)
	return true, nil
}

type fakeBroadcaster struct {
	events []pipeline.ProgressEvent
}

func (b *fakeBroadcaster) Broadcast(ctx context.Context, ev pipeline.ProgressEvent) {
	b.events = append(b.events, ev)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testReporter(states *fakeStateStore, hub *fakeBroadcaster) *Reporter {
	return NewReporter(states, hub, testLogger())
}

// --- Advance ---

func TestAdvance_LegalTransition(t *testing.T) {
	now := time.Now()
	states := newFakeStateStore()
	states.seed("DOC-1", pipeline.Queued(now))
	hub := &fakeBroadcaster{}
	r := testReporter(states, hub)

	next := pipeline.Running(pipeline.StageCommentProcessing, now)
	if !r.Advance(context.Background(), "DOC-1", next) {
		t.Fatal("legal transition rejected")
	}

	if got := states.records["DOC-1"].State; got.Status != pipeline.StatusRunning || got.Progress != 50 {
		t.Errorf("stored state = %+v", got)
	}
	if len(hub.events) != 1 || hub.events[0].Progress != 50 {
		t.Errorf("broadcast events = %+v", hub.events)
	}
}

func TestAdvance_StaleTransitionRejected(t *testing.T) {
	now := time.Now()
	states := newFakeStateStore()
	states.seed("DOC-1", pipeline.Running(pipeline.StageAnalysis, now))
	hub := &fakeBroadcaster{}
	r := testReporter(states, hub)

	// A late clustering event arrives after analysis already started.
	if r.Advance(context.Background(), "DOC-1", pipeline.Running(pipeline.StageClustering, now)) {
		t.Fatal("stage regression accepted")
	}
	if len(hub.events) != 0 {
		t.Errorf("stale transition broadcast %+v", hub.events)
	}
	if len(states.puts) != 0 {
		t.Errorf("stale transition wrote state %+v", states.puts)
	}
}

func TestAdvance_RedeliveredEventCollapsed(t *testing.T) {
	now := time.Now()
	states := newFakeStateStore()
	states.seed("DOC-1", pipeline.Running(pipeline.StageClustering, now))
	hub := &fakeBroadcaster{}
	r := testReporter(states, hub)

	// The same event redelivered after the first one already landed.
	if r.Advance(context.Background(), "DOC-1", pipeline.Running(pipeline.StageClustering, now)) {
		t.Fatal("identical stage/status should be treated as a duplicate")
	}
	if len(hub.events) != 0 {
		t.Errorf("duplicate broadcast %+v", hub.events)
	}
}

func TestAdvance_TerminalStateLocked(t *testing.T) {
	now := time.Now()
	states := newFakeStateStore()
	states.seed("DOC-1", pipeline.Failed(pipeline.StageClustering, "boom", now))
	r := testReporter(states, &fakeBroadcaster{})

	if r.Advance(context.Background(), "DOC-1", pipeline.Running(pipeline.StageAnalysis, now)) {
		t.Fatal("transition out of FAILED accepted")
	}
}

func TestAdvance_LostRaceIsDuplicate(t *testing.T) {
	now := time.Now()
	states := newFakeStateStore()
	states.seed("DOC-1", pipeline.Succeeded(pipeline.StageCommentProcessing, now))
	states.loseRace = true
	hub := &fakeBroadcaster{}
	r := testReporter(states, hub)

	if r.Advance(context.Background(), "DOC-1", pipeline.Running(pipeline.StageClustering, now)) {
		t.Fatal("lost version check should report false")
	}
	if len(hub.events) != 0 {
		t.Errorf("lost race still broadcast %+v", hub.events)
	}
}

func TestAdvance_StoreReadFailureIsBestEffort(t *testing.T) {
	now := time.Now()
	states := newFakeStateStore()
	states.getErr = errors.New("db down")
	hub := &fakeBroadcaster{}
	r := testReporter(states, hub)

	// The stage must keep going even when the guard cannot be read.
	if !r.Advance(context.Background(), "DOC-1", pipeline.Running(pipeline.StageClustering, now)) {
		t.Fatal("read failure should not block the stage")
	}
	if len(hub.events) != 1 {
		t.Errorf("broadcast events = %+v", hub.events)
	}
}

// --- Fail ---

func TestFail_WritesTerminalState(t *testing.T) {
	now := time.Now()
	states := newFakeStateStore()
	states.seed("DOC-1", pipeline.Running(pipeline.StageClustering, now))
	hub := &fakeBroadcaster{}
	r := testReporter(states, hub)

	r.Fail(context.Background(), "DOC-1", pipeline.StageClustering, errors.New("job submit failed"))

	got := states.records["DOC-1"].State
	if got.Status != pipeline.StatusFailed || got.Error != "job submit failed" {
		t.Errorf("stored state = %+v", got)
	}
	if len(hub.events) != 1 || hub.events[0].Status != pipeline.StatusFailed {
		t.Errorf("broadcast events = %+v", hub.events)
	}
}

func TestFail_DoesNotOverwriteTerminal(t *testing.T) {
	now := time.Now()
	states := newFakeStateStore()
	states.seed("DOC-1", pipeline.Succeeded(pipeline.StageAnalysis, now))
	hub := &fakeBroadcaster{}
	r := testReporter(states, hub)

	r.Fail(context.Background(), "DOC-1", pipeline.StageAnalysis, errors.New("late failure"))

	if got := states.records["DOC-1"].State; got.Status != pipeline.StatusSucceeded {
		t.Errorf("terminal success overwritten: %+v", got)
	}
	if len(hub.events) != 0 {
		t.Errorf("broadcast events = %+v", hub.events)
	}
}
