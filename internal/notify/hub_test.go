package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/docketpulse/docketpulse/internal/pipeline"
)

type fakeRegistry struct {
	ids     []string
	listErr error
	removed []string
}

func (r *fakeRegistry) List(ctx context.Context) ([]string, error) {
	return r.ids, r.listErr
}

func (r *fakeRegistry) Remove(ctx context.Context, connectionID string) error {
	r.removed = append(r.removed, connectionID)
	return nil
}

type fakePusher struct {
	pushed []string
	errors map[string]error
}

func (p *fakePusher) Push(ctx context.Context, connectionID string, payload []byte) error {
	p.pushed = append(p.pushed, connectionID)
	return p.errors[connectionID]
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvent() pipeline.ProgressEvent {
	return pipeline.EventFor("DOC-1", pipeline.Running(pipeline.StageClustering, time.Now()))
}

func TestBroadcast_DeliversToAll(t *testing.T) {
	registry := &fakeRegistry{ids: []string{"conn-a", "conn-b", "conn-c"}}
	pusher := &fakePusher{}
	hub := NewHub(registry, pusher, time.Second, discard())

	hub.Broadcast(context.Background(), testEvent())

	if len(pusher.pushed) != 3 {
		t.Errorf("pushed to %d subscribers, want 3", len(pusher.pushed))
	}
	if len(registry.removed) != 0 {
		t.Errorf("removed %v, want none", registry.removed)
	}
}

func TestBroadcast_OneFailureDoesNotStopOthers(t *testing.T) {
	registry := &fakeRegistry{ids: []string{"conn-a", "conn-b", "conn-c"}}
	pusher := &fakePusher{errors: map[string]error{
		"conn-b": errors.New("connection reset"),
	}}
	hub := NewHub(registry, pusher, time.Second, discard())

	hub.Broadcast(context.Background(), testEvent())

	if len(pusher.pushed) != 3 {
		t.Errorf("pushed to %d subscribers, want 3", len(pusher.pushed))
	}
	// Transient errors do not prune the registration.
	if len(registry.removed) != 0 {
		t.Errorf("removed %v, want none", registry.removed)
	}
}

func TestBroadcast_PrunesGoneSubscribers(t *testing.T) {
	registry := &fakeRegistry{ids: []string{"conn-a", "conn-b"}}
	pusher := &fakePusher{errors: map[string]error{
		"conn-a": fmt.Errorf("status 410: %w", ErrGone),
	}}
	hub := NewHub(registry, pusher, time.Second, discard())

	hub.Broadcast(context.Background(), testEvent())

	if len(registry.removed) != 1 || registry.removed[0] != "conn-a" {
		t.Errorf("removed %v, want [conn-a]", registry.removed)
	}
}

func TestBroadcast_RegistryErrorSwallowed(t *testing.T) {
	registry := &fakeRegistry{listErr: errors.New("db down")}
	pusher := &fakePusher{}
	hub := NewHub(registry, pusher, time.Second, discard())

	// Must not panic or push anything.
	hub.Broadcast(context.Background(), testEvent())

	if len(pusher.pushed) != 0 {
		t.Errorf("pushed %v despite registry error", pusher.pushed)
	}
}

func TestBroadcast_PayloadIsProgressEvent(t *testing.T) {
	registry := &fakeRegistry{ids: []string{"conn-a"}}
	var captured []byte
	pusher := &capturePusher{payload: &captured}
	hub := NewHub(registry, pusher, time.Second, discard())

	ev := testEvent()
	hub.Broadcast(context.Background(), ev)

	var got pipeline.ProgressEvent
	if err := json.Unmarshal(captured, &got); err != nil {
		t.Fatalf("payload is not a progress event: %v", err)
	}
	if got.Type != pipeline.EventTypeProgress || got.DocumentID != "DOC-1" || got.Progress != 80 {
		t.Errorf("payload = %+v", got)
	}
}

type capturePusher struct {
	payload *[]byte
}

func (p *capturePusher) Push(ctx context.Context, connectionID string, payload []byte) error {
	*p.payload = payload
	return nil
}
