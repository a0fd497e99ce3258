package stages

import (
	"context"
	"log/slog"
	"time"

	"github.com/docketpulse/docketpulse/internal/pipeline"
	"github.com/docketpulse/docketpulse/internal/store/postgres"
)

// StateStore is the slice of the durable store stage handlers need.
type StateStore interface {
	Get(ctx context.Context, documentID string) (postgres.StateRecord, error)
	Put(ctx context.Context, documentID string, st pipeline.State) error
	CheckAndPut(ctx context.Context, documentID string, st pipeline.State, expectedVersion int64) (bool, error)
}

// Broadcaster fans one progress event out to live subscribers.
type Broadcaster interface {
	Broadcast(ctx context.Context, ev pipeline.ProgressEvent)
}

// Reporter couples durable state writes with progress broadcast for stage
// handlers. State writes on the reporting path are best-effort: storage
// trouble is logged, never propagated, and the stage keeps going. What the
// reporter does escalate is staleness — Advance returns false when the
// requested transition loses against the stored state, which is how
// duplicate arrival events for the same document are collapsed to one
// winner.
type Reporter struct {
	states StateStore
	hub    Broadcaster
	logger *slog.Logger
	now    func() time.Time
}

func NewReporter(states StateStore, hub Broadcaster, logger *slog.Logger) *Reporter {
	return &Reporter{states: states, hub: hub, logger: logger, now: time.Now}
}

// Advance moves a document to next if the stored state allows it, then
// broadcasts. Returns false when the event driving this transition is a
// duplicate or out of order; callers skip the rest of their work in that
// case.
func (r *Reporter) Advance(ctx context.Context, documentID string, next pipeline.State) bool {
	rec, err := r.states.Get(ctx, documentID)
	if err != nil {
		// Unknown or unreadable record. The stage still runs; accepting a
		// reporting gap beats blocking the pipeline on the state store.
		r.logger.Warn("state read failed, proceeding without transition guard",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()))
		r.hub.Broadcast(ctx, pipeline.EventFor(documentID, next))
		return true
	}

	if rec.State.Stage == next.Stage && rec.State.Status == next.Status {
		r.logger.Info("ignoring duplicate event",
			slog.String("document_id", documentID),
			slog.String("stage", string(next.Stage)),
			slog.String("status", string(next.Status)))
		return false
	}

	if !pipeline.CanTransition(rec.State, next) {
		r.logger.Info("ignoring stale transition",
			slog.String("document_id", documentID),
			slog.String("from", string(rec.State.Status)),
			slog.String("from_stage", string(rec.State.Stage)),
			slog.String("to", string(next.Status)),
			slog.String("to_stage", string(next.Stage)))
		return false
	}

	ok, err := r.states.CheckAndPut(ctx, documentID, next, rec.Version)
	if err != nil {
		r.logger.Error("state write failed",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()))
		r.hub.Broadcast(ctx, pipeline.EventFor(documentID, next))
		return true
	}
	if !ok {
		r.logger.Info("lost transition race, treating event as duplicate",
			slog.String("document_id", documentID),
			slog.String("to_stage", string(next.Stage)))
		return false
	}

	r.hub.Broadcast(ctx, pipeline.EventFor(documentID, next))
	return true
}

// Fail records the terminal failure for a document and broadcasts it. Only
// an already-terminal record is left untouched. Never returns an error: the
// stage's own error is what surfaces to the runtime.
func (r *Reporter) Fail(ctx context.Context, documentID string, stage pipeline.Stage, cause error) {
	if rec, err := r.states.Get(ctx, documentID); err == nil && rec.State.Terminal() {
		r.logger.Info("document already terminal, not overwriting",
			slog.String("document_id", documentID))
		return
	}

	st := pipeline.Failed(stage, cause.Error(), r.now())
	if err := r.states.Put(ctx, documentID, st); err != nil {
		r.logger.Error("failed-state write failed",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()))
	}
	r.hub.Broadcast(ctx, pipeline.EventFor(documentID, st))
}
