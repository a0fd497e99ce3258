package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/docketpulse/docketpulse/internal/pipeline"
)

// ErrGone signals that a subscriber connection no longer exists and should
// be pruned from the registry.
var ErrGone = errors.New("subscriber gone")

// Registry lists live subscriber connections. The hub owns pruning; the
// pipeline never touches the registry directly.
type Registry interface {
	List(ctx context.Context) ([]string, error)
	Remove(ctx context.Context, connectionID string) error
}

// Pusher delivers one payload to one subscriber connection. Implementations
// return ErrGone (possibly wrapped) for connections that are permanently
// unreachable.
type Pusher interface {
	Push(ctx context.Context, connectionID string, payload []byte) error
}

// Hub multiplexes a progress event to every registered subscriber.
// Delivery is fire-and-forget per subscriber: one slow or dead connection
// cannot block the others or the caller.
type Hub struct {
	registry    Registry
	pusher      Pusher
	pushTimeout time.Duration
	logger      *slog.Logger
}

func NewHub(registry Registry, pusher Pusher, pushTimeout time.Duration, logger *slog.Logger) *Hub {
	if pushTimeout <= 0 {
		pushTimeout = 5 * time.Second
	}
	return &Hub{registry: registry, pusher: pusher, pushTimeout: pushTimeout, logger: logger}
}

// Broadcast delivers ev to all live subscribers. Never returns an error:
// every failure is logged and swallowed so the pipeline's critical path is
// unaffected by broadcast health.
func (h *Hub) Broadcast(ctx context.Context, ev pipeline.ProgressEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal progress event", slog.String("error", err.Error()))
		return
	}

	ids, err := h.registry.List(ctx)
	if err != nil {
		h.logger.Error("list subscribers", slog.String("error", err.Error()))
		return
	}
	if len(ids) == 0 {
		h.logger.Debug("no active subscribers", slog.String("document_id", ev.DocumentID))
		return
	}

	h.logger.Info("broadcasting progress",
		slog.String("document_id", ev.DocumentID),
		slog.String("stage", string(ev.Stage)),
		slog.Int("subscribers", len(ids)))

	for _, id := range ids {
		h.deliver(ctx, id, payload)
	}
}

func (h *Hub) deliver(ctx context.Context, connectionID string, payload []byte) {
	pctx, cancel := context.WithTimeout(ctx, h.pushTimeout)
	defer cancel()

	err := h.pusher.Push(pctx, connectionID, payload)
	if err == nil {
		return
	}
	if errors.Is(err, ErrGone) {
		h.logger.Info("pruning stale subscriber", slog.String("connection_id", connectionID))
		if rmErr := h.registry.Remove(ctx, connectionID); rmErr != nil {
			h.logger.Warn("remove stale subscriber", slog.String("connection_id", connectionID), slog.String("error", rmErr.Error()))
		}
		return
	}
	h.logger.Warn("push to subscriber failed",
		slog.String("connection_id", connectionID),
		slog.String("error", err.Error()))
}
