package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/docketpulse/docketpulse/pkg/apierr"
)

// SubscriberRegistry records which connections receive progress pushes.
type SubscriberRegistry interface {
	Register(ctx context.Context, connectionID string, connectedAt, expiresAt time.Time) error
	Remove(ctx context.Context, connectionID string) error
}

type SubscriptionHandler struct {
	logger *slog.Logger
	subs   SubscriberRegistry
	ttl    time.Duration
	now    func() time.Time
	newID  func() string
}

func NewSubscriptionHandler(logger *slog.Logger, subs SubscriberRegistry, ttl time.Duration) *SubscriptionHandler {
	return &SubscriptionHandler{
		logger: logger,
		subs:   subs,
		ttl:    ttl,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Subscribe registers a new connection for progress broadcasts and returns
// its identifier. The registration expires on its own if never removed.
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	connectionID := h.newID()
	now := h.now()
	expiresAt := now.Add(h.ttl)

	if err := h.subs.Register(r.Context(), connectionID, now, expiresAt); err != nil {
		h.logger.Error("register subscriber failed",
			slog.String("connection_id", connectionID),
			slog.String("error", err.Error()))
		writeAPIError(w, h.logger, apierr.SubscribeFailed(err))
		return
	}

	h.logger.Info("subscriber registered", slog.String("connection_id", connectionID))

	writeJSON(w, http.StatusCreated, map[string]any{
		"connectionId": connectionID,
		"expiresAt":    expiresAt.UTC().Format(time.RFC3339),
	})
}

// Unsubscribe drops a connection from the broadcast registry. Removing an
// unknown connection succeeds; the end state is the same either way.
func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	connectionID := chi.URLParam(r, "connectionID")
	if connectionID == "" {
		writeAPIError(w, h.logger, apierr.ConnectionIDRequired())
		return
	}

	if err := h.subs.Remove(r.Context(), connectionID); err != nil {
		h.logger.Error("remove subscriber failed",
			slog.String("connection_id", connectionID),
			slog.String("error", err.Error()))
		writeAPIError(w, h.logger, apierr.UnsubscribeFailed(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Disconnected",
	})
}
