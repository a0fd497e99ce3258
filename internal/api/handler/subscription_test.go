package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/docketpulse/docketpulse/pkg/apierr"
)

type fakeRegistry struct {
	registered  map[string]time.Time
	removed     []string
	registerErr error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{registered: map[string]time.Time{}}
}

func (f *fakeRegistry) Register(ctx context.Context, connectionID string, connectedAt, expiresAt time.Time) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered[connectionID] = expiresAt
	return nil
}

func (f *fakeRegistry) Remove(ctx context.Context, connectionID string) error {
	f.removed = append(f.removed, connectionID)
	return nil
}

func TestSubscriptionHandler_Subscribe(t *testing.T) {
	registry := newFakeRegistry()
	h := NewSubscriptionHandler(testLogger(), registry, 2*time.Hour)
	h.now = func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) }
	h.newID = func() string { return "conn-fixed" }

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions", nil)
	w := httptest.NewRecorder()

	h.Subscribe(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var resp struct {
		ConnectionID string `json:"connectionId"`
		ExpiresAt    string `json:"expiresAt"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ConnectionID != "conn-fixed" {
		t.Errorf("connectionId = %q", resp.ConnectionID)
	}
	if resp.ExpiresAt != "2025-03-14T11:00:00Z" {
		t.Errorf("expiresAt = %q", resp.ExpiresAt)
	}
	if _, ok := registry.registered["conn-fixed"]; !ok {
		t.Error("connection was not registered")
	}
}

func TestSubscriptionHandler_Subscribe_RegistryError(t *testing.T) {
	registry := newFakeRegistry()
	registry.registerErr = errors.New("db down")
	h := NewSubscriptionHandler(testLogger(), registry, time.Hour)

	w := httptest.NewRecorder()
	h.Subscribe(w, httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if code := decodeErrorCode(t, w); code != apierr.CodeSubscribeFailed {
		t.Errorf("expected code %s, got %s", apierr.CodeSubscribeFailed, code)
	}
}

func TestSubscriptionHandler_Unsubscribe(t *testing.T) {
	registry := newFakeRegistry()
	h := NewSubscriptionHandler(testLogger(), registry, time.Hour)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/subscriptions/conn-1", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("connectionID", "conn-1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	h.Unsubscribe(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(registry.removed) != 1 || registry.removed[0] != "conn-1" {
		t.Errorf("removed = %v", registry.removed)
	}
}

func TestSubscriptionHandler_Unsubscribe_MissingID(t *testing.T) {
	h := NewSubscriptionHandler(testLogger(), newFakeRegistry(), time.Hour)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/subscriptions/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, chi.NewRouteContext()))
	w := httptest.NewRecorder()

	h.Unsubscribe(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if code := decodeErrorCode(t, w); code != apierr.CodeConnectionIDRequired {
		t.Errorf("expected code %s, got %s", apierr.CodeConnectionIDRequired, code)
	}
}
