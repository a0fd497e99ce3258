package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/docketpulse/docketpulse/internal/pipeline"
	"github.com/docketpulse/docketpulse/internal/workflow"
	"github.com/docketpulse/docketpulse/pkg/apierr"
)

type fakeStates struct {
	created   []string
	createErr map[string]error
}

func (f *fakeStates) Create(ctx context.Context, documentID string, st pipeline.State, expiresAt time.Time) error {
	if err := f.createErr[documentID]; err != nil {
		return err
	}
	f.created = append(f.created, documentID)
	return nil
}

type fakeEngine struct {
	started  []string
	startErr map[string]error
}

func (f *fakeEngine) StartExecution(ctx context.Context, exec workflow.Execution) (string, error) {
	if err := f.startErr[exec.DocumentID]; err != nil {
		return "", err
	}
	f.started = append(f.started, exec.DocumentID)
	return "exec-" + exec.DocumentID, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) apierr.Code {
	t.Helper()
	var resp apierr.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp.Error.Code
}

func TestSubmissionHandler_Submit_InvalidBody(t *testing.T) {
	h := &SubmissionHandler{logger: testLogger()}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewReader([]byte("invalid")))
	w := httptest.NewRecorder()

	h.Submit(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if code := decodeErrorCode(t, w); code != apierr.CodeInvalidRequestBody {
		t.Errorf("expected code %s, got %s", apierr.CodeInvalidRequestBody, code)
	}
}

func TestSubmissionHandler_Submit_EmptyList(t *testing.T) {
	states := &fakeStates{}
	engine := &fakeEngine{}
	h := NewSubmissionHandler(testLogger(), states, engine, time.Hour)

	for _, body := range []string{`{}`, `{"documentIds": []}`, `{"documentIds": ["DOC-1", ""]}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewReader([]byte(body)))
		w := httptest.NewRecorder()

		h.Submit(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, w.Code)
		}
		if code := decodeErrorCode(t, w); code != apierr.CodeInvalidDocumentIDs {
			t.Errorf("body %s: expected code %s, got %s", body, apierr.CodeInvalidDocumentIDs, code)
		}
	}
	// Validation rejects the whole request before any state is written.
	if len(states.created) != 0 || len(engine.started) != 0 {
		t.Errorf("invalid requests wrote state: created=%v started=%v", states.created, engine.started)
	}
}

func TestSubmissionHandler_Submit_OneResultPerDocument(t *testing.T) {
	states := &fakeStates{}
	engine := &fakeEngine{}
	h := NewSubmissionHandler(testLogger(), states, engine, time.Hour)

	body, _ := json.Marshal(map[string]any{
		"documentIds": []string{"DOC-1", "DOC-2", "DOC-3"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Submit(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Message string             `json:"message"`
		Results []SubmissionResult `json:"results"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(resp.Results))
	}
	for i, want := range []string{"DOC-1", "DOC-2", "DOC-3"} {
		res := resp.Results[i]
		if res.DocumentID != want || res.Status != pipeline.StatusQueued {
			t.Errorf("results[%d] = %+v", i, res)
		}
		if res.ExecutionRef != "exec-"+want {
			t.Errorf("results[%d].ExecutionRef = %q", i, res.ExecutionRef)
		}
	}
	if len(engine.started) != 3 {
		t.Errorf("started executions = %v", engine.started)
	}
}

func TestSubmissionHandler_Submit_PartialFailure(t *testing.T) {
	states := &fakeStates{createErr: map[string]error{"DOC-2": errors.New("db down")}}
	engine := &fakeEngine{startErr: map[string]error{"DOC-3": errors.New("stream full")}}
	h := NewSubmissionHandler(testLogger(), states, engine, time.Hour)

	body, _ := json.Marshal(map[string]any{
		"documentIds": []string{"DOC-1", "DOC-2", "DOC-3"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Submit(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Results []SubmissionResult `json:"results"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(resp.Results))
	}
	if resp.Results[0].Status != pipeline.StatusQueued {
		t.Errorf("DOC-1 = %+v", resp.Results[0])
	}
	if resp.Results[1].Status != pipeline.StatusFailed || resp.Results[1].Error == "" {
		t.Errorf("DOC-2 = %+v", resp.Results[1])
	}
	if resp.Results[2].Status != pipeline.StatusFailed || resp.Results[2].ExecutionRef != "" {
		t.Errorf("DOC-3 = %+v", resp.Results[2])
	}
}
