package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/docketpulse/docketpulse/internal/pipeline"
	"github.com/docketpulse/docketpulse/internal/workflow"
	"github.com/docketpulse/docketpulse/pkg/apierr"
)

// StateCreator writes the initial pipeline record for a document.
type StateCreator interface {
	Create(ctx context.Context, documentID string, st pipeline.State, expiresAt time.Time) error
}

// SubmissionResult is one per-document row in the intake response.
type SubmissionResult struct {
	DocumentID   string          `json:"documentId"`
	Status       pipeline.Status `json:"status"`
	ExecutionRef string          `json:"executionRef,omitempty"`
	Error        string          `json:"error,omitempty"`
}

type SubmissionHandler struct {
	logger   *slog.Logger
	states   StateCreator
	engine   workflow.Engine
	stateTTL time.Duration
	now      func() time.Time
}

func NewSubmissionHandler(logger *slog.Logger, states StateCreator, engine workflow.Engine, stateTTL time.Duration) *SubmissionHandler {
	return &SubmissionHandler{
		logger:   logger,
		states:   states,
		engine:   engine,
		stateTTL: stateTTL,
		now:      time.Now,
	}
}

// Submit accepts a list of document identities and starts a workflow
// execution per identity. Validation rejects the whole request before any
// state is written; after that, each document succeeds or fails on its own.
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentIDs []string `json:"documentIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, h.logger, apierr.InvalidRequestBody())
		return
	}
	if len(req.DocumentIDs) == 0 {
		writeAPIError(w, h.logger, apierr.InvalidDocumentIDs())
		return
	}
	for _, id := range req.DocumentIDs {
		if id == "" {
			writeAPIError(w, h.logger, apierr.InvalidDocumentIDs())
			return
		}
	}

	h.logger.Info("processing submission", slog.Int("documents", len(req.DocumentIDs)))

	results := make([]SubmissionResult, 0, len(req.DocumentIDs))
	queued := 0
	for _, id := range req.DocumentIDs {
		res := h.submitOne(r.Context(), id)
		if res.Status == pipeline.StatusQueued {
			queued++
		}
		results = append(results, res)
	}

	h.logger.Info("submission complete",
		slog.Int("queued", queued),
		slog.Int("failed", len(results)-queued))

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Processing started",
		"results": results,
	})
}

func (h *SubmissionHandler) submitOne(ctx context.Context, documentID string) SubmissionResult {
	now := h.now()
	if err := h.states.Create(ctx, documentID, pipeline.Queued(now), now.Add(h.stateTTL)); err != nil {
		h.logger.Error("initialize state failed",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()))
		return SubmissionResult{DocumentID: documentID, Status: pipeline.StatusFailed, Error: err.Error()}
	}

	ref, err := h.engine.StartExecution(ctx, workflow.Execution{DocumentID: documentID})
	if err != nil {
		h.logger.Error("start execution failed",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()))
		return SubmissionResult{DocumentID: documentID, Status: pipeline.StatusFailed, Error: err.Error()}
	}

	return SubmissionResult{DocumentID: documentID, Status: pipeline.StatusQueued, ExecutionRef: ref}
}
