package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docketpulse/docketpulse/internal/status"
	"github.com/docketpulse/docketpulse/pkg/apierr"
)

// StatusProvider resolves the aggregated view of a document.
type StatusProvider interface {
	Status(ctx context.Context, documentID string) (*status.Document, error)
}

type StatusHandler struct {
	logger     *slog.Logger
	aggregator StatusProvider
}

func NewStatusHandler(logger *slog.Logger, aggregator StatusProvider) *StatusHandler {
	return &StatusHandler{logger: logger, aggregator: aggregator}
}

// Get returns the current pipeline state for a document, with the analysis
// result attached when the document has completed.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	if documentID == "" {
		writeAPIError(w, h.logger, apierr.InvalidDocumentIDs())
		return
	}

	doc, err := h.aggregator.Status(r.Context(), documentID)
	if err != nil {
		if apierr.IsNotFound(err) {
			writeAPIError(w, h.logger, apierr.DocumentNotFound())
			return
		}
		h.logger.Error("status lookup failed",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()))
		writeAPIError(w, h.logger, apierr.StatusCheckFailed(err))
		return
	}

	writeJSON(w, http.StatusOK, doc)
}
