package status

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/docketpulse/docketpulse/internal/analysis"
	"github.com/docketpulse/docketpulse/internal/artifact"
	"github.com/docketpulse/docketpulse/internal/pipeline"
	"github.com/docketpulse/docketpulse/internal/store/postgres"
)

// StateReader reads the durable pipeline record for a document.
type StateReader interface {
	Get(ctx context.Context, documentID string) (postgres.StateRecord, error)
}

// ArtifactReader locates and reads derived artifacts.
type ArtifactReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Latest(ctx context.Context, prefix string) (string, error)
}

// Document is the status-query response body.
type Document struct {
	DocumentID string                    `json:"documentId"`
	Status     pipeline.State            `json:"status"`
	Analysis   *analysis.ClusterAnalysis `json:"analysis,omitempty"`
}

// Aggregator answers "what is the current status of document D", merging the
// persisted state with the derived analysis once the pipeline completes.
type Aggregator struct {
	states    StateReader
	artifacts ArtifactReader
	logger    *slog.Logger
}

func NewAggregator(states StateReader, artifacts ArtifactReader, logger *slog.Logger) *Aggregator {
	return &Aggregator{states: states, artifacts: artifacts, logger: logger}
}

// Status returns the current document status. The error is the store's
// (pgx.ErrNoRows for unknown documents); the analysis attachment is
// best-effort and its absence never degrades the response.
func (a *Aggregator) Status(ctx context.Context, documentID string) (*Document, error) {
	rec, err := a.states.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		DocumentID: documentID,
		Status:     rec.State,
	}
	if rec.State.Complete() && a.artifacts != nil {
		doc.Analysis = a.latestAnalysis(ctx, documentID)
	}
	return doc, nil
}

func (a *Aggregator) latestAnalysis(ctx context.Context, documentID string) *analysis.ClusterAnalysis {
	key, err := a.artifacts.Latest(ctx, artifact.AnalysisSearchPrefix(documentID))
	if err != nil {
		a.logger.Warn("locate analysis artifact failed",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()))
		return nil
	}
	if key == "" {
		return nil
	}

	data, err := a.artifacts.Get(ctx, key)
	if err != nil {
		a.logger.Warn("read analysis artifact failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return nil
	}

	var result analysis.ClusterAnalysis
	if err := json.Unmarshal(data, &result); err != nil {
		a.logger.Warn("decode analysis artifact failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return nil
	}
	return &result
}
