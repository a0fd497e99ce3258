package stages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/docketpulse/docketpulse/internal/analysis"
	"github.com/docketpulse/docketpulse/internal/artifact"
	"github.com/docketpulse/docketpulse/internal/events"
	"github.com/docketpulse/docketpulse/internal/pipeline"
)

// ArtifactStore is the slice of blob storage stage handlers need.
type ArtifactStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// TextGenerator produces a text completion for a prompt.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// AnalysisTrigger reacts to clustered CSVs landing under the
// after-clustering prefix: samples comments per cluster, asks the model for
// a strict-JSON summary, and persists the ClusterAnalysis artifact.
type AnalysisTrigger struct {
	reporter  *Reporter
	artifacts ArtifactStore
	model     TextGenerator
	logger    *slog.Logger
	now       func() time.Time
}

func NewAnalysisTrigger(reporter *Reporter, artifacts ArtifactStore, model TextGenerator, logger *slog.Logger) *AnalysisTrigger {
	return &AnalysisTrigger{reporter: reporter, artifacts: artifacts, model: model, logger: logger, now: time.Now}
}

func (t *AnalysisTrigger) HandleNotification(ctx context.Context, n events.Notification) error {
	if len(n.Records) == 0 {
		t.logger.Error("no records found in notification")
		return nil
	}

	var errs []error
	for _, rec := range n.Records {
		key := rec.S3.Object.Key
		if key == "" {
			t.logger.Error("notification record missing key")
			continue
		}

		documentID := artifact.DocumentID(key, artifact.ResultsMarker)
		if documentID == "" {
			t.logger.Error("could not extract document id", slog.String("key", key))
			continue
		}

		if err := t.dispatch(ctx, documentID, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *AnalysisTrigger) dispatch(ctx context.Context, documentID, key string) error {
	// The clustered CSV's existence is the clustering stage's completion
	// signal, so its exit checkpoint is written here.
	t.reporter.Advance(ctx, documentID, pipeline.Succeeded(pipeline.StageClustering, t.now()))

	if !t.reporter.Advance(ctx, documentID, pipeline.Running(pipeline.StageAnalysis, t.now())) {
		return nil
	}

	t.logger.Info("processing analysis",
		slog.String("document_id", documentID),
		slog.String("key", key))

	csvData, err := t.artifacts.Get(ctx, key)
	if err != nil {
		return t.fail(ctx, documentID, fmt.Errorf("read clustered csv: %w", err))
	}

	samples, err := analysis.SampleClusters(csvData)
	if err != nil {
		return t.fail(ctx, documentID, err)
	}

	text, err := t.model.Complete(ctx, analysis.BuildPrompt(samples))
	if err != nil {
		return t.fail(ctx, documentID, fmt.Errorf("generate analysis: %w", err))
	}

	result, err := analysis.ParseResponse(text, len(samples))
	if err != nil {
		return t.fail(ctx, documentID, err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return t.fail(ctx, documentID, fmt.Errorf("marshal analysis: %w", err))
	}

	outKey := artifact.AnalysisKey(documentID, t.now())
	if err := t.artifacts.Put(ctx, outKey, data, "application/json"); err != nil {
		return t.fail(ctx, documentID, fmt.Errorf("persist analysis: %w", err))
	}

	t.reporter.Advance(ctx, documentID, pipeline.Succeeded(pipeline.StageAnalysis, t.now()))

	t.logger.Info("analysis complete",
		slog.String("document_id", documentID),
		slog.String("location", outKey),
		slog.Int("clusters", len(samples)))
	return nil
}

func (t *AnalysisTrigger) fail(ctx context.Context, documentID string, err error) error {
	t.reporter.Fail(ctx, documentID, pipeline.StageAnalysis, err)
	return fmt.Errorf("analysis for %s: %w", documentID, err)
}
