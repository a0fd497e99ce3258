package stages

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docketpulse/docketpulse/internal/artifact"
	"github.com/docketpulse/docketpulse/internal/comments"
	"github.com/docketpulse/docketpulse/internal/pipeline"
	"github.com/docketpulse/docketpulse/internal/workflow"
)

// CommentSource fetches public comments for a document.
type CommentSource interface {
	DocumentObjectID(ctx context.Context, documentID string) (string, error)
	FetchComments(ctx context.Context, objectID string, maxPages int) ([]comments.Comment, error)
}

// CommentStage runs the first pipeline stage: pull a document's public
// comments and publish them as the clustering input CSV. Its output landing
// under before-clustering is what triggers the clustering dispatch.
type CommentStage struct {
	reporter  *Reporter
	source    CommentSource
	artifacts ArtifactStore
	maxPages  int
	logger    *slog.Logger
	now       func() time.Time
}

func NewCommentStage(reporter *Reporter, source CommentSource, artifacts ArtifactStore, maxPages int, logger *slog.Logger) *CommentStage {
	return &CommentStage{
		reporter:  reporter,
		source:    source,
		artifacts: artifacts,
		maxPages:  maxPages,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleExecution processes one workflow execution.
func (s *CommentStage) HandleExecution(ctx context.Context, exec workflow.Execution) error {
	documentID := exec.DocumentID
	if documentID == "" {
		s.logger.Error("execution missing document id")
		return nil
	}

	if !s.reporter.Advance(ctx, documentID, pipeline.Running(pipeline.StageCommentProcessing, s.now())) {
		return nil
	}

	s.logger.Info("fetching comments", slog.String("document_id", documentID))

	objectID, err := s.source.DocumentObjectID(ctx, documentID)
	if err != nil {
		return s.fail(ctx, documentID, fmt.Errorf("resolve document: %w", err))
	}

	items, err := s.source.FetchComments(ctx, objectID, s.maxPages)
	if err != nil {
		return s.fail(ctx, documentID, fmt.Errorf("fetch comments: %w", err))
	}
	if len(items) == 0 {
		return s.fail(ctx, documentID, fmt.Errorf("document %s has no comments", documentID))
	}

	data, err := comments.BuildCSV(items)
	if err != nil {
		return s.fail(ctx, documentID, err)
	}

	key := artifact.CommentsKey(documentID, s.now())
	if err := s.artifacts.Put(ctx, key, data, "text/csv"); err != nil {
		return s.fail(ctx, documentID, fmt.Errorf("persist comments csv: %w", err))
	}

	s.reporter.Advance(ctx, documentID, pipeline.Succeeded(pipeline.StageCommentProcessing, s.now()))

	s.logger.Info("comments published",
		slog.String("document_id", documentID),
		slog.String("location", key),
		slog.Int("comments", len(items)))
	return nil
}

func (s *CommentStage) fail(ctx context.Context, documentID string, err error) error {
	s.reporter.Fail(ctx, documentID, pipeline.StageCommentProcessing, err)
	return fmt.Errorf("comment processing for %s: %w", documentID, err)
}
