package stages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/docketpulse/docketpulse/internal/artifact"
	"github.com/docketpulse/docketpulse/internal/events"
	"github.com/docketpulse/docketpulse/internal/jobs"
	"github.com/docketpulse/docketpulse/internal/pipeline"
)

// Fixed sizing for the external clustering job.
const (
	clusteringInstanceType  = "ml.c5.xlarge"
	clusteringInstanceCount = 1
	clusteringVolumeSizeGB  = 30
	clusteringMaxRuntimeSec = 3600
)

// ClusteringTrigger reacts to comment CSVs landing under the
// before-clustering prefix: it advances the document to RUNNING(clustering)
// and submits the external clustering job. No result is awaited; the job's
// own output landing under after-clustering drives the next stage.
type ClusteringTrigger struct {
	reporter *Reporter
	runner   jobs.Runner
	logger   *slog.Logger
	now      func() time.Time
}

func NewClusteringTrigger(reporter *Reporter, runner jobs.Runner, logger *slog.Logger) *ClusteringTrigger {
	return &ClusteringTrigger{reporter: reporter, runner: runner, logger: logger, now: time.Now}
}

// HandleNotification processes each record independently: one failing
// record never aborts the rest of the batch.
func (t *ClusteringTrigger) HandleNotification(ctx context.Context, n events.Notification) error {
	if len(n.Records) == 0 {
		t.logger.Error("no records found in notification")
		return nil
	}

	var errs []error
	for _, rec := range n.Records {
		bucket, key := rec.S3.Bucket.Name, rec.S3.Object.Key
		if bucket == "" || key == "" {
			t.logger.Error("notification record missing bucket or key")
			continue
		}

		documentID := artifact.DocumentID(key, artifact.CommentsMarker)
		if documentID == "" {
			t.logger.Error("could not extract document id", slog.String("key", key))
			continue
		}

		if err := t.dispatch(ctx, documentID, bucket, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *ClusteringTrigger) dispatch(ctx context.Context, documentID, bucket, key string) error {
	if !t.reporter.Advance(ctx, documentID, pipeline.Running(pipeline.StageClustering, t.now())) {
		return nil
	}

	t.logger.Info("dispatching clustering job",
		slog.String("document_id", documentID),
		slog.String("input", "s3://"+bucket+"/"+key))

	spec := jobs.Spec{
		Name:              jobs.JobName(documentID),
		InputURI:          fmt.Sprintf("s3://%s/%s", bucket, key),
		OutputURI:         fmt.Sprintf("s3://%s/%s", bucket, artifact.AfterClusteringPrefix),
		InstanceType:      clusteringInstanceType,
		InstanceCount:     clusteringInstanceCount,
		VolumeSizeGB:      clusteringVolumeSizeGB,
		MaxRuntimeSeconds: clusteringMaxRuntimeSec,
		Tags:              map[string]string{"DocumentId": documentID},
	}

	if err := t.runner.Submit(ctx, spec); err != nil {
		t.reporter.Fail(ctx, documentID, pipeline.StageClustering, err)
		return fmt.Errorf("submit clustering job for %s: %w", documentID, err)
	}

	t.logger.Info("clustering job submitted",
		slog.String("document_id", documentID),
		slog.String("job_name", spec.Name))
	return nil
}
