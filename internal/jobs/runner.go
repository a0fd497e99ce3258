package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

// SubmissionStream is the queue an external batch-processing engine drains.
const SubmissionStream = "docketpulse:jobs"

// maxJobNameLength is the external engine's hard cap on job names.
const maxJobNameLength = 63

const (
	jobNamePrefix    = "clustering-"
	disambiguatorLen = 8
)

// Spec describes one bounded batch job. The engine reads the input object,
// runs to completion within MaxRuntimeSeconds, and writes its results under
// OutputURI; completion is observed via a later artifact-arrival event, never
// awaited here.
type Spec struct {
	Name              string            `json:"name"`
	InputURI          string            `json:"inputUri"`
	OutputURI         string            `json:"outputUri"`
	InstanceType      string            `json:"instanceType"`
	InstanceCount     int               `json:"instanceCount"`
	VolumeSizeGB      int               `json:"volumeSizeGb"`
	MaxRuntimeSeconds int               `json:"maxRuntimeSeconds"`
	Tags              map[string]string `json:"tags,omitempty"`
}

// Runner submits batch jobs to the external processing engine.
type Runner interface {
	Submit(ctx context.Context, spec Spec) error
}

// JobName builds an engine-legal job name for a document. The name keeps the
// full prefix and the full random disambiguator; only the document-identity
// portion is truncated when the combined name would exceed the cap.
func JobName(documentID string) string {
	available := maxJobNameLength - len(jobNamePrefix) - disambiguatorLen - 1
	if len(documentID) > available {
		documentID = documentID[:available]
	}
	unique := uuid.NewString()[:disambiguatorLen]
	return jobNamePrefix + documentID + "-" + unique
}

// StreamRunner hands job specs to the engine through a Valkey stream.
type StreamRunner struct {
	client valkey.Client
}

func NewStreamRunner(client valkey.Client) *StreamRunner {
	return &StreamRunner{client: client}
}

func (r *StreamRunner) Submit(ctx context.Context, spec Spec) error {
	data, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("marshal job spec: %w", err)
	}

	resp := r.client.Do(ctx, r.client.B().Xadd().
		Key(SubmissionStream).Id("*").
		FieldValue().FieldValue("data", string(data)).
		Build())
	if err := resp.Error(); err != nil {
		return fmt.Errorf("xadd job: %w", err)
	}
	return nil
}
