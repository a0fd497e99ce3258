package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/valkey-io/valkey-go"
)

const (
	ExecutionStream = "docketpulse:executions"
	ExecutionGroup  = "docketpulse-workers"
)

// Execution is the input a workflow run carries: the identity of the
// document to process.
type Execution struct {
	DocumentID string `json:"documentId"`
}

// Engine starts workflow executions. The orchestration system behind it is
// an external collaborator; only submission is in scope, and the returned
// reference is opaque to callers.
type Engine interface {
	StartExecution(ctx context.Context, exec Execution) (string, error)
}

// StreamEngine publishes executions to a Valkey stream that workers consume.
// The stream entry ID doubles as the execution reference.
type StreamEngine struct {
	client valkey.Client
}

func NewStreamEngine(client valkey.Client) *StreamEngine {
	return &StreamEngine{client: client}
}

func (e *StreamEngine) StartExecution(ctx context.Context, exec Execution) (string, error) {
	data, err := json.Marshal(exec)
	if err != nil {
		return "", fmt.Errorf("marshal execution: %w", err)
	}

	resp := e.client.Do(ctx, e.client.B().Xadd().
		Key(ExecutionStream).Id("*").
		FieldValue().FieldValue("data", string(data)).
		Build())
	if err := resp.Error(); err != nil {
		return "", fmt.Errorf("xadd execution: %w", err)
	}

	id, err := resp.ToString()
	if err != nil {
		return "", fmt.Errorf("parse xadd response: %w", err)
	}
	return id, nil
}
