package pipeline

import "time"

// EventTypeProgress is the only event type currently pushed to subscribers.
const EventTypeProgress = "PROGRESS_UPDATE"

// ProgressEvent is the wire format broadcast to live subscribers whenever a
// document's state changes.
type ProgressEvent struct {
	Type       string `json:"type"`
	DocumentID string `json:"documentId"`
	Stage      Stage  `json:"stage"`
	Status     Status `json:"status"`
	Progress   int    `json:"progress"`
	Error      string `json:"error,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// EventFor builds the broadcast payload for a document's new state.
func EventFor(documentID string, s State) ProgressEvent {
	return ProgressEvent{
		Type:       EventTypeProgress,
		DocumentID: documentID,
		Stage:      s.Stage,
		Status:     s.Status,
		Progress:   s.Progress,
		Error:      s.Error,
		Timestamp:  s.LastUpdated.UTC().Format(time.RFC3339),
	}
}
