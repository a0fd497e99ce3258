package pipeline

import "time"

// Status is the lifecycle status of a document within its current stage.
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

// Stage is one ordered phase of the pipeline.
type Stage string

const (
	StageCommentProcessing Stage = "comment_processing"
	StageClustering        Stage = "clustering"
	StageAnalysis          Stage = "analysis"
)

// Order returns the stage's position in the pipeline. Unknown stages sort
// before everything so they can never satisfy a forward transition.
func (s Stage) Order() int {
	switch s {
	case StageCommentProcessing:
		return 1
	case StageClustering:
		return 2
	case StageAnalysis:
		return 3
	}
	return 0
}

// checkpoints holds the fixed progress value for each (stage, status) pair.
// The status aggregator's completion test depends on analysis/SUCCEEDED
// being exactly 100, so these values are load-bearing.
var checkpoints = map[Stage]map[Status]int{
	StageCommentProcessing: {StatusRunning: 50, StatusSucceeded: 75},
	StageClustering:        {StatusRunning: 80, StatusSucceeded: 85},
	StageAnalysis:          {StatusRunning: 90, StatusSucceeded: 100},
}

// Checkpoint returns the progress percentage for a stage and status.
// QUEUED is always 0; FAILED reports the stage's RUNNING checkpoint, the
// last progress the document legitimately reached.
func Checkpoint(stage Stage, status Status) int {
	switch status {
	case StatusQueued:
		return 0
	case StatusFailed:
		return checkpoints[stage][StatusRunning]
	}
	return checkpoints[stage][status]
}

// State is the full per-document pipeline record. Writes replace the record
// wholesale; fields are never merged across stages.
type State struct {
	Status      Status    `json:"status"`
	Stage       Stage     `json:"stage"`
	Progress    int       `json:"progress"`
	Error       string    `json:"error,omitempty"`
	StartTime   time.Time `json:"startTime"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Terminal reports whether no further transition is allowed out of s.
func (s State) Terminal() bool {
	return s.Status == StatusFailed ||
		(s.Status == StatusSucceeded && s.Stage == StageAnalysis)
}

// Complete reports whether the pipeline finished successfully. The three
// conditions are checked together because partial matches can occur while a
// later stage is still being triggered.
func (s State) Complete() bool {
	return s.Stage == StageAnalysis && s.Status == StatusSucceeded && s.Progress >= 100
}

// CanTransition reports whether moving from one state to another is legal:
// never out of a terminal state, never to an earlier stage, and never with
// regressing progress.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to.Stage.Order() < from.Stage.Order() {
		return false
	}
	return to.Progress >= from.Progress
}

// Queued is the initial state written at submission time.
func Queued(now time.Time) State {
	return State{
		Status:      StatusQueued,
		Stage:       StageCommentProcessing,
		Progress:    0,
		StartTime:   now,
		LastUpdated: now,
	}
}

// Running is the state written when a stage handler starts work. StartTime
// is carried by the store's prior record, not by this value.
func Running(stage Stage, now time.Time) State {
	return State{
		Status:      StatusRunning,
		Stage:       stage,
		Progress:    Checkpoint(stage, StatusRunning),
		LastUpdated: now,
	}
}

// Succeeded is the state written at a stage's exit checkpoint.
func Succeeded(stage Stage, now time.Time) State {
	return State{
		Status:      StatusSucceeded,
		Stage:       stage,
		Progress:    Checkpoint(stage, StatusSucceeded),
		LastUpdated: now,
	}
}

// Failed is the terminal-failure state for the given stage.
func Failed(stage Stage, errMsg string, now time.Time) State {
	return State{
		Status:      StatusFailed,
		Stage:       stage,
		Progress:    Checkpoint(stage, StatusFailed),
		Error:       errMsg,
		LastUpdated: now,
	}
}
