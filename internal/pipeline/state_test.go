package pipeline

import (
	"testing"
	"time"
)

func TestCheckpoint(t *testing.T) {
	tests := []struct {
		name   string
		stage  Stage
		status Status
		want   int
	}{
		{"queued is zero", StageCommentProcessing, StatusQueued, 0},
		{"comment processing running", StageCommentProcessing, StatusRunning, 50},
		{"comment processing succeeded", StageCommentProcessing, StatusSucceeded, 75},
		{"clustering running", StageClustering, StatusRunning, 80},
		{"clustering succeeded", StageClustering, StatusSucceeded, 85},
		{"analysis running", StageAnalysis, StatusRunning, 90},
		{"analysis succeeded", StageAnalysis, StatusSucceeded, 100},
		{"failed reports last running checkpoint", StageClustering, StatusFailed, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checkpoint(tt.stage, tt.status); got != tt.want {
				t.Errorf("Checkpoint(%s, %s) = %d, want %d", tt.stage, tt.status, got, tt.want)
			}
		})
	}
}

func TestCheckpointsAreMonotonic(t *testing.T) {
	now := time.Now()
	sequence := []State{
		Queued(now),
		Running(StageCommentProcessing, now),
		Succeeded(StageCommentProcessing, now),
		Running(StageClustering, now),
		Succeeded(StageClustering, now),
		Running(StageAnalysis, now),
		Succeeded(StageAnalysis, now),
	}
	for i := 1; i < len(sequence); i++ {
		if sequence[i].Progress < sequence[i-1].Progress {
			t.Errorf("progress regressed from %d to %d at step %d",
				sequence[i-1].Progress, sequence[i].Progress, i)
		}
		if !CanTransition(sequence[i-1], sequence[i]) {
			t.Errorf("legal step %d (%s/%s -> %s/%s) rejected", i,
				sequence[i-1].Stage, sequence[i-1].Status,
				sequence[i].Stage, sequence[i].Status)
		}
	}
}

func TestTerminal(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		st   State
		want bool
	}{
		{"queued", Queued(now), false},
		{"running mid-pipeline", Running(StageClustering, now), false},
		{"succeeded mid-pipeline", Succeeded(StageClustering, now), false},
		{"succeeded final stage", Succeeded(StageAnalysis, now), true},
		{"failed first stage", Failed(StageCommentProcessing, "boom", now), true},
		{"failed final stage", Failed(StageAnalysis, "boom", now), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.st.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComplete(t *testing.T) {
	now := time.Now()

	if !Succeeded(StageAnalysis, now).Complete() {
		t.Error("succeeded analysis at 100 should be complete")
	}
	if Succeeded(StageClustering, now).Complete() {
		t.Error("succeeded clustering is not complete")
	}
	if Running(StageAnalysis, now).Complete() {
		t.Error("running analysis is not complete")
	}
	if Failed(StageAnalysis, "boom", now).Complete() {
		t.Error("failed analysis is not complete")
	}

	// All three conditions must hold together.
	partial := State{Stage: StageAnalysis, Status: StatusSucceeded, Progress: 90}
	if partial.Complete() {
		t.Error("progress below 100 should not be complete")
	}
}

func TestCanTransition(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		from State
		to   State
		want bool
	}{
		{"queued to running", Queued(now), Running(StageCommentProcessing, now), true},
		{"running to succeeded", Running(StageClustering, now), Succeeded(StageClustering, now), true},
		{"stage skip forward allowed", Succeeded(StageCommentProcessing, now), Running(StageAnalysis, now), true},
		{"no exit from failed", Failed(StageClustering, "boom", now), Running(StageAnalysis, now), false},
		{"no exit from final success", Succeeded(StageAnalysis, now), Running(StageAnalysis, now), false},
		{"no stage regression", Running(StageAnalysis, now), Running(StageClustering, now), false},
		{"no progress regression", Succeeded(StageClustering, now), Running(StageClustering, now), false},
		{"duplicate running is allowed by the machine", Running(StageClustering, now), Running(StageClustering, now), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s/%s -> %s/%s) = %v, want %v",
					tt.from.Stage, tt.from.Status, tt.to.Stage, tt.to.Status, got, tt.want)
			}
		})
	}
}

func TestEventFor(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	st := Failed(StageClustering, "job submit failed", now)

	ev := EventFor("FDA-2024-D-1234-0001", st)

	if ev.Type != EventTypeProgress {
		t.Errorf("Type = %q, want %q", ev.Type, EventTypeProgress)
	}
	if ev.DocumentID != "FDA-2024-D-1234-0001" {
		t.Errorf("DocumentID = %q", ev.DocumentID)
	}
	if ev.Stage != StageClustering || ev.Status != StatusFailed {
		t.Errorf("stage/status = %s/%s", ev.Stage, ev.Status)
	}
	if ev.Progress != 80 {
		t.Errorf("Progress = %d, want 80", ev.Progress)
	}
	if ev.Error != "job submit failed" {
		t.Errorf("Error = %q", ev.Error)
	}
	if ev.Timestamp != "2025-03-14T09:26:53Z" {
		t.Errorf("Timestamp = %q", ev.Timestamp)
	}
}
