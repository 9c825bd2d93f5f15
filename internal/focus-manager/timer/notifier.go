package timer

import (
	"time"

	"focus-time-service/internal/focus-manager/db"
)

// SessionPhase tags a progress update with where the session stands.
type SessionPhase string

const (
	PhaseFocus     SessionPhase = "focus"
	PhasePaused    SessionPhase = "paused"
	PhaseCompleted SessionPhase = "completed"
)

// SessionNotifier is the presentation collaborator: whatever renders the
// live session to the user (lock-screen surface, console presenter, ...).
// The engine calls it fire-and-forget; implementations must tolerate calls
// from short-lived goroutines and must not block engine transitions.
type SessionNotifier interface {
	ActivateSession(mode string, remaining time.Duration, task *db.TaskRecord)
	DeactivateSession()
	UpdateProgress(remaining time.Duration, progress float64, phase SessionPhase, active bool)
}

// TaskSaver is the slice of the repository the engine needs.
type TaskSaver interface {
	Save(task *db.TaskRecord) error
}

// Snapshot is one entry of the engine change feed.
type Snapshot struct {
	TaskUUID       string
	ElapsedSeconds int
	Status         db.TaskStatus
}
