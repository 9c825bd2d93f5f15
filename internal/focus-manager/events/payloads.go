package events

import "time"

// Event kinds carried on the session-updates topic.
const (
	KindSessionActivated   = "session_activated"
	KindSessionProgress    = "session_progress"
	KindSessionDeactivated = "session_deactivated"
	KindTaskReminder       = "task_reminder"
)

// SessionEvent is the envelope published by the focus manager and consumed
// by the presenter. Exactly one of the optional payloads is set, matching
// Kind.
type SessionEvent struct {
	Kind       string             `json:"kind"`
	TaskUUID   string             `json:"task_uuid,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
	Activation *ActivationPayload `json:"activation,omitempty"`
	Progress   *ProgressPayload   `json:"progress,omitempty"`
	Reminder   *ReminderPayload   `json:"reminder,omitempty"`
}

// ActivationPayload describes a session that just began.
type ActivationPayload struct {
	TaskTitle        string `json:"task_title"`
	Mode             string `json:"mode"`
	RemainingSeconds int    `json:"remaining_seconds"`
	DurationMinutes  int    `json:"duration_minutes"`
}

// ProgressPayload is one countdown update: emitted once per tick while
// running and once on every explicit transition.
type ProgressPayload struct {
	Phase            string  `json:"phase"`
	RemainingSeconds int     `json:"remaining_seconds"`
	Progress         float64 `json:"progress"`
	IsActive         bool    `json:"is_active"`
}

// ReminderPayload announces that a scheduled task's window is opening.
type ReminderPayload struct {
	TaskTitle       string    `json:"task_title"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
}
