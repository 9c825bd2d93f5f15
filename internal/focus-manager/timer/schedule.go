package timer

import (
	"fmt"
	"time"

	"focus-time-service/internal/focus-manager/db"
)

// MinutesRemaining derives how much of a task's planned schedule window is
// still ahead of now. Inside [StartTime, StartTime+Duration] the remainder
// is truncated to whole minutes; any instant outside the window (before it
// opens or after it closes) yields 0.
//
// This is the schedule-anchored half of "smart elapsed time": spent time is
// inferred from how much of the fixed window has passed, not from a
// stopwatch, so a timer started late catches up to the real clock.
func MinutesRemaining(task *db.TaskRecord, now time.Time) int {
	windowEnd := task.EstimatedEndTime()
	if now.Before(task.StartTime) || now.After(windowEnd) {
		return 0
	}
	return int(windowEnd.Sub(now) / time.Minute)
}

// AlreadySpentMinutes is the schedule-derived spent time: planned duration
// minus whatever remains of the window.
func AlreadySpentMinutes(task *db.TaskRecord, now time.Time) int {
	return task.DurationMinutes - MinutesRemaining(task, now)
}

// CanResume reports whether a task is in a resumable position: part of its
// window consumed, part still ahead, and not already completed. Exactly zero
// remaining means the window is spent; remaining equal to the full duration
// means nothing has been consumed yet, which is a fresh start rather than a
// resume.
func CanResume(task *db.TaskRecord, now time.Time) bool {
	if task.IsCompleted || task.Status() == db.StatusCompleted {
		return false
	}
	remaining := MinutesRemaining(task, now)
	return remaining > 0 && remaining < task.DurationMinutes
}

// LateStart reports whether now is past the planned start, and by how many
// whole minutes.
func LateStart(task *db.TaskRecord, now time.Time) (bool, int) {
	if !now.After(task.StartTime) {
		return false, 0
	}
	return true, int(now.Sub(task.StartTime) / time.Minute)
}

// EffectiveRemaining is the wall-clock time left in the schedule window,
// zero once the window has passed or before it opens.
func EffectiveRemaining(task *db.TaskRecord, now time.Time) time.Duration {
	windowEnd := task.EstimatedEndTime()
	if now.Before(task.StartTime) || now.After(windowEnd) {
		return 0
	}
	return windowEnd.Sub(now)
}

// FormatClock renders a second count as mm:ss, e.g. 665 -> "11:05".
// Negative inputs clamp to "00:00".
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// FormatMinutes renders a planned duration, switching to hours+minutes at
// one hour: 45 -> "45m", 90 -> "1h 30m", 120 -> "2h".
func FormatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	if minutes%60 == 0 {
		return fmt.Sprintf("%dh", minutes/60)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
