package notifiers

import (
	"fmt"
	"log"

	"focus-time-service/internal/focus-manager/events"
	"focus-time-service/internal/focus-manager/timer"
)

// ConsoleNotifier renders session events as human-readable log lines. It is
// the stand-in for a platform notification surface.
type ConsoleNotifier struct{}

func (n *ConsoleNotifier) Notify(event events.SessionEvent) error {
	line, err := RenderLine(event)
	if err != nil {
		return err
	}
	log.Printf("ConsoleNotifier: %s", line)
	return nil
}

// RenderLine formats one session event. Exported so tests and other
// text-surface notifiers can share the rendering.
func RenderLine(event events.SessionEvent) (string, error) {
	switch event.Kind {
	case events.KindSessionActivated:
		if event.Activation == nil {
			return "", fmt.Errorf("%s event for task %s missing activation payload", event.Kind, event.TaskUUID)
		}
		return fmt.Sprintf("session started: %q (%s), %s on the clock",
			event.Activation.TaskTitle, event.Activation.Mode,
			timer.FormatClock(event.Activation.RemainingSeconds)), nil
	case events.KindSessionProgress:
		if event.Progress == nil {
			return "", fmt.Errorf("%s event for task %s missing progress payload", event.Kind, event.TaskUUID)
		}
		return fmt.Sprintf("[%s] %s remaining (%.0f%%)",
			event.Progress.Phase,
			timer.FormatClock(event.Progress.RemainingSeconds),
			event.Progress.Progress*100), nil
	case events.KindSessionDeactivated:
		return "session ended", nil
	case events.KindTaskReminder:
		if event.Reminder == nil {
			return "", fmt.Errorf("%s event for task %s missing reminder payload", event.Kind, event.TaskUUID)
		}
		return fmt.Sprintf("reminder: %q starts now (%s planned)",
			event.Reminder.TaskTitle,
			timer.FormatMinutes(event.Reminder.DurationMinutes)), nil
	default:
		return "", fmt.Errorf("unknown event kind: %s", event.Kind)
	}
}
