// Package session bridges the timer engine's presentation collaborator onto
// Kafka: every activation, progress update and teardown becomes a JSON
// envelope on the session-updates topic, where the presenter picks it up.
package session

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/segmentio/kafka-go"

	"focus-time-service/internal/focus-manager/db"
	"focus-time-service/internal/focus-manager/events"
	"focus-time-service/internal/focus-manager/timer"
)

const writeTimeout = 10 * time.Second

// KafkaNotifier implements timer.SessionNotifier over a kafka.Writer. The
// engine calls it fire-and-forget, so publish failures are logged and
// dropped; the engine state is authoritative regardless.
type KafkaNotifier struct {
	Producer *kafka.Writer

	clock clockwork.Clock

	mu         sync.Mutex
	activeUUID string
}

func NewKafkaNotifier(producer *kafka.Writer) *KafkaNotifier {
	return &KafkaNotifier{Producer: producer, clock: clockwork.NewRealClock()}
}

func (n *KafkaNotifier) ActivateSession(mode string, remaining time.Duration, task *db.TaskRecord) {
	n.mu.Lock()
	n.activeUUID = task.UUID
	n.mu.Unlock()

	n.publish(events.SessionEvent{
		Kind:       events.KindSessionActivated,
		TaskUUID:   task.UUID,
		OccurredAt: n.clock.Now(),
		Activation: &events.ActivationPayload{
			TaskTitle:        task.Title,
			Mode:             mode,
			RemainingSeconds: int(remaining / time.Second),
			DurationMinutes:  task.DurationMinutes,
		},
	})
}

func (n *KafkaNotifier) DeactivateSession() {
	n.mu.Lock()
	uuid := n.activeUUID
	n.activeUUID = ""
	n.mu.Unlock()

	n.publish(events.SessionEvent{
		Kind:       events.KindSessionDeactivated,
		TaskUUID:   uuid,
		OccurredAt: n.clock.Now(),
	})
}

func (n *KafkaNotifier) UpdateProgress(remaining time.Duration, progress float64, phase timer.SessionPhase, active bool) {
	n.mu.Lock()
	uuid := n.activeUUID
	n.mu.Unlock()

	n.publish(events.SessionEvent{
		Kind:       events.KindSessionProgress,
		TaskUUID:   uuid,
		OccurredAt: n.clock.Now(),
		Progress: &events.ProgressPayload{
			Phase:            string(phase),
			RemainingSeconds: int(remaining / time.Second),
			Progress:         progress,
			IsActive:         active,
		},
	})
}

// PublishReminder puts a task_reminder event on the same topic. Used by the
// reminder service rather than the engine.
func (n *KafkaNotifier) PublishReminder(task *db.TaskRecord) {
	n.publish(events.SessionEvent{
		Kind:       events.KindTaskReminder,
		TaskUUID:   task.UUID,
		OccurredAt: n.clock.Now(),
		Reminder: &events.ReminderPayload{
			TaskTitle:       task.Title,
			StartTime:       task.StartTime,
			DurationMinutes: task.DurationMinutes,
		},
	})
}

func (n *KafkaNotifier) publish(event events.SessionEvent) {
	payloadBytes, err := json.Marshal(event)
	if err != nil {
		log.Printf("session: error marshalling %s event for task %s: %v", event.Kind, event.TaskUUID, err)
		return
	}
	msg := kafka.Message{Key: []byte(event.TaskUUID), Value: payloadBytes}

	writeCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := n.Producer.WriteMessages(writeCtx, msg); err != nil {
		log.Printf("session: error publishing %s event for task %s: %v", event.Kind, event.TaskUUID, err)
	}
}
