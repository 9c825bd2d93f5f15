package notifiers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focus-time-service/internal/focus-manager/events"
)

func activationEvent() events.SessionEvent {
	return events.SessionEvent{
		Kind:       events.KindSessionActivated,
		TaskUUID:   "task-1",
		OccurredAt: time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC),
		Activation: &events.ActivationPayload{
			TaskTitle: "Write report", Mode: "focus",
			RemainingSeconds: 1500, DurationMinutes: 25,
		},
	}
}

func TestRenderLine(t *testing.T) {
	line, err := RenderLine(activationEvent())
	assert.NoError(t, err)
	assert.Equal(t, `session started: "Write report" (focus), 25:00 on the clock`, line)

	line, err = RenderLine(events.SessionEvent{
		Kind:     events.KindSessionProgress,
		TaskUUID: "task-1",
		Progress: &events.ProgressPayload{
			Phase: "focus", RemainingSeconds: 725, Progress: 0.5, IsActive: true,
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, "[focus] 12:05 remaining (50%)", line)

	line, err = RenderLine(events.SessionEvent{Kind: events.KindSessionDeactivated})
	assert.NoError(t, err)
	assert.Equal(t, "session ended", line)

	line, err = RenderLine(events.SessionEvent{
		Kind: events.KindTaskReminder,
		Reminder: &events.ReminderPayload{
			TaskTitle: "Stretch break", DurationMinutes: 90,
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, `reminder: "Stretch break" starts now (1h 30m planned)`, line)
}

func TestRenderLineErrors(t *testing.T) {
	// Kind set but the matching payload missing.
	_, err := RenderLine(events.SessionEvent{Kind: events.KindSessionActivated, TaskUUID: "task-1"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing activation payload")

	_, err = RenderLine(events.SessionEvent{Kind: events.KindSessionProgress})
	assert.Error(t, err)

	_, err = RenderLine(events.SessionEvent{Kind: events.KindTaskReminder})
	assert.Error(t, err)

	_, err = RenderLine(events.SessionEvent{Kind: "session_exploded"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event kind")
}

func TestRegisterAndGetNotifier(t *testing.T) {
	defer delete(Registry, "test-console")

	RegisterNotifier("test-console", &ConsoleNotifier{})
	notifier, err := GetNotifier("test-console")
	assert.NoError(t, err)
	assert.NotNil(t, notifier)

	_, err = GetNotifier("not-registered")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no notifier registered for type")
}

type countingNotifier struct {
	calls int
	err   error
}

func (n *countingNotifier) Notify(event events.SessionEvent) error {
	n.calls++
	return n.err
}

func TestDispatchSurvivesNotifierFailure(t *testing.T) {
	failing := &countingNotifier{err: assert.AnError}
	healthy := &countingNotifier{}
	RegisterNotifier("test-failing", failing)
	RegisterNotifier("test-healthy", healthy)
	defer delete(Registry, "test-failing")
	defer delete(Registry, "test-healthy")

	Dispatch(activationEvent())

	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, healthy.calls)
}

func TestWebhookNotifierPostsEnvelope(t *testing.T) {
	var received events.SessionEvent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL)
	event := activationEvent()
	assert.NoError(t, notifier.Notify(event))
	assert.Equal(t, event.Kind, received.Kind)
	assert.Equal(t, event.TaskUUID, received.TaskUUID)
	require.NotNil(t, received.Activation)
	assert.Equal(t, "Write report", received.Activation.TaskTitle)
}

func TestWebhookNotifierRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewWebhookNotifier(server.URL).Notify(activationEvent())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
