package notifiers

import (
	"fmt"
	"log"

	"focus-time-service/internal/focus-manager/events"
)

// Notifier names.
const (
	NotifierTypeConsole = "console-notifier"
	NotifierTypeWebhook = "webhook-notifier"
)

// Notifier presents one session event to the user through some surface.
type Notifier interface {
	Notify(event events.SessionEvent) error
}

var Registry = make(map[string]Notifier)

func RegisterNotifier(notifierType string, notifier Notifier) {
	log.Printf("Registering notifier for type: %s", notifierType)
	Registry[notifierType] = notifier
}

func GetNotifier(notifierType string) (Notifier, error) {
	notifier, exists := Registry[notifierType]
	if !exists {
		return nil, fmt.Errorf("no notifier registered for type: %s", notifierType)
	}
	return notifier, nil
}

// Dispatch fans one event out to every registered notifier. Individual
// notifier failures are logged and do not stop the fan-out.
func Dispatch(event events.SessionEvent) {
	for name, notifier := range Registry {
		if err := notifier.Notify(event); err != nil {
			log.Printf("Notifier %s failed for %s event (task %s): %v", name, event.Kind, event.TaskUUID, err)
		}
	}
}
