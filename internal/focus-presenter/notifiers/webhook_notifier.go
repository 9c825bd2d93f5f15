package notifiers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"focus-time-service/internal/focus-manager/events"
)

// WebhookNotifier forwards the event envelope as JSON to an external
// endpoint, e.g. a phone-notification bridge.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *WebhookNotifier) Notify(event events.SessionEvent) error {
	payloadBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Kind, err)
	}
	resp, err := n.Client.Post(n.URL, "application/json", bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("webhook POST failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}
