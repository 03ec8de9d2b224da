package ralph

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// EventType names a webhook notification.
type EventType string

const (
	EventSessionStart    EventType = "session_start"
	EventSessionComplete EventType = "session_complete"
	EventSessionFailed   EventType = "session_failed"
)

// Event is the JSON payload posted to the webhook URL.
type Event struct {
	Type       EventType `json:"type"`
	RunID      string    `json:"run_id"`
	Project    string    `json:"project"`
	Iteration  int       `json:"iteration,omitempty"`
	StopReason string    `json:"stop_reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notifier posts loop lifecycle events to a webhook URL. Delivery is
// best effort: failures are ignored so a dead endpoint never stalls or
// fails the loop.
type Notifier struct {
	URL    string
	Client *http.Client
}

// NewNotifier returns a Notifier for url. An empty url disables it.
func NewNotifier(url string) *Notifier {
	return &Notifier{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify posts the event. Blocks at most the client timeout.
func (n *Notifier) Notify(ctx context.Context, ev Event) {
	if n == nil || n.URL == "" {
		return
	}
	ev.Timestamp = time.Now()
	body, err := json.Marshal(ev)
	if err != nil {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.Client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
