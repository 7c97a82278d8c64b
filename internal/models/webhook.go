package models

import (
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Webhook events
const (
	EventLeadCreated = "lead.created"
	EventWebhookTest = "webhook.test"
)

// KnownEvents are the events a webhook may subscribe to
var KnownEvents = []string{EventLeadCreated}

// Webhook is an outbound subscription configured in the back-office
type Webhook struct {
	ID        int64          `json:"id" db:"id"`
	Name      string         `json:"name" db:"name"`
	URL       string         `json:"url" db:"url"`
	Events    pq.StringArray `json:"events" db:"events"`
	Active    bool           `json:"active" db:"active"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// WebhookLog is the recorded outcome of one delivery attempt
type WebhookLog struct {
	ID           int64     `json:"id" db:"id"`
	WebhookID    int64     `json:"webhook_id" db:"webhook_id"`
	Event        string    `json:"event" db:"event"`
	StatusCode   *int      `json:"status_code,omitempty" db:"status_code"`
	ResponseBody string    `json:"response_body" db:"response_body"`
	Error        *string   `json:"error,omitempty" db:"error"`
	DurationMS   int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Succeeded reports a 2xx response
func (l *WebhookLog) Succeeded() bool {
	return l.Error == nil && l.StatusCode != nil && *l.StatusCode >= 200 && *l.StatusCode < 300
}

// WebhookEvent is the JSON envelope posted to subscribers
type WebhookEvent struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Subscribes reports whether the webhook wants event
func (w *Webhook) Subscribes(event string) bool {
	for _, e := range w.Events {
		if e == event {
			return true
		}
	}
	return false
}

// Normalize trims fields and de-duplicates events
func (w *Webhook) Normalize() {
	w.Name = strings.TrimSpace(w.Name)
	w.URL = strings.TrimSpace(w.URL)
	seen := make(map[string]bool, len(w.Events))
	events := make(pq.StringArray, 0, len(w.Events))
	for _, e := range w.Events {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		events = append(events, e)
	}
	w.Events = events
}

// Validate checks an admin-entered webhook
func (w *Webhook) Validate() error {
	if w.Name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	u, err := url.Parse(w.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Field: "url", Value: w.URL, Message: "must be an absolute http(s) URL"}
	}
	if len(w.Events) == 0 {
		return &ValidationError{Field: "events", Message: "at least one event is required"}
	}
	for _, e := range w.Events {
		if !isKnownEvent(e) {
			return &ValidationError{Field: "events", Value: e, Message: "unknown event"}
		}
	}
	return nil
}

func isKnownEvent(e string) bool {
	for _, k := range KnownEvents {
		if k == e {
			return true
		}
	}
	return false
}
