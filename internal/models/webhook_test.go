package models

import (
	"testing"

	"github.com/lib/pq"
)

func TestWebhook_NormalizeAndValidate(t *testing.T) {
	tests := []struct {
		name      string
		hook      Webhook
		wantField string
	}{
		{
			name: "valid",
			hook: Webhook{Name: "CRM", URL: "https://crm.example.com/hooks", Events: pq.StringArray{"lead.created"}},
		},
		{
			name:      "missing name",
			hook:      Webhook{URL: "https://crm.example.com", Events: pq.StringArray{"lead.created"}},
			wantField: "name",
		},
		{
			name:      "relative url",
			hook:      Webhook{Name: "CRM", URL: "/hooks", Events: pq.StringArray{"lead.created"}},
			wantField: "url",
		},
		{
			name:      "ftp url",
			hook:      Webhook{Name: "CRM", URL: "ftp://crm.example.com", Events: pq.StringArray{"lead.created"}},
			wantField: "url",
		},
		{
			name:      "no events",
			hook:      Webhook{Name: "CRM", URL: "https://crm.example.com", Events: pq.StringArray{" "}},
			wantField: "events",
		},
		{
			name:      "unknown event",
			hook:      Webhook{Name: "CRM", URL: "https://crm.example.com", Events: pq.StringArray{"lead.deleted"}},
			wantField: "events",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.hook
			h.Normalize()
			err := h.Validate()

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestWebhook_NormalizeDeduplicatesEvents(t *testing.T) {
	h := Webhook{Events: pq.StringArray{"Lead.Created", "lead.created ", ""}}
	h.Normalize()

	if len(h.Events) != 1 || h.Events[0] != EventLeadCreated {
		t.Errorf("Events = %v, want [lead.created]", h.Events)
	}
	if !h.Subscribes(EventLeadCreated) {
		t.Error("Subscribes(lead.created) = false")
	}
	if h.Subscribes(EventWebhookTest) {
		t.Error("Subscribes(webhook.test) = true")
	}
}

func TestWebhookLog_Succeeded(t *testing.T) {
	ok, notFound := 204, 404
	msg := "timeout"

	tests := []struct {
		name string
		log  WebhookLog
		want bool
	}{
		{"2xx", WebhookLog{StatusCode: &ok}, true},
		{"4xx", WebhookLog{StatusCode: &notFound}, false},
		{"transport error", WebhookLog{Error: &msg}, false},
		{"no status", WebhookLog{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.log.Succeeded(); got != tt.want {
				t.Errorf("Succeeded() = %v, want %v", got, tt.want)
			}
		})
	}
}
