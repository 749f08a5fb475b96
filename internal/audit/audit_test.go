package audit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestJSONSink_MasksSensitiveMetadata(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONSink(&buf)

	sink.Publish(Event{
		Timestamp: time.Now(),
		Action:    ActionAuthnFailed,
		ActorID:   "anonymous",
		Resource:  "GET /api/reports",
		Status:    401,
		Metadata: map[string]interface{}{
			"auth_token":  "eyJhbGciOi...",
			"remote_addr": "10.0.0.7:1234",
		},
	})

	var got Event
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("sink did not write valid JSON: %v", err)
	}
	if got.Metadata["auth_token"] != "***REDACTED***" {
		t.Errorf("token metadata should be masked, got %v", got.Metadata["auth_token"])
	}
	if got.Metadata["remote_addr"] != "10.0.0.7:1234" {
		t.Errorf("non-sensitive metadata should pass through, got %v", got.Metadata["remote_addr"])
	}
	if strings.Contains(buf.String(), "eyJhbGciOi") {
		t.Error("raw token leaked into the audit stream")
	}
}

type captureSink struct {
	events []Event
}

func (c *captureSink) Publish(e Event) { c.events = append(c.events, e) }

func TestBus_FansOutAndStampsTime(t *testing.T) {
	a := &captureSink{}
	b := &captureSink{}
	bus := NewBus(a)
	bus.Subscribe(b)

	bus.Publish(Event{Action: ActionRateLimited, ActorID: "user-1", Status: 429})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("expected both sinks to receive the event, got %d and %d", len(a.events), len(b.events))
	}
	if a.events[0].Timestamp.IsZero() {
		t.Error("bus should stamp a missing timestamp")
	}
	if a.events[0].Action != ActionRateLimited {
		t.Errorf("action = %q", a.events[0].Action)
	}
}
