package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Actions recorded for policy decisions.
const (
	ActionRequest       = "request"
	ActionIPBlocked     = "ip_blocked"
	ActionAuthnFailed   = "authentication_failed"
	ActionAuthzDenied   = "authorization_denied"
	ActionRateLimited   = "rate_limit_exceeded"
	ActionConfigUpdated = "config_updated"
)

// Event is one structured audit record: who, what, which rule, why.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Action    string                 `json:"action"`
	ActorID   string                 `json:"actor_id"`
	Resource  string                 `json:"resource"`
	Rule      string                 `json:"rule,omitempty"`
	Reason    string                 `json:"reason,omitempty"`
	Status    int                    `json:"status"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Sink receives audit events.
type Sink interface {
	Publish(Event)
}

// JSONSink writes one JSON object per event to an io.Writer.
type JSONSink struct {
	mu  sync.Mutex
	out io.Writer
}

func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{out: w}
}

func (s *JSONSink) Publish(event Event) {
	if event.Metadata != nil {
		maskSensitive(event.Metadata)
	}

	bytes, err := json.Marshal(event)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit event error: %v\n", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out.Write(bytes)
	s.out.Write([]byte("\n"))
}

func maskSensitive(m map[string]interface{}) {
	sensitiveKeys := []string{"api_key", "password", "token", "secret"}
	for k := range m {
		lowerK := strings.ToLower(k)
		for _, s := range sensitiveKeys {
			if strings.Contains(lowerK, s) {
				m[k] = "***REDACTED***"
				break
			}
		}
	}
}

// Bus fans events out to every subscribed sink. It is the explicit handle
// the pipeline is constructed with; there is no process-wide singleton.
type Bus struct {
	mu    sync.RWMutex
	sinks []Sink
}

func NewBus(sinks ...Sink) *Bus {
	return &Bus{sinks: sinks}
}

func (b *Bus) Subscribe(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.sinks {
		s.Publish(event)
	}
}
