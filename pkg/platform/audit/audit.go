// Package audit emits structured events for identity-sensitive actions:
// verifications, session issuance, endorsements. Events are advisory
// telemetry; emitting never blocks or fails the business operation.
package audit

import (
	"context"
	"sync"
	"time"
)

// Category buckets events by consumer.
type Category string

const (
	CategorySecurity   Category = "security"   // verification attempts, session issuance
	CategoryCompliance Category = "compliance" // profile lifecycle
	CategoryOperations Category = "operations" // rate limiting, external faults
)

// Event captures one audited action. Keep it transport-agnostic so sinks
// can fan out.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Category  Category          `json:"category"`
	Action    string            `json:"action"`
	ProfileID string            `json:"profile_id,omitempty"`
	Handle    string            `json:"handle,omitempty"`
	Outcome   string            `json:"outcome,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
}

// Publisher is an audit event sink.
type Publisher interface {
	Emit(ctx context.Context, event Event)
	Close() error
}

// MemoryPublisher records events in process memory. Test sink.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Emit(_ context.Context, event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	p.events = append(p.events, event)
}

func (p *MemoryPublisher) Close() error { return nil }

// Events returns a copy of everything emitted so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}
