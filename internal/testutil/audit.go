package testutil

import (
	"context"
	"sync"

	"github.com/cloudbill/cloudbill/internal/audit"
)

// RecordedEvent is one audit emission captured by the recorder.
type RecordedEvent struct {
	Type       audit.EventType
	RunID      string
	CustomerID string
	Payload    any
}

// RecordingAuditPublisher captures audit events in memory so tests can
// assert on what the pipeline emitted.
type RecordingAuditPublisher struct {
	mu     sync.Mutex
	events []RecordedEvent
}

func NewRecordingAuditPublisher() *RecordingAuditPublisher {
	return &RecordingAuditPublisher{}
}

func (p *RecordingAuditPublisher) Emit(_ context.Context, eventType audit.EventType, runID, customerID string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, RecordedEvent{
		Type:       eventType,
		RunID:      runID,
		CustomerID: customerID,
		Payload:    payload,
	})
}

// Events returns a copy of everything recorded so far.
func (p *RecordingAuditPublisher) Events() []RecordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]RecordedEvent, len(p.events))
	copy(out, p.events)
	return out
}

// EventsOfType returns recorded events matching one type.
func (p *RecordingAuditPublisher) EventsOfType(eventType audit.EventType) []RecordedEvent {
	var out []RecordedEvent
	for _, e := range p.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
