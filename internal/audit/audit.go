package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cloudbill/cloudbill/internal/logger"
	"github.com/cloudbill/cloudbill/internal/pubsub"
	"github.com/cloudbill/cloudbill/internal/types"
)

// Topic carries every audit event. Consumers filter on EventType.
const Topic = "audit.events"

type EventType string

const (
	EventRunStarted     EventType = "invoice_run.started"
	EventRunCompleted   EventType = "invoice_run.completed"
	EventRuleApplied    EventType = "special_rule.applied"
	EventPricingApplied EventType = "pricing_rule.applied"
	EventCreditApplied  EventType = "credit.applied"
	EventInvoiceCreated EventType = "invoice.created"
	EventBatchIngested  EventType = "ingestion_batch.created"
)

// Event is the envelope published for every auditable action. Payload is
// event-specific and kept as raw JSON so consumers can decode lazily.
type Event struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	RunID      string          `json:"run_id,omitempty"`
	CustomerID string          `json:"customer_id,omitempty"`
	Actor      string          `json:"actor"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Publisher emits audit events. Emission is best effort: a billing run
// must never fail because the audit stream is down.
type Publisher interface {
	Emit(ctx context.Context, eventType EventType, runID, customerID string, payload any)
}

type publisher struct {
	pubsub pubsub.Publisher
	logger *logger.Logger
}

func NewPublisher(ps pubsub.Publisher, logger *logger.Logger) Publisher {
	return &publisher{pubsub: ps, logger: logger}
}

func (p *publisher) Emit(ctx context.Context, eventType EventType, runID, customerID string, payload any) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			p.logger.Errorw("failed to marshal audit payload",
				"event_type", eventType,
				"run_id", runID,
				"error", err)
			return
		}
		raw = data
	}

	event := &Event{
		ID:         types.GenerateUUID(),
		Type:       eventType,
		RunID:      runID,
		CustomerID: customerID,
		Actor:      types.GetActorID(ctx),
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Errorw("failed to marshal audit event",
			"event_type", eventType,
			"error", err)
		return
	}

	msg := message.NewMessage(event.ID, data)
	msg.Metadata.Set("event_type", string(eventType))

	if err := p.pubsub.Publish(ctx, Topic, msg); err != nil {
		p.logger.Errorw("failed to publish audit event",
			"event_type", eventType,
			"run_id", runID,
			"error", err)
	}
}

// NoopPublisher discards events. Used where the audit stream is not wired,
// e.g. one-off CLI invocations.
type NoopPublisher struct{}

func (NoopPublisher) Emit(ctx context.Context, eventType EventType, runID, customerID string, payload any) {
}
