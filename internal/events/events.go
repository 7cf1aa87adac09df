// Package events publishes workflow lifecycle notifications.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeWorkflowSubmitted     = "workflow.submitted"
	TypeInstructionsDelivered = "instructions.delivered"
)

// Event is a notification about a completed operation on a workflow.
type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	WorkflowID int64             `json:"workflow_id"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// New builds an event with a fresh id and the current time.
func New(eventType string, workflowID int64, attrs map[string]string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		WorkflowID: workflowID,
		OccurredAt: time.Now().UTC(),
		Attributes: attrs,
	}
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close does nothing.
func (NopPublisher) Close() error { return nil }
