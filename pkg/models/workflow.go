package models

import (
	"time"
)

// WorkflowRecord is a submitted workflow together with the steps suggested
// for it. Only UserEmail changes after creation.
type WorkflowRecord struct {
	ID             int64     `json:"id"`
	OriginalText   string    `json:"original_workflow"`
	SuggestedSteps []string  `json:"suggested_steps"`
	UserEmail      *string   `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Delivery is the outcome of sending instructions for a workflow.
type Delivery struct {
	WorkflowID int64
	Recipient  string
	MessageID  string
	Enriched   bool
}
