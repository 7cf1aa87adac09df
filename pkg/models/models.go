// Package models defines the domain and wire models for the workflow assist service
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ProcessWorkflowRequest is the body of POST /process-workflow.
type ProcessWorkflowRequest struct {
	WorkflowText string `json:"workflow_text"`
}

// ProcessWorkflowResponse is returned when steps were generated and stored.
type ProcessWorkflowResponse struct {
	WorkflowID int64    `json:"workflowId"`
	Steps      []string `json:"steps"`
}

// SendInstructionsRequest is the body of POST /send-instructions.
type SendInstructionsRequest struct {
	UserEmail  string     `json:"user_email"`
	WorkflowID WorkflowID `json:"workflow_id"`
}

// WorkflowID accepts either a JSON number or a numeric string, since browser
// forms hand the id around as text.
type WorkflowID int64

// UnmarshalJSON implements json.Unmarshaler.
func (id *WorkflowID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(string(b)), `"`))
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("workflow_id must be an integer: %w", err)
	}
	*id = WorkflowID(n)
	return nil
}

// SendInstructionsResponse reports the result of an instructions delivery.
type SendInstructionsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse is the failure body for the submission endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthStatus represents service health
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}
