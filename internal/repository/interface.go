package repository

import (
	"context"
	"errors"

	"workflow-assist/backend/pkg/models"
)

// ErrNotFound is returned when no workflow matches the requested id.
var ErrNotFound = errors.New("workflow not found")

// WorkflowStore persists submitted workflows.
type WorkflowStore interface {
	// Create inserts a new record and fills in its generated ID and timestamps.
	Create(ctx context.Context, record *models.WorkflowRecord) error
	// Get retrieves a record by its ID.
	Get(ctx context.Context, id int64) (*models.WorkflowRecord, error)
	// UpdateEmail sets the email on file for a record, replacing any previous value.
	UpdateEmail(ctx context.Context, id int64, email string) error
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}
