package repository

import (
	"context"
	"sync"
	"time"

	"workflow-assist/backend/pkg/models"
)

// MemoryWorkflowStore keeps workflows in process memory. Used by tests and
// local runs without a database.
type MemoryWorkflowStore struct {
	mu      sync.RWMutex
	nextID  int64
	records map[int64]models.WorkflowRecord
	now     func() time.Time
}

// NewMemoryWorkflowStore creates an empty store whose ids start at 1.
func NewMemoryWorkflowStore() *MemoryWorkflowStore {
	return &MemoryWorkflowStore{
		records: make(map[int64]models.WorkflowRecord),
		now:     time.Now,
	}
}

// Create stores a copy of record and assigns the next id.
func (s *MemoryWorkflowStore) Create(ctx context.Context, record *models.WorkflowRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	ts := s.now().UTC()
	record.ID = s.nextID
	record.CreatedAt = ts
	record.UpdatedAt = ts
	s.records[record.ID] = clone(*record)
	return nil
}

// Get returns a copy of the stored record.
func (s *MemoryWorkflowStore) Get(ctx context.Context, id int64) (*models.WorkflowRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := clone(record)
	return &out, nil
}

// UpdateEmail overwrites the email on file.
func (s *MemoryWorkflowStore) UpdateEmail(ctx context.Context, id int64, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	record.UserEmail = &email
	record.UpdatedAt = s.now().UTC()
	s.records[id] = record
	return nil
}

// Ping always succeeds.
func (s *MemoryWorkflowStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len reports how many records are stored.
func (s *MemoryWorkflowStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func clone(r models.WorkflowRecord) models.WorkflowRecord {
	steps := make([]string, len(r.SuggestedSteps))
	copy(steps, r.SuggestedSteps)
	r.SuggestedSteps = steps
	if r.UserEmail != nil {
		email := *r.UserEmail
		r.UserEmail = &email
	}
	return r
}
