package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"workflow-assist/backend/internal/events"
	"workflow-assist/backend/pkg/models"
)

// MockGenerator satisfies Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockMailer satisfies Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, email Email) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

// MockStore satisfies repository.WorkflowStore
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context, record *models.WorkflowRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockStore) Get(ctx context.Context, id int64) (*models.WorkflowRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkflowRecord), args.Error(1)
}

func (m *MockStore) UpdateEmail(ctx context.Context, id int64, email string) error {
	args := m.Called(ctx, id, email)
	return args.Error(0)
}

func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// RecordingPublisher keeps every published event.
type RecordingPublisher struct {
	Events []events.Event
	Err    error
}

func (p *RecordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.Events = append(p.Events, event)
	return p.Err
}

// NoOpLogger for testing
type NoOpLogger struct{}

func (l *NoOpLogger) Debug(msg string, args ...any) {}
func (l *NoOpLogger) Info(msg string, args ...any)  {}
func (l *NoOpLogger) Warn(msg string, args ...any)  {}
func (l *NoOpLogger) Error(msg string, args ...any) {}
