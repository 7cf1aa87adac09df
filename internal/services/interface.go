package services

import (
	"context"

	"workflow-assist/backend/internal/events"
)

// Generator is a text-generation API. Generate sends a single prompt and
// returns the model's text output.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Email is a single-recipient HTML message.
type Email struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Mailer dispatches email through a transactional email provider and returns
// the provider's message id.
type Mailer interface {
	Send(ctx context.Context, email Email) (string, error)
}

// EventPublisher announces completed operations to other systems.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
