package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"workflow-assist/backend/internal/events"
	"workflow-assist/backend/internal/extractor"
	"workflow-assist/backend/internal/observability"
	"workflow-assist/backend/internal/repository"
	"workflow-assist/backend/pkg/models"
)

// SuccessMessage is returned to callers after instructions were sent.
const SuccessMessage = "Instructions sent successfully!"

// Options tunes WorkflowService behaviour.
type Options struct {
	// StepCount is how many steps the generation API is asked for.
	StepCount int
	// MaxTextLength caps the submitted workflow text, in characters.
	MaxTextLength int
	// Enrich adds a generated system prompt to the instructions email.
	Enrich bool

	EmailFrom    string
	EmailSubject string

	GenerationTimeout time.Duration
	StorageTimeout    time.Duration
	EmailTimeout      time.Duration
	EventTimeout      time.Duration
}

// WorkflowService turns workflow descriptions into suggested steps and
// emails instructions built from them. Each call runs its outbound requests
// one after another and attempts each exactly once.
type WorkflowService struct {
	store     repository.WorkflowStore
	generator Generator
	mailer    Mailer
	events    EventPublisher
	logger    Logger
	prompts   *promptSet
	opts      Options
}

// NewWorkflowService creates a new WorkflowService. A nil publisher disables
// events.
func NewWorkflowService(store repository.WorkflowStore, generator Generator, mailer Mailer, publisher EventPublisher, logger Logger, opts Options) (*WorkflowService, error) {
	if store == nil || generator == nil || mailer == nil || logger == nil {
		return nil, errors.New("workflow service: store, generator, mailer and logger are required")
	}
	if opts.StepCount <= 0 {
		return nil, fmt.Errorf("workflow service: step count must be positive, got %d", opts.StepCount)
	}
	if strings.TrimSpace(opts.EmailFrom) == "" {
		return nil, errors.New("workflow service: sender address is required")
	}
	if opts.EmailSubject == "" {
		opts.EmailSubject = "Your Custom AI Workflow Instructions"
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	prompts, err := newPromptSet()
	if err != nil {
		return nil, err
	}

	return &WorkflowService{
		store:     store,
		generator: generator,
		mailer:    mailer,
		events:    publisher,
		logger:    logger,
		prompts:   prompts,
		opts:      opts,
	}, nil
}

// Submit asks the generation API for assistance steps for text and stores the
// result. The record is written last, so a failure leaves nothing behind.
func (s *WorkflowService) Submit(ctx context.Context, text string) (record *models.WorkflowRecord, err error) {
	defer func() { observability.RecordSubmission(outcomeLabel(err)) }()

	if strings.TrimSpace(text) == "" {
		return nil, newError(ErrValidation, msgTextRequired, nil)
	}
	if s.opts.MaxTextLength > 0 && utf8.RuneCountInString(text) > s.opts.MaxTextLength {
		return nil, newError(ErrValidation,
			fmt.Sprintf("Workflow text must be at most %d characters.", s.opts.MaxTextLength), nil)
	}

	prompt, err := s.prompts.Steps(text, s.opts.StepCount)
	if err != nil {
		return nil, fmt.Errorf("render steps prompt: %w", err)
	}

	raw, err := s.generate(ctx, "steps", prompt)
	if err != nil {
		s.logger.Error("Generation request failed", "purpose", "steps", "error", err)
		return nil, newError(ErrUpstream, msgGenerationFailed, err)
	}

	steps, err := extractor.ExtractSteps(raw)
	if err != nil {
		var malformed *extractor.MalformedResponseError
		if errors.As(err, &malformed) {
			s.logger.Error("Could not parse steps from generation response",
				"reason", malformed.Reason, "raw_response", malformed.Raw)
		}
		return nil, newError(ErrUpstream, msgGenerationFailed, err)
	}
	if len(steps) == 0 {
		s.logger.Warn("Generation response contained no steps")
	}

	record = &models.WorkflowRecord{
		OriginalText:   text,
		SuggestedSteps: steps,
	}
	sctx, cancel := withTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()
	if err := s.store.Create(sctx, record); err != nil {
		s.logger.Error("Failed to save workflow", "error", err)
		return nil, newError(ErrStorage, msgSaveFailed, err)
	}

	s.logger.Info("Workflow saved", "workflow_id", record.ID, "step_count", len(steps))
	s.publish(ctx, events.New(events.TypeWorkflowSubmitted, record.ID, map[string]string{
		"step_count": strconv.Itoa(len(steps)),
	}))
	return record, nil
}

// Get returns a stored workflow.
func (s *WorkflowService) Get(ctx context.Context, id int64) (*models.WorkflowRecord, error) {
	if id <= 0 {
		return nil, newError(ErrValidation, "Workflow ID is required.", nil)
	}
	return s.load(ctx, id)
}

// Deliver emails the instructions for workflow id to email. Recording the
// address on the workflow is best effort; generating the optional system
// prompt and sending the email are not.
func (s *WorkflowService) Deliver(ctx context.Context, email string, id int64) (delivery *models.Delivery, err error) {
	defer func() { observability.RecordDelivery(outcomeLabel(err)) }()

	email = strings.TrimSpace(email)
	if email == "" || id <= 0 {
		return nil, newError(ErrValidation, msgDeliveryRequired, nil)
	}

	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	uctx, cancel := withTimeout(ctx, s.opts.StorageTimeout)
	if err := s.store.UpdateEmail(uctx, id, email); err != nil {
		observability.RecordEmailUpdateFailure()
		s.logger.Warn("Failed to record email on workflow, continuing", "workflow_id", id, "error", err)
	}
	cancel()

	var instructions string
	if s.opts.Enrich {
		prompt, err := s.prompts.Instructions(record.OriginalText, record.SuggestedSteps)
		if err != nil {
			return nil, fmt.Errorf("render instructions prompt: %w", err)
		}
		instructions, err = s.generate(ctx, "instructions", prompt)
		if err != nil {
			s.logger.Error("Generation request failed", "purpose", "instructions", "workflow_id", id, "error", err)
			return nil, newError(ErrUpstream, msgInstructionFailed, err)
		}
		instructions = strings.TrimSpace(instructions)
	}

	body, err := RenderEmail(record.OriginalText, record.SuggestedSteps, instructions)
	if err != nil {
		return nil, fmt.Errorf("render email: %w", err)
	}

	ectx, cancel := withTimeout(ctx, s.opts.EmailTimeout)
	defer cancel()
	started := time.Now()
	messageID, err := s.mailer.Send(ectx, Email{
		From:    s.opts.EmailFrom,
		To:      email,
		Subject: s.opts.EmailSubject,
		HTML:    body,
	})
	observability.ObserveEmail(started, err)
	if err != nil {
		s.logger.Error("Email dispatch failed", "workflow_id", id, "error", err)
		return nil, newError(ErrUpstream, msgEmailFailed, err)
	}

	s.logger.Info("Instructions sent", "workflow_id", id, "message_id", messageID, "enriched", s.opts.Enrich)
	s.publish(ctx, events.New(events.TypeInstructionsDelivered, id, map[string]string{
		"message_id": messageID,
		"enriched":   strconv.FormatBool(s.opts.Enrich),
	}))

	return &models.Delivery{
		WorkflowID: id,
		Recipient:  email,
		MessageID:  messageID,
		Enriched:   s.opts.Enrich,
	}, nil
}

func (s *WorkflowService) load(ctx context.Context, id int64) (*models.WorkflowRecord, error) {
	gctx, cancel := withTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	record, err := s.store.Get(gctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, msgWorkflowNotFound, err)
		}
		s.logger.Error("Failed to load workflow", "workflow_id", id, "error", err)
		return nil, newError(ErrStorage, msgLoadFailed, err)
	}
	return record, nil
}

func (s *WorkflowService) generate(ctx context.Context, purpose, prompt string) (string, error) {
	gctx, cancel := withTimeout(ctx, s.opts.GenerationTimeout)
	defer cancel()

	started := time.Now()
	out, err := s.generator.Generate(gctx, prompt)
	observability.ObserveGeneration(purpose, started, err)
	return out, err
}

// publish is fire-and-forget from the caller's point of view: the operation
// already succeeded, so a broker problem is only logged.
func (s *WorkflowService) publish(ctx context.Context, event events.Event) {
	pctx, cancel := withTimeout(context.WithoutCancel(ctx), s.opts.EventTimeout)
	defer cancel()
	if err := s.events.Publish(pctx, event); err != nil {
		s.logger.Warn("Failed to publish event", "type", event.Type, "workflow_id", event.WorkflowID, "error", err)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeSuccess
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return observability.OutcomeFailure
	}
}
