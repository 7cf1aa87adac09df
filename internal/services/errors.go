package services

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by WorkflowService matches exactly
// one of these with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrUpstream   = errors.New("upstream service error")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage error")
)

// ServiceError pairs a caller-safe message with the internal cause. Only
// Message may be shown to callers.
type ServiceError struct {
	Kind    error
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, message string, cause error) *ServiceError {
	return &ServiceError{Kind: kind, Message: message, Err: cause}
}

// UpstreamError describes a failed call to a third party API. Detail may hold
// a raw provider body and is for logs only.
type UpstreamError struct {
	Service    string
	StatusCode int
	Detail     string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := e.Service + " request failed"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Caller-facing messages.
const (
	msgTextRequired      = "Workflow text is required."
	msgDeliveryRequired  = "Email and Workflow ID are required."
	msgGenerationFailed  = "We could not generate suggestions for your workflow. Please try again."
	msgInstructionFailed = "We could not prepare your instructions. Please try again."
	msgEmailFailed       = "We could not send your instructions. Please try again."
	msgWorkflowNotFound  = "Workflow not found. Please start again."
	msgSaveFailed        = "We could not save your workflow. Please try again."
	msgLoadFailed        = "We could not load your workflow. Please try again."
)
