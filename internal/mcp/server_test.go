package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"workflow-assist/backend/internal/services"
	"workflow-assist/backend/pkg/models"
)

type MockWorkflowService struct {
	mock.Mock
}

func (m *MockWorkflowService) Submit(ctx context.Context, text string) (*models.WorkflowRecord, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkflowRecord), args.Error(1)
}

func (m *MockWorkflowService) Deliver(ctx context.Context, email string, id int64) (*models.Delivery, error) {
	args := m.Called(ctx, email, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Delivery), args.Error(1)
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestSuggestSteps(t *testing.T) {
	svc := new(MockWorkflowService)
	svc.On("Submit", mock.Anything, "triage inbox").Return(&models.WorkflowRecord{
		ID:             7,
		SuggestedSteps: []string{"Sort by sender", "Draft replies"},
	}, nil)

	s := NewServer(svc, "test")
	result, err := s.handleSuggestSteps(context.Background(), callRequest("suggest_steps", map[string]any{
		"workflow_text": "triage inbox",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var resp models.ProcessWorkflowResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	assert.Equal(t, int64(7), resp.WorkflowID)
	assert.Equal(t, []string{"Sort by sender", "Draft replies"}, resp.Steps)
	svc.AssertExpectations(t)
}

func TestSuggestSteps_ServiceErrorIsCallerSafe(t *testing.T) {
	svc := new(MockWorkflowService)
	svc.On("Submit", mock.Anything, "").Return(nil, &services.ServiceError{
		Kind:    services.ErrValidation,
		Message: "Workflow text is required.",
	})

	s := NewServer(svc, "test")
	result, err := s.handleSuggestSteps(context.Background(), callRequest("suggest_steps", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "Workflow text is required.", resultText(t, result))
}

func TestSendInstructions(t *testing.T) {
	svc := new(MockWorkflowService)
	svc.On("Deliver", mock.Anything, "a@b.com", int64(3)).Return(&models.Delivery{WorkflowID: 3}, nil)

	s := NewServer(svc, "test")
	result, err := s.handleSendInstructions(context.Background(), callRequest("send_instructions", map[string]any{
		"user_email":  "a@b.com",
		"workflow_id": float64(3),
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, services.SuccessMessage, resultText(t, result))
	svc.AssertExpectations(t)
}

func TestSendInstructions_RejectsFractionalID(t *testing.T) {
	svc := new(MockWorkflowService)

	s := NewServer(svc, "test")
	result, err := s.handleSendInstructions(context.Background(), callRequest("send_instructions", map[string]any{
		"user_email":  "a@b.com",
		"workflow_id": 1.5,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	svc.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendInstructions_InternalErrorIsHidden(t *testing.T) {
	svc := new(MockWorkflowService)
	svc.On("Deliver", mock.Anything, "a@b.com", int64(3)).Return(nil, errors.New("dial tcp 10.0.0.5:5432: refused"))

	s := NewServer(svc, "test")
	result, err := s.handleSendInstructions(context.Background(), callRequest("send_instructions", map[string]any{
		"user_email":  "a@b.com",
		"workflow_id": float64(3),
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.NotContains(t, resultText(t, result), "10.0.0.5")
}
