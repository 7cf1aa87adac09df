// Package mcp exposes the workflow operations as Model Context Protocol tools
// so that assistants can suggest steps and send instructions directly.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"workflow-assist/backend/internal/services"
	"workflow-assist/backend/pkg/models"
)

// WorkflowService is the part of services.WorkflowService the tools call.
type WorkflowService interface {
	Submit(ctx context.Context, text string) (*models.WorkflowRecord, error)
	Deliver(ctx context.Context, email string, id int64) (*models.Delivery, error)
}

type Server struct {
	mcpServer *server.MCPServer
	workflows WorkflowService
}

func NewServer(workflows WorkflowService, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Workflow Assist",
			version,
			server.WithToolCapabilities(true),
		),
		workflows: workflows,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"suggest_steps",
			mcp.WithDescription("Suggest how an AI assistant can help with a described workflow. The suggestions are stored and can be emailed with send_instructions."),
			mcp.WithString("workflow_text", mcp.Required(), mcp.Description("Free text description of the workflow")),
		),
		s.handleSuggestSteps,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"send_instructions",
			mcp.WithDescription("Email the instructions for a previously suggested workflow"),
			mcp.WithString("user_email", mcp.Required(), mcp.Description("Recipient email address")),
			mcp.WithNumber("workflow_id", mcp.Required(), mcp.Description("Workflow id returned by suggest_steps")),
		),
		s.handleSendInstructions,
	)
}

func (s *Server) handleSuggestSteps(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	text, _ := args["workflow_text"].(string)
	record, err := s.workflows.Submit(ctx, text)
	if err != nil {
		return mcp.NewToolResultError(toolMessage(err)), nil
	}

	jsonBytes, err := json.Marshal(models.ProcessWorkflowResponse{
		WorkflowID: record.ID,
		Steps:      record.SuggestedSteps,
	})
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleSendInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	email, _ := args["user_email"].(string)
	id, ok := args["workflow_id"].(float64)
	if !ok || id != float64(int64(id)) {
		return mcp.NewToolResultError("workflow_id must be an integer"), nil
	}

	if _, err := s.workflows.Deliver(ctx, email, int64(id)); err != nil {
		return mcp.NewToolResultError(toolMessage(err)), nil
	}
	return mcp.NewToolResultText(services.SuccessMessage), nil
}

// toolMessage returns the caller-safe text for err.
func toolMessage(err error) string {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return "Something went wrong. Please try again."
}

// MountHTTPHandlers registers the SSE transport under /mcp.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
