// Package api contains the HTTP handlers for the workflow assist service
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"workflow-assist/backend/internal/services"
	"workflow-assist/backend/pkg/models"
)

// ProcessWorkflow generates and stores suggested steps for a workflow.
// (POST /process-workflow)
func (h *Handler) ProcessWorkflow(c echo.Context) error {
	var req models.ProcessWorkflowRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body."})
	}

	record, err := h.service.Submit(c.Request().Context(), req.WorkflowText)
	if err != nil {
		code, message := statusFor(err)
		h.logFailure(c, code, err)
		return c.JSON(code, models.ErrorResponse{Error: message})
	}

	return c.JSON(http.StatusOK, models.ProcessWorkflowResponse{
		WorkflowID: record.ID,
		Steps:      record.SuggestedSteps,
	})
}

// SendInstructions emails the instructions for a stored workflow.
// (POST /send-instructions)
func (h *Handler) SendInstructions(c echo.Context) error {
	var req models.SendInstructionsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.SendInstructionsResponse{Success: false, Error: "Invalid request body."})
	}

	if _, err := h.service.Deliver(c.Request().Context(), req.UserEmail, int64(req.WorkflowID)); err != nil {
		code, message := statusFor(err)
		h.logFailure(c, code, err)
		return c.JSON(code, models.SendInstructionsResponse{Success: false, Error: message})
	}

	return c.JSON(http.StatusOK, models.SendInstructionsResponse{
		Success: true,
		Message: services.SuccessMessage,
	})
}

// WorkflowView is the public projection of a stored workflow.
type WorkflowView struct {
	ID             int64    `json:"id"`
	OriginalText   string   `json:"original_workflow"`
	SuggestedSteps []string `json:"suggested_steps"`
}

// GetWorkflow returns a stored workflow without the email on file.
// (GET /api/v1/workflows/:id)
func (h *Handler) GetWorkflow(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid workflow id."})
	}

	record, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		code, message := statusFor(err)
		h.logFailure(c, code, err)
		return c.JSON(code, models.ErrorResponse{Error: message})
	}

	return c.JSON(http.StatusOK, WorkflowView{
		ID:             record.ID,
		OriginalText:   record.OriginalText,
		SuggestedSteps: record.SuggestedSteps,
	})
}

func (h *Handler) logFailure(c echo.Context, code int, err error) {
	if code >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.Path(), "status", code, "error", err)
		return
	}
	h.logger.Info("Request rejected", "path", c.Path(), "status", code, "error", err)
}
