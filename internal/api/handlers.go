package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"workflow-assist/backend/internal/logging"
	"workflow-assist/backend/internal/services"
	"workflow-assist/backend/pkg/models"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

const genericFailure = "Something went wrong. Please try again."

// WorkflowService is the subset of services.WorkflowService the handlers use.
type WorkflowService interface {
	Submit(ctx context.Context, text string) (*models.WorkflowRecord, error)
	Deliver(ctx context.Context, email string, id int64) (*models.Delivery, error)
	Get(ctx context.Context, id int64) (*models.WorkflowRecord, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers for the workflow assist REST API
type Handler struct {
	service WorkflowService
	db      Pinger
	logger  *logging.Logger
}

// NewHandler creates a new Handler with required dependencies
func NewHandler(service WorkflowService, db Pinger, logger *logging.Logger) *Handler {
	return &Handler{service: service, db: db, logger: logger}
}

// HandleHealth returns service status. The database check result is
// reported but does not change the status code.
// (GET /healthz)
func (h *Handler) HandleHealth(c echo.Context) error {
	status := models.HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   "workflow-assist",
		Version:   Version,
		Checks:    map[string]string{},
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Checks["database"] = "unreachable"
			h.logger.Warn("Health check database ping failed", "error", err)
		} else {
			status.Checks["database"] = "ok"
		}
	}
	return c.JSON(http.StatusOK, status)
}

// statusFor maps a service error to an HTTP status and a caller-safe message.
func statusFor(err error) (int, string) {
	var svcErr *services.ServiceError
	if !errors.As(err, &svcErr) {
		return http.StatusInternalServerError, genericFailure
	}
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, svcErr.Message
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, svcErr.Message
	default:
		return http.StatusInternalServerError, svcErr.Message
	}
}

// ErrorHandler is the last-resort failure boundary. Anything a handler did not
// answer itself, including recovered panics and routing errors, is returned
// as a JSON body with a generic message.
func ErrorHandler(logger *logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := genericFailure
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if code < http.StatusInternalServerError {
				message = http.StatusText(code)
			}
		} else {
			code, message = statusFor(err)
		}

		if code >= http.StatusInternalServerError {
			logger.Error("Request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(code)
		} else {
			writeErr = c.JSON(code, models.ErrorResponse{Error: message})
		}
		if writeErr != nil {
			logger.Error("Failed to write error response", "error", writeErr)
		}
	}
}
