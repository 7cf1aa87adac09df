package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"workflow-assist/backend/internal/logging"
	"workflow-assist/backend/internal/repository"
	"workflow-assist/backend/internal/services"
	"workflow-assist/backend/pkg/models"
)

type stubGenerator struct {
	out string
	err error
}

func (g *stubGenerator) Generate(context.Context, string) (string, error) {
	return g.out, g.err
}

type stubMailer struct {
	mu   sync.Mutex
	sent []services.Email
	err  error
}

func (m *stubMailer) Send(_ context.Context, email services.Email) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, email)
	return "msg-1", nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type fixture struct {
	e         *echo.Echo
	store     *repository.MemoryWorkflowStore
	generator *stubGenerator
	mailer    *stubMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryWorkflowStore()
	generator := &stubGenerator{}
	mailer := &stubMailer{}
	logger := logging.NewNop()

	svc, err := services.NewWorkflowService(store, generator, mailer, nil, logger, services.Options{
		StepCount:     4,
		MaxTextLength: 200,
		EmailFrom:     "Workflow Helper <helper@example.com>",
	})
	require.NoError(t, err)

	e := NewEcho("workflow-assist-test", logger)
	RegisterRoutes(e, NewHandler(svc, store, logger))

	return &fixture{e: e, store: store, generator: generator, mailer: mailer}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestProcessThenSend(t *testing.T) {
	f := newFixture(t)
	f.generator.out = "Here you go:\n```json\n" +
		`["Summarize each client's recent activity", "Draft a status paragraph", "Flag overdue items", "Propose next actions"]` +
		"\n```"

	rec := f.do(http.MethodPost, "/process-workflow", `{"workflow_text":"Draft weekly client status reports from my notes"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	processed := decode[models.ProcessWorkflowResponse](t, rec)
	assert.Equal(t, int64(1), processed.WorkflowID)
	assert.Len(t, processed.Steps, 4)
	assert.Equal(t, "Summarize each client's recent activity", processed.Steps[0])

	rec = f.do(http.MethodPost, "/send-instructions", `{"user_email":"a@b.com","workflow_id":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	sent := decode[models.SendInstructionsResponse](t, rec)
	assert.True(t, sent.Success)
	assert.Equal(t, "Instructions sent successfully!", sent.Message)
	assert.Empty(t, sent.Error)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "a@b.com", f.mailer.sent[0].To)
	assert.Contains(t, f.mailer.sent[0].HTML, "Draft a status paragraph")

	stored, err := f.store.Get(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, stored.UserEmail)
	assert.Equal(t, "a@b.com", *stored.UserEmail)
}

func TestFunctionPathAliases(t *testing.T) {
	f := newFixture(t)
	f.generator.out = `["one"]`

	rec := f.do(http.MethodPost, "/functions/v1/process-workflow", `{"workflow_text":"triage inbox"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/functions/v1/send-instructions", `{"user_email":"a@b.com","workflow_id":"1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.SendInstructionsResponse](t, rec).Success)
}

func TestProcessWorkflow_Failures(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		genOut   string
		genErr   error
		wantCode int
		wantMsg  string
	}{
		{
			name:     "missing text",
			body:     `{}`,
			wantCode: http.StatusBadRequest,
			wantMsg:  "Workflow text is required.",
		},
		{
			name:     "whitespace text",
			body:     `{"workflow_text":"   \n"}`,
			wantCode: http.StatusBadRequest,
			wantMsg:  "Workflow text is required.",
		},
		{
			name:     "text too long",
			body:     `{"workflow_text":"` + strings.Repeat("x", 201) + `"}`,
			wantCode: http.StatusBadRequest,
			wantMsg:  "Workflow text must be at most 200 characters.",
		},
		{
			name:     "invalid json",
			body:     `{"workflow_text":`,
			wantCode: http.StatusBadRequest,
			wantMsg:  "Invalid request body.",
		},
		{
			name:     "generation failure",
			body:     `{"workflow_text":"triage inbox"}`,
			genErr:   &services.UpstreamError{Service: "anthropic", StatusCode: 529, Detail: "secret detail"},
			wantCode: http.StatusInternalServerError,
			wantMsg:  "We could not generate suggestions for your workflow. Please try again.",
		},
		{
			name:     "unparseable output",
			body:     `{"workflow_text":"triage inbox"}`,
			genOut:   "I cannot help with that.",
			wantCode: http.StatusInternalServerError,
			wantMsg:  "We could not generate suggestions for your workflow. Please try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.generator.out = tt.genOut
			f.generator.err = tt.genErr

			rec := f.do(http.MethodPost, "/process-workflow", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantMsg, decode[models.ErrorResponse](t, rec).Error)
			assert.NotContains(t, rec.Body.String(), "secret detail")
			assert.Equal(t, 0, f.store.Len())
		})
	}
}

func TestSendInstructions_Failures(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		mailErr  error
		wantCode int
		wantMsg  string
	}{
		{
			name:     "missing email",
			body:     `{"workflow_id":1}`,
			wantCode: http.StatusBadRequest,
			wantMsg:  "Email and Workflow ID are required.",
		},
		{
			name:     "missing id",
			body:     `{"user_email":"a@b.com"}`,
			wantCode: http.StatusBadRequest,
			wantMsg:  "Email and Workflow ID are required.",
		},
		{
			name:     "non numeric id",
			body:     `{"user_email":"a@b.com","workflow_id":"abc"}`,
			wantCode: http.StatusBadRequest,
			wantMsg:  "Invalid request body.",
		},
		{
			name:     "unknown workflow",
			body:     `{"user_email":"a@b.com","workflow_id":999}`,
			wantCode: http.StatusNotFound,
			wantMsg:  "Workflow not found. Please start again.",
		},
		{
			name:     "email provider failure",
			body:     `{"user_email":"a@b.com","workflow_id":1}`,
			mailErr:  &services.UpstreamError{Service: "resend", StatusCode: 403, Detail: "domain not verified"},
			wantCode: http.StatusInternalServerError,
			wantMsg:  "We could not send your instructions. Please try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.store.Create(context.Background(), &models.WorkflowRecord{
				OriginalText:   "triage inbox",
				SuggestedSteps: []string{"Sort by sender"},
			}))
			f.mailer.err = tt.mailErr

			rec := f.do(http.MethodPost, "/send-instructions", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)

			resp := decode[models.SendInstructionsResponse](t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantMsg, resp.Error)
			assert.NotContains(t, rec.Body.String(), "domain not verified")
		})
	}
}

func TestPreflight(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/process-workflow", "/send-instructions", "/functions/v1/process-workflow", "/functions/v1/send-instructions"} {
		t.Run(path, func(t *testing.T) {
			rec := f.do(http.MethodOptions, path, "")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "ok", rec.Body.String())
			assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
			assert.Equal(t, "authorization, x-client-info, apikey, content-type", rec.Header().Get(echo.HeaderAccessControlAllowHeaders))
			assert.Equal(t, "POST, OPTIONS", rec.Header().Get(echo.HeaderAccessControlAllowMethods))
		})
	}
}

func TestErrorResponsesCarryCORSHeaders(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/process-workflow", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestGetWorkflow(t *testing.T) {
	f := newFixture(t)
	email := "hidden@example.com"
	require.NoError(t, f.store.Create(context.Background(), &models.WorkflowRecord{
		OriginalText:   "triage inbox",
		SuggestedSteps: []string{"Sort by sender"},
		UserEmail:      &email,
	}))

	rec := f.do(http.MethodGet, "/api/v1/workflows/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[WorkflowView](t, rec)
	assert.Equal(t, int64(1), view.ID)
	assert.Equal(t, []string{"Sort by sender"}, view.SuggestedSteps)
	assert.NotContains(t, rec.Body.String(), email)

	rec = f.do(http.MethodGet, "/api/v1/workflows/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/workflows/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[models.HealthStatus](t, rec)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "ok", status.Checks["database"])

	h := NewHandler(nil, failingPinger{}, logging.NewNop())
	c := f.e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), httptest.NewRecorder())
	require.NoError(t, h.HandleHealth(c))
	rec = c.Response().Writer.(*httptest.ResponseRecorder)
	status = decode[models.HealthStatus](t, rec)
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "unreachable", status.Checks["database"])
}

func TestUnknownRouteIsJSON(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decode[models.ErrorResponse](t, rec).Error)
}

func TestDocsAndOpenAPIDocument(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/openapi.yaml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/process-workflow:")

	rec = f.do(http.MethodGet, "/docs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SwaggerUIBundle")
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.generator.out = `["one"]`
	f.do(http.MethodPost, "/process-workflow", `{"workflow_text":"triage inbox"}`)

	rec := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "workflow_assist_workflows_submissions_total")
}

func TestPanicBecomesJSONFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := NewEcho("workflow-assist-test", logging.New(zap.New(core)))
	e.POST("/explode", func(echo.Context) error {
		panic("nil map write in handler")
	}, CORS())

	req := httptest.NewRequest(http.MethodPost, "/explode", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Something went wrong. Please try again.", decode[models.ErrorResponse](t, rec).Error)
	assert.NotContains(t, rec.Body.String(), "nil map write")
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get(echo.HeaderAccessControlAllowMethods))

	recovered := logs.FilterMessage("Recovered from panic").All()
	require.Len(t, recovered, 1)
	assert.Contains(t, recovered[0].ContextMap()["stack"], "goroutine")
}
