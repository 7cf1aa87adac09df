package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Browser clients send these headers on the form submissions.
const (
	corsAllowOrigin  = "*"
	corsAllowHeaders = "authorization, x-client-info, apikey, content-type"
	corsAllowMethods = "POST, OPTIONS"
)

// formPrefixes are the mount points of the two form endpoints. The
// /functions/v1 prefix keeps frontends built against the hosted function
// URLs working unchanged.
var formPrefixes = []string{"", "/functions/v1"}

// RegisterRoutes mounts the REST API on e.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	cors := CORS()

	for _, prefix := range formPrefixes {
		e.POST(prefix+"/process-workflow", h.ProcessWorkflow, cors)
		e.OPTIONS(prefix+"/process-workflow", Preflight, cors)
		e.POST(prefix+"/send-instructions", h.SendInstructions, cors)
		e.OPTIONS(prefix+"/send-instructions", Preflight, cors)
	}

	e.GET("/api/v1/workflows/:id", h.GetWorkflow, cors)
	e.GET("/healthz", h.HandleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/openapi.yaml", SpecHandler)
	e.GET("/docs", SwaggerHandler)
}

// CORS adds the cross-origin headers to every response, including errors
// written by the handler it wraps.
func CORS() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Response().Header()
			header.Set(echo.HeaderAccessControlAllowOrigin, corsAllowOrigin)
			header.Set(echo.HeaderAccessControlAllowHeaders, corsAllowHeaders)
			header.Set(echo.HeaderAccessControlAllowMethods, corsAllowMethods)
			return next(c)
		}
	}
}

// Preflight answers CORS preflight requests.
func Preflight(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
