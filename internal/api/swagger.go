package api

import (
	_ "embed"
	"net/http"

	"github.com/labstack/echo/v4"
)

//go:embed openapi.yaml
var openAPISpec []byte

// SpecHandler serves the OpenAPI document describing the REST API.
// (GET /openapi.yaml)
func SpecHandler(c echo.Context) error {
	return c.Blob(http.StatusOK, "application/yaml", openAPISpec)
}

// SwaggerHandler serves a Swagger UI page pointing at the OpenAPI document.
// The page loads the CDN-hosted assets so nothing static is checked in.
// (GET /docs)
func SwaggerHandler(c echo.Context) error {
	return c.HTML(http.StatusOK, swaggerHTML)
}

const swaggerHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <title>Workflow Assist API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist/swagger-ui-bundle.js"></script>
  <script>
  window.onload = function() {
    window.ui = SwaggerUIBundle({
      url: "/openapi.yaml",
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: "BaseLayout"
    });
  }
  </script>
</body>
</html>`
