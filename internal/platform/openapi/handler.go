package openapi

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
)

// Handler serves a generated document. Both serializations are rendered
// once at construction.
type Handler struct {
	json []byte
	yaml []byte
}

// NewHandler renders doc as JSON and YAML using the version selected in
// opts.
func NewHandler(doc *openapi3.T, opts Options) (*Handler, error) {
	opts.FileFormat = FormatJSON
	js, err := Marshal(doc, opts)
	if err != nil {
		return nil, err
	}
	opts.FileFormat = FormatYAML
	ym, err := Marshal(doc, opts)
	if err != nil {
		return nil, err
	}
	return &Handler{json: js, yaml: ym}, nil
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>FHIR API - Swagger UI</title>
  <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" >
  <style>
    html { box-sizing: border-box; overflow-y: scroll; }
    *, *:before, *:after { box-sizing: inherit; }
    body { margin: 0; background: #fafafa; }
  </style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "openapi.json",
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [
        SwaggerUIBundle.presets.apis,
        SwaggerUIBundle.SwaggerUIStandalonePreset
      ],
      layout: "BaseLayout"
    })
  </script>
</body>
</html>`

// RegisterRoutes registers the document endpoints.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/openapi.json", func(c echo.Context) error {
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, h.json)
	})
	g.GET("/openapi.yaml", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "application/yaml", h.yaml)
	})
	g.GET("/docs", func(c echo.Context) error {
		return c.HTML(http.StatusOK, swaggerUIHTML)
	})
}
