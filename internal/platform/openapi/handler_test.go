package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"gopkg.in/yaml.v3"

	"github.com/microsoft/fhir-codegen-sub025/internal/platform/fhir/fhirtest"
)

func newTestHandler(t *testing.T) *echo.Echo {
	t.Helper()
	opts := DefaultOptions()
	doc, _ := NewBuilder(fhirtest.Collection(), fhirtest.CapabilityStatement(), opts).Build()
	h, err := NewHandler(doc, opts)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	e := echo.New()
	h.RegisterRoutes(e.Group("/api"))
	return e
}

func TestHandler_JSON(t *testing.T) {
	e := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		t.Errorf("unexpected content type %q", ct)
	}
	var spec map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &spec); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if spec["openapi"] != "3.0.3" {
		t.Errorf("expected openapi 3.0.3, got %v", spec["openapi"])
	}
	paths, ok := spec["paths"].(map[string]interface{})
	if !ok {
		t.Fatal("expected paths object")
	}
	if _, ok := paths["/Patient/{logical_id}"]; !ok {
		t.Error("expected /Patient/{logical_id}")
	}
}

func TestHandler_YAML(t *testing.T) {
	e := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/openapi.yaml", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "application/yaml" {
		t.Errorf("unexpected content type %q", ct)
	}
	var spec map[string]interface{}
	if err := yaml.Unmarshal(rec.Body.Bytes(), &spec); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if spec["openapi"] != "3.0.3" {
		t.Errorf("expected openapi 3.0.3, got %v", spec["openapi"])
	}
}

func TestHandler_Docs(t *testing.T) {
	e := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/docs", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "swagger-ui") {
		t.Error("expected Swagger UI page")
	}
	if !strings.Contains(body, `url: "openapi.json"`) {
		t.Error("Swagger UI should load the JSON document")
	}
}
