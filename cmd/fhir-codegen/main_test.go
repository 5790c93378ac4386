package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/microsoft/fhir-codegen-sub025/internal/config"
	"github.com/microsoft/fhir-codegen-sub025/internal/platform/fhir/fhirtest"
	"github.com/microsoft/fhir-codegen-sub025/internal/platform/middleware"
	"github.com/microsoft/fhir-codegen-sub025/internal/platform/openapi"
)

const (
	testManifest = `{"name": "test.fhir.core", "version": "4.0.1", "fhirVersions": ["4.0.1"]}`
	testPatient  = `{
		"resourceType": "StructureDefinition",
		"url": "http://hl7.org/fhir/StructureDefinition/Patient",
		"name": "Patient", "kind": "resource", "type": "Patient", "abstract": false,
		"derivation": "specialization",
		"snapshot": {"element": [
			{"id": "Patient", "path": "Patient", "min": 0, "max": "*"},
			{"id": "Patient.active", "path": "Patient.active", "min": 0, "max": "1", "type": [{"code": "boolean"}]}
		]}
	}`
)

func writePackage(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"package/package.json":                     testManifest,
		"package/StructureDefinition-Patient.json": testPatient,
	}
	for name, body := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestRunExport_WritesFile(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Packages = []string{writePackage(t)}
	cfg.Output = filepath.Join(t.TempDir(), "openapi.json")

	var stdout bytes.Buffer
	if err := runExport(context.Background(), cfg, &stdout); err != nil {
		t.Fatalf("runExport: %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("expected nothing on stdout, got %d bytes", stdout.Len())
	}

	data, err := os.ReadFile(cfg.Output)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/Patient"]; !ok {
		t.Errorf("expected /Patient path, got %v", paths)
	}
}

func TestRunExport_Stdout(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Packages = []string{writePackage(t)}
	cfg.FileFormat = "yaml"

	var stdout bytes.Buffer
	if err := runExport(context.Background(), cfg, &stdout); err != nil {
		t.Fatalf("runExport: %v", err)
	}
	if !strings.Contains(stdout.String(), "openapi: 3.0") {
		t.Errorf("expected a YAML document, got %q", stdout.String())
	}
}

func TestRunExport_Errors(t *testing.T) {
	t.Run("no packages", func(t *testing.T) {
		cfg := loadConfig(t)
		if err := runExport(context.Background(), cfg, &bytes.Buffer{}); !errors.Is(err, config.ErrNoPackages) {
			t.Errorf("expected ErrNoPackages, got %v", err)
		}
	})
	t.Run("invalid option", func(t *testing.T) {
		cfg := loadConfig(t)
		cfg.Packages = []string{writePackage(t)}
		cfg.SchemaStyle = "sideways"
		if err := runExport(context.Background(), cfg, &bytes.Buffer{}); !errors.Is(err, openapi.ErrInvalidOptions) {
			t.Errorf("expected ErrInvalidOptions, got %v", err)
		}
	})
	t.Run("missing capabilities", func(t *testing.T) {
		cfg := loadConfig(t)
		cfg.Packages = []string{writePackage(t)}
		cfg.CapabilitiesFile = filepath.Join(t.TempDir(), "missing.json")
		var stdout bytes.Buffer
		if err := runExport(context.Background(), cfg, &stdout); err == nil {
			t.Error("expected error for missing capability statement")
		}
		if stdout.Len() != 0 {
			t.Error("expected nothing written on error")
		}
	})
}

func TestRunExport_NoFileOnFailure(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"invalid option", func(c *config.Config) { c.SchemaStyle = "sideways" }},
		{"unknown interaction", func(c *config.Config) { c.Interactions = []string{"teleport=true"} }},
		{"missing capabilities", func(c *config.Config) {
			c.CapabilitiesFile = filepath.Join(os.TempDir(), "fhir-codegen-missing-capabilities.json")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadConfig(t)
			cfg.Packages = []string{writePackage(t)}
			cfg.Output = filepath.Join(t.TempDir(), "openapi.json")
			tt.mutate(cfg)

			if err := runExport(context.Background(), cfg, &bytes.Buffer{}); err == nil {
				t.Fatal("expected an error")
			}
			if _, err := os.Stat(cfg.Output); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("output file should not exist, stat err = %v", err)
			}
		})
	}
}

func TestRunExport_WriteError(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Packages = []string{writePackage(t)}
	cfg.Output = filepath.Join(t.TempDir(), "missing-dir", "openapi.json")

	if err := runExport(context.Background(), cfg, &bytes.Buffer{}); err == nil {
		t.Error("expected an error writing into a missing directory")
	}
}

func TestNewServer(t *testing.T) {
	opts := openapi.DefaultOptions()
	doc, _ := openapi.NewBuilder(fhirtest.Collection(), fhirtest.CapabilityStatement(), opts).Build()
	e, err := newServer(doc, opts, zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{"/health", "application/json", `"status":"ok"`},
		{"/openapi.json", "application/json", `"openapi"`},
		{"/openapi.yaml", "application/yaml", "openapi: 3.0"},
		{"/docs", "text/html", "swagger-ui"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, tt.contentType) {
				t.Errorf("expected content type %s, got %s", tt.contentType, ct)
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("expected body to contain %q", tt.contains)
			}
			if rec.Header().Get(middleware.RequestIDHeader) == "" {
				t.Error("expected a request id header")
			}
		})
	}
}
