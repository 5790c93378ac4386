package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/microsoft/fhir-codegen-sub025/internal/platform/openapi"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.SchemaLevel != "detailed" {
		t.Errorf("expected default schema level detailed, got %s", cfg.SchemaLevel)
	}
	if !cfg.IncludeDescriptions || !cfg.IncludeHTTPCommonParams {
		t.Error("expected descriptions and common params on by default")
	}
	if cfg.MaxRecursions != 5 {
		t.Errorf("expected default max recursions 5, got %d", cfg.MaxRecursions)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("FHIR_CODEGEN_SCHEMA_LEVEL", "names")
	t.Setenv("FHIR_CODEGEN_SINGLE_RESPONSES", "true")
	t.Setenv("FHIR_CODEGEN_PACKAGES", "a.tgz,b.tgz")

	cfg, err := Load(newFlagSet(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SchemaLevel != "names" {
		t.Errorf("expected names, got %s", cfg.SchemaLevel)
	}
	if !cfg.SingleResponses {
		t.Error("expected single responses from env")
	}
	if len(cfg.Packages) != 2 || cfg.Packages[1] != "b.tgz" {
		t.Errorf("expected two packages, got %v", cfg.Packages)
	}
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("FHIR_CODEGEN_SCHEMA_LEVEL", "names")

	cfg, err := Load(newFlagSet(t,
		"--schema-level", "none",
		"--package", "core.tgz",
		"--interaction", "read=false",
		"--interaction", "create-conditional=true",
		"--minify",
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SchemaLevel != "none" {
		t.Errorf("flag should win over env, got %s", cfg.SchemaLevel)
	}
	if len(cfg.Interactions) != 2 {
		t.Errorf("expected two interaction settings, got %v", cfg.Interactions)
	}
	if !cfg.Minify {
		t.Error("expected minify")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codegen.yaml")
	data := "SCHEMA_STYLE: type-references\nNAMING_CONVENTION: camel\nEXPORT_KEYS:\n  - Patient\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(newFlagSet(t, "--config", path, "--naming", "upper"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SchemaStyle != "type-references" {
		t.Errorf("expected type-references from file, got %s", cfg.SchemaStyle)
	}
	if cfg.NamingConvention != "upper" {
		t.Errorf("flag should win over file, got %s", cfg.NamingConvention)
	}
	if len(cfg.ExportKeys) != 1 || cfg.ExportKeys[0] != "Patient" {
		t.Errorf("expected export keys from file, got %v", cfg.ExportKeys)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(newFlagSet(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	if err == nil {
		t.Fatal("expected error for a missing config file")
	}
}

func TestConfig_ToOptions(t *testing.T) {
	cfg, err := Load(newFlagSet(t,
		"--format", "YAML",
		"--interaction", "update-conditional=true",
		"--resource-interactions", "Observation=read|search-type",
		"--server-url", "https://fhir.example.org",
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opts, err := cfg.ToOptions()
	if err != nil {
		t.Fatalf("ToOptions: %v", err)
	}
	if opts.FileFormat != openapi.FormatYAML {
		t.Errorf("expected yaml, got %s", opts.FileFormat)
	}
	if opts.Interaction(openapi.InteractionUpdateConditional) != openapi.True {
		t.Error("expected update-conditional=true")
	}
	got := opts.ResourceInteractions["Observation"]
	if len(got) != 2 || got[0] != openapi.InteractionRead || got[1] != openapi.InteractionSearchType {
		t.Errorf("unexpected resource interactions %v", got)
	}
	if opts.FHIRServerURL != "https://fhir.example.org" {
		t.Errorf("unexpected server URL %q", opts.FHIRServerURL)
	}
}

func TestConfig_ToOptionsErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad enum", func(c *Config) { c.SchemaLevel = "everything" }},
		{"bad tri-state", func(c *Config) { c.Interactions = []string{"read=maybe"} }},
		{"missing value", func(c *Config) { c.Interactions = []string{"read"} }},
		{"unknown interaction", func(c *Config) { c.Interactions = []string{"teleport=true"} }},
		{"bad resource entry", func(c *Config) { c.ResourceInteractions = []string{"=read"} }},
		{"unknown resource interaction", func(c *Config) { c.ResourceInteractions = []string{"Observation=read|teleport"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(nil)
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			if _, err := cfg.ToOptions(); !errors.Is(err, openapi.ErrInvalidOptions) {
				t.Errorf("expected ErrInvalidOptions, got %v", err)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); !errors.Is(err, ErrNoPackages) {
		t.Errorf("expected ErrNoPackages, got %v", err)
	}
	cfg.Packages = []string{"core.tgz"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}
