package openapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi2"
	"gopkg.in/yaml.v3"

	"github.com/microsoft/fhir-codegen-sub025/internal/platform/fhir/fhirtest"
	"github.com/microsoft/fhir-codegen-sub025/pkg/fhirmodels"
)

func TestExport_InvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.SchemaLevel = "everything"

	var buf bytes.Buffer
	_, err := Export(&buf, fhirtest.Collection(), nil, opts)
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be written, got %d bytes", buf.Len())
	}
}

func TestExport_JSON(t *testing.T) {
	var buf bytes.Buffer
	stats, err := Export(&buf, fhirtest.Collection(), fhirtest.CapabilityStatement(), DefaultOptions())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if stats.Paths == 0 || stats.Operations == 0 {
		t.Errorf("unexpected statistics %+v", stats)
	}

	var spec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &spec); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if spec["openapi"] != "3.0.3" {
		t.Errorf("expected openapi 3.0.3, got %v", spec["openapi"])
	}
	if !bytes.Contains(buf.Bytes(), []byte("\n  ")) {
		t.Error("expected indented output")
	}
}

func TestExport_Minified(t *testing.T) {
	opts := DefaultOptions()
	opts.Minify = true

	var buf bytes.Buffer
	if _, err := Export(&buf, fhirtest.Collection(), nil, opts); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if bytes.Contains(buf.Bytes(), []byte("\n")) {
		t.Error("minified JSON should be a single line")
	}
}

func TestExport_OpenAPIv2(t *testing.T) {
	opts := DefaultOptions()
	opts.OpenAPIVersion = OpenAPIv2
	opts.FHIRServerURL = "https://fhir.example.org"

	var buf bytes.Buffer
	if _, err := Export(&buf, fhirtest.Collection(), fhirtest.CapabilityStatement(), opts); err != nil {
		t.Fatalf("Export: %v", err)
	}
	var spec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &spec); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if spec["swagger"] != "2.0" {
		t.Errorf("expected swagger 2.0, got %v", spec["swagger"])
	}
	if _, ok := spec["openapi"]; ok {
		t.Error("v2 output should not carry the openapi field")
	}
}

func exportV2(t *testing.T, mutate func(*Options)) []byte {
	t.Helper()
	opts := DefaultOptions()
	opts.OpenAPIVersion = OpenAPIv2
	if mutate != nil {
		mutate(&opts)
	}
	var buf bytes.Buffer
	if _, err := Export(&buf, fhirtest.Collection(), nil, opts); err != nil {
		t.Fatalf("Export: %v", err)
	}
	return buf.Bytes()
}

func TestExport_OpenAPIv2Media(t *testing.T) {
	data := exportV2(t, func(o *Options) { o.PatchMimeTypes = PatchMimeAll })
	var doc openapi2.T
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid v2 document: %v", err)
	}
	item := doc.Paths["/Patient/{logical_id}"]
	if item == nil || item.Get == nil || item.Put == nil || item.Patch == nil {
		t.Fatal("expected read, update and patch on the instance path")
	}

	read := item.Get
	if got := strings.Join(read.Produces, ","); got != fhirmodels.MimeFHIRJSON+","+fhirmodels.MimeFHIRXML {
		t.Errorf("read produces = %s", got)
	}
	if ok := read.Responses["200"]; ok == nil || ok.Schema == nil || ok.Schema.Ref != "#/definitions/Patient" {
		t.Errorf("read 200 schema = %+v", ok)
	}
	if nf := read.Responses["404"]; nf == nil || nf.Schema == nil || nf.Schema.Ref != "#/definitions/OperationOutcome" {
		t.Errorf("read 404 schema = %+v", nf)
	}

	bodySchema := func(op *openapi2.Operation) *openapi2.SchemaRef {
		for _, p := range op.Parameters {
			if p.In == "body" {
				return p.Schema
			}
		}
		return nil
	}
	if s := bodySchema(item.Put); s == nil || s.Ref != "#/definitions/Patient" {
		t.Errorf("update body schema = %+v", s)
	}

	patch := item.Patch
	wantConsumes := []string{fhirmodels.MimeJSONPatch, fhirmodels.MimeXMLPatch, fhirmodels.MimeFHIRJSON, fhirmodels.MimeFHIRXML}
	if got := strings.Join(patch.Consumes, ","); got != strings.Join(wantConsumes, ",") {
		t.Errorf("patch consumes = %s", got)
	}
	if s := bodySchema(patch); s == nil || s.Value == nil || !s.Value.Type.Is("array") {
		t.Errorf("patch body should be the JSON Patch array, got %+v", s)
	}
}

func TestExport_OpenAPIv2Deterministic(t *testing.T) {
	for _, patch := range []PatchMimeTypes{PatchMimeJSONPatch, PatchMimeAll} {
		t.Run(string(patch), func(t *testing.T) {
			mutate := func(o *Options) {
				o.PatchMimeTypes = patch
				o.FHIRMimeTypes = FHIRMimeAll
			}
			first := exportV2(t, mutate)
			for i := 0; i < 20; i++ {
				if !bytes.Equal(first, exportV2(t, mutate)) {
					t.Fatalf("rebuild %d differs", i)
				}
			}
		})
	}
}

func TestExport_YAML(t *testing.T) {
	tests := []struct {
		name   string
		minify bool
		flow   bool
	}{
		{"block", false, false},
		{"flow", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.FileFormat = FormatYAML
			opts.Minify = tt.minify

			var buf bytes.Buffer
			if _, err := Export(&buf, fhirtest.Collection(), nil, opts); err != nil {
				t.Fatalf("Export: %v", err)
			}
			out := buf.String()
			if got := strings.HasPrefix(out, "{"); got != tt.flow {
				t.Errorf("flow style = %v, want %v", got, tt.flow)
			}
			if !tt.flow && !strings.Contains(out, "openapi: 3.0.3") {
				t.Error("expected an unquoted openapi key")
			}

			var spec map[string]interface{}
			if err := yaml.Unmarshal(buf.Bytes(), &spec); err != nil {
				t.Fatalf("invalid YAML: %v", err)
			}
			if spec["openapi"] != "3.0.3" {
				t.Errorf("expected openapi 3.0.3, got %v", spec["openapi"])
			}
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestExport_WriteError(t *testing.T) {
	_, err := Export(failingWriter{}, fhirtest.Collection(), nil, DefaultOptions())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected write error, got %v", err)
	}
}
