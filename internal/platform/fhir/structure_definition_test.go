package fhir

import (
	"testing"
)

func intPtr(i int) *int { return &i }

func TestElementDefinition_Cardinality(t *testing.T) {
	tests := []struct {
		name       string
		ed         ElementDefinition
		wantMin    int
		wantMax    int
		array      bool
		prohibited bool
	}{
		{"optional single", ElementDefinition{Min: intPtr(0), Max: "1"}, 0, 1, false, false},
		{"required single", ElementDefinition{Min: intPtr(1), Max: "1"}, 1, 1, false, false},
		{"unbounded", ElementDefinition{Min: intPtr(0), Max: "*"}, 0, -1, true, false},
		{"bounded many", ElementDefinition{Min: intPtr(1), Max: "3"}, 1, 3, true, false},
		{"profiled out", ElementDefinition{Min: intPtr(0), Max: "0"}, 0, 0, false, true},
		{"absent", ElementDefinition{}, 0, 1, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ed.MinCardinality(); got != tt.wantMin {
				t.Errorf("MinCardinality() = %d, want %d", got, tt.wantMin)
			}
			if got := tt.ed.MaxCardinality(); got != tt.wantMax {
				t.Errorf("MaxCardinality() = %d, want %d", got, tt.wantMax)
			}
			if got := tt.ed.IsArray(); got != tt.array {
				t.Errorf("IsArray() = %v, want %v", got, tt.array)
			}
			if got := tt.ed.IsProhibited(); got != tt.prohibited {
				t.Errorf("IsProhibited() = %v, want %v", got, tt.prohibited)
			}
		})
	}
}

func TestElementDefinition_NameAndChoice(t *testing.T) {
	ed := &ElementDefinition{Path: "Observation.value[x]"}
	if ed.Name() != "value[x]" {
		t.Errorf("expected value[x], got %s", ed.Name())
	}
	if !ed.IsChoice() {
		t.Error("expected value[x] to be a choice element")
	}

	root := &ElementDefinition{Path: "Patient"}
	if root.Name() != "Patient" {
		t.Errorf("expected Patient, got %s", root.Name())
	}
	if root.IsChoice() {
		t.Error("root element is not a choice element")
	}
}

func TestElementDefinition_Description(t *testing.T) {
	ed := &ElementDefinition{Short: "short text", Definition: "long definition"}
	if ed.Description() != "short text" {
		t.Errorf("expected short text, got %s", ed.Description())
	}
	ed.Short = ""
	if ed.Description() != "long definition" {
		t.Errorf("expected long definition, got %s", ed.Description())
	}
}

func TestElementType_TypeCode(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"string", "string"},
		{"HumanName", "HumanName"},
		{"http://hl7.org/fhirpath/System.String", "string"},
		{"http://hl7.org/fhirpath/System.Boolean", "boolean"},
		{"http://hl7.org/fhirpath/System.Integer", "integer"},
		{"http://hl7.org/fhirpath/System.DateTime", "dateTime"},
		{"http://hl7.org/fhirpath/System.Quantity", "string"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := (ElementType{Code: tt.code}).TypeCode(); got != tt.want {
				t.Errorf("TypeCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStructureDefinition_ElementsFallback(t *testing.T) {
	sd := &StructureDefinition{
		Differential: &StructureDifferential{Element: []*ElementDefinition{{Path: "Foo"}}},
	}
	if len(sd.Elements()) != 1 {
		t.Fatalf("expected differential elements, got %d", len(sd.Elements()))
	}

	sd.Snapshot = &StructureSnapshot{Element: []*ElementDefinition{{Path: "Foo"}, {Path: "Foo.bar"}}}
	if len(sd.Elements()) != 2 {
		t.Fatalf("expected snapshot elements, got %d", len(sd.Elements()))
	}
	if sd.RootElement().Path != "Foo" {
		t.Errorf("expected root Foo, got %s", sd.RootElement().Path)
	}
}

func TestStructureDefinition_Kinds(t *testing.T) {
	ext := &StructureDefinition{
		Kind:           "complex-type",
		Type:           "Extension",
		Derivation:     "constraint",
		BaseDefinition: "http://hl7.org/fhir/StructureDefinition/Extension",
	}
	if !ext.IsExtension() {
		t.Error("expected extension")
	}
	if !ext.IsProfile() {
		t.Error("expected profile")
	}
	if ext.BaseName() != "Extension" {
		t.Errorf("expected base Extension, got %s", ext.BaseName())
	}

	patient := &StructureDefinition{Kind: "resource", Type: "Patient", Derivation: "specialization"}
	if !patient.IsResource() || patient.IsProfile() || patient.IsPrimitive() {
		t.Errorf("unexpected classification for %+v", patient)
	}
	if patient.BaseName() != "" {
		t.Errorf("expected empty base name, got %s", patient.BaseName())
	}
}
