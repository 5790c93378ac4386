package fhir

import (
	"testing"

	"github.com/microsoft/fhir-codegen-sub025/pkg/fhirmodels"
)

func TestOperationDefinition_AppliesTo(t *testing.T) {
	tests := []struct {
		name     string
		resource []string
		target   string
		want     bool
	}{
		{"named", []string{"Patient"}, "Patient", true},
		{"other", []string{"Patient"}, "Observation", false},
		{"any resource", []string{"Resource"}, "Observation", true},
		{"any domain resource", []string{"DomainResource"}, "Observation", true},
		{"none", nil, "Patient", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := &OperationDefinition{Resource: tt.resource}
			if got := op.AppliesTo(tt.target); got != tt.want {
				t.Errorf("AppliesTo(%q) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}

func TestOperationDefinition_Params(t *testing.T) {
	op := &OperationDefinition{
		Kind: fhirmodels.OperationKindQuery,
		Parameter: []OperationParam{
			{Name: "a", Use: fhirmodels.ParameterUseIn},
			{Name: "out", Use: fhirmodels.ParameterUseOut},
			{Name: "b", Use: fhirmodels.ParameterUseIn},
		},
	}
	if !op.IsQuery() {
		t.Error("expected a named query")
	}
	in := op.Inputs()
	if len(in) != 2 || in[0].Name != "a" || in[1].Name != "b" {
		t.Errorf("Inputs = %+v", in)
	}
	if out := op.Outputs(); len(out) != 1 || out[0].Name != "out" {
		t.Errorf("Outputs = %+v", out)
	}
}

func TestOperationParam_Cardinality(t *testing.T) {
	tests := []struct {
		p         OperationParam
		required  bool
		repeating bool
	}{
		{OperationParam{Min: 0, Max: "1"}, false, false},
		{OperationParam{Min: 1, Max: "1"}, true, false},
		{OperationParam{Min: 0, Max: "*"}, false, true},
		{OperationParam{Min: 1, Max: "3"}, true, true},
		{OperationParam{Min: 0, Max: "0"}, false, false},
		{OperationParam{}, false, false},
	}
	for _, tt := range tests {
		if got := tt.p.IsRequired(); got != tt.required {
			t.Errorf("%+v IsRequired = %v", tt.p, got)
		}
		if got := tt.p.IsRepeating(); got != tt.repeating {
			t.Errorf("%+v IsRepeating = %v", tt.p, got)
		}
	}
}

func TestSearchParameter_AppliesTo(t *testing.T) {
	sp := &SearchParameter{Code: "identifier", Base: []string{"Patient", "Observation"}}
	if !sp.AppliesTo("Observation") || sp.AppliesTo("Encounter") {
		t.Error("unexpected base match")
	}
	if !IsValidSearchParamType("token") || IsValidSearchParamType("text") {
		t.Error("unexpected type validation")
	}
}

func TestLocalURL(t *testing.T) {
	tests := []struct {
		resource, code, want string
	}{
		{"Patient", "name", "http://localhost/SearchParameter/Patient-name"},
		{"Patient", "_lastUpdated", "http://localhost/SearchParameter/Patient-lastUpdated"},
	}
	for _, tt := range tests {
		if got := LocalURL(tt.resource, tt.code); got != tt.want {
			t.Errorf("LocalURL(%q, %q) = %q, want %q", tt.resource, tt.code, got, tt.want)
		}
	}
}
