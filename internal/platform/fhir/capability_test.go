package fhir

import (
	"testing"

	"github.com/microsoft/fhir-codegen-sub025/pkg/fhirmodels"
)

func testCapabilityStatement() *CapabilityStatement {
	return &CapabilityStatement{
		ResourceType:   "CapabilityStatement",
		Implementation: &CapabilityImplementation{Description: "test", URL: "http://localhost:8000/fhir"},
		Rest: []CapabilityRest{
			{Mode: "client", Resource: []ResourceCapability{{Type: "Encounter"}}},
			{
				Mode: "server",
				Resource: []ResourceCapability{
					{
						Type:              "Patient",
						Interaction:       []InteractionCapability{{Code: fhirmodels.InteractionRead}, {Code: fhirmodels.InteractionDelete}},
						ConditionalDelete: fhirmodels.ConditionalDeleteMultiple,
					},
					{Type: "Observation", ConditionalDelete: "sometimes"},
				},
				Interaction: []InteractionCapability{{Code: fhirmodels.InteractionBatch}},
				Operation:   []OperationCapability{{Name: "versions", Definition: "http://hl7.org/fhir/OperationDefinition/CapabilityStatement-versions"}},
			},
		},
	}
}

func TestCapabilityStatement_ServerRest(t *testing.T) {
	cs := testCapabilityStatement()
	if rest := cs.ServerRest(); rest == nil || rest.Mode != "server" {
		t.Fatalf("expected the server rest entry, got %+v", rest)
	}

	noMode := &CapabilityStatement{Rest: []CapabilityRest{{Resource: []ResourceCapability{{Type: "Patient"}}}}}
	if rest := noMode.ServerRest(); rest == nil || len(rest.Resource) != 1 {
		t.Error("should fall back to the first rest entry")
	}

	var nilCS *CapabilityStatement
	if nilCS.ServerRest() != nil {
		t.Error("nil statement has no rest entry")
	}
	if nilCS.HasResource("Patient") || nilCS.HasSystemInteraction(fhirmodels.InteractionBatch) {
		t.Error("nil statement declares nothing")
	}
	if nilCS.BaseURL() != "" {
		t.Error("nil statement has no base URL")
	}
}

func TestCapabilityStatement_Lookups(t *testing.T) {
	cs := testCapabilityStatement()

	if !cs.HasResource("Patient") {
		t.Error("expected Patient")
	}
	if cs.HasResource("Encounter") {
		t.Error("client-mode resources are not served")
	}
	rc, ok := cs.Resource("Patient")
	if !ok {
		t.Fatal("expected Patient entry")
	}
	if !rc.HasInteraction(fhirmodels.InteractionRead) || rc.HasInteraction(fhirmodels.InteractionUpdate) {
		t.Error("unexpected interaction set")
	}
	if !cs.HasSystemInteraction(fhirmodels.InteractionBatch) || cs.HasSystemInteraction(fhirmodels.InteractionTransaction) {
		t.Error("unexpected system interactions")
	}
	if ops := cs.SystemOperations(); len(ops) != 1 || ops[0].Name != "versions" {
		t.Errorf("SystemOperations = %+v", ops)
	}
	if got := cs.BaseURL(); got != "http://localhost:8000/fhir" {
		t.Errorf("BaseURL = %q", got)
	}
}

func TestResourceCapability_ConditionalDeleteMode(t *testing.T) {
	cs := testCapabilityStatement()
	tests := []struct {
		resource string
		want     string
	}{
		{"Patient", fhirmodels.ConditionalDeleteMultiple},
		{"Observation", fhirmodels.ConditionalDeleteNotSupported},
	}
	for _, tt := range tests {
		rc, _ := cs.Resource(tt.resource)
		if got := rc.ConditionalDeleteMode(); got != tt.want {
			t.Errorf("%s: ConditionalDeleteMode = %q, want %q", tt.resource, got, tt.want)
		}
	}
}

func TestSmartConfiguration_Scopes(t *testing.T) {
	var none *SmartConfiguration
	if none.Scopes() != nil {
		t.Error("nil configuration has no scopes")
	}
	sc := &SmartConfiguration{ScopesSupported: []string{"openid", "launch"}}
	if got := sc.Scopes(); len(got) != 2 || got[1] != "launch" {
		t.Errorf("Scopes = %v", got)
	}
}
