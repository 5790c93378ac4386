package fhir_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/microsoft/fhir-codegen-sub025/internal/platform/fhir"
	"github.com/microsoft/fhir-codegen-sub025/internal/platform/fhir/fhirtest"
)

func TestDefinitionCollection_Classification(t *testing.T) {
	dc := fhirtest.Collection()

	if dc.FHIRVersion() != "4.0.1" {
		t.Errorf("expected 4.0.1, got %s", dc.FHIRVersion())
	}
	if dc.Release() != "R4" {
		t.Errorf("expected R4, got %s", dc.Release())
	}
	if !dc.IsPrimitive("string") || dc.IsComplexType("string") {
		t.Error("string should be primitive only")
	}
	if !dc.IsComplexType("HumanName") {
		t.Error("HumanName should be a complex type")
	}
	if !dc.IsResource("Patient") || dc.IsResource("Practitioner") {
		t.Error("unexpected resource classification")
	}
}

func TestDefinitionCollection_ResourcesSorted(t *testing.T) {
	dc := fhirtest.Collection()
	res := dc.Resources()
	for i := 1; i < len(res); i++ {
		if res[i-1].Name >= res[i].Name {
			t.Fatalf("resources not sorted: %s before %s", res[i-1].Name, res[i].Name)
		}
	}
}

func TestDefinitionCollection_BaseChain(t *testing.T) {
	dc := fhirtest.Collection()

	chain := dc.BaseChain("Patient")
	if len(chain) != 2 || chain[0] != "DomainResource" || chain[1] != "Resource" {
		t.Errorf("unexpected Patient chain: %v", chain)
	}
	if got := dc.BaseChain("Bundle"); len(got) != 1 || got[0] != "Resource" {
		t.Errorf("unexpected Bundle chain: %v", got)
	}
	if got := dc.BaseChain("Unknown"); len(got) != 0 {
		t.Errorf("expected empty chain, got %v", got)
	}
}

func TestDefinitionCollection_Children(t *testing.T) {
	dc := fhirtest.Collection()
	sd, ok := dc.Resource("Patient")
	if !ok {
		t.Fatal("Patient not found")
	}

	children := dc.Children(sd, "Patient.link")
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Name())
	}
	want := []string{"id", "extension", "modifierExtension", "other", "type"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("child %d: expected %s, got %s", i, want[i], names[i])
		}
	}
}

func TestDefinitionCollection_ElementByPath(t *testing.T) {
	dc := fhirtest.Collection()

	for _, p := range []string{
		"Observation.referenceRange",
		"#Observation.referenceRange",
		"http://hl7.org/fhir/StructureDefinition/Observation#Observation.referenceRange",
	} {
		sd, ed, ok := dc.ElementByPath(p)
		if !ok {
			t.Errorf("%s: not resolved", p)
			continue
		}
		if sd.Name != "Observation" || ed.Path != "Observation.referenceRange" {
			t.Errorf("%s: resolved to %s %s", p, sd.Name, ed.Path)
		}
	}

	if _, _, ok := dc.ElementByPath("#Nope.nothing"); ok {
		t.Error("expected unresolved path")
	}
}

func TestDefinitionCollection_SearchParametersForBase(t *testing.T) {
	dc := fhirtest.Collection()

	params := dc.SearchParametersForBase("Patient")
	codes := map[string]bool{}
	for _, sp := range params {
		codes[sp.Code] = true
	}
	for _, c := range []string{"name", "birthdate", "identifier"} {
		if !codes[c] {
			t.Errorf("expected %s for Patient", c)
		}
	}
	if codes["_id"] {
		t.Error("_id is based on Resource, not Patient")
	}
	if len(dc.SearchParametersForBase("Resource")) != 2 {
		t.Errorf("expected 2 Resource parameters")
	}
}

func TestDefinitionCollection_Operations(t *testing.T) {
	dc := fhirtest.Collection()

	op, ok := dc.OperationByCode("$everything")
	if !ok {
		t.Fatal("expected $everything")
	}
	if op.URL != "http://hl7.org/fhir/OperationDefinition/Patient-everything" {
		t.Errorf("unexpected URL %s", op.URL)
	}
	if _, ok := dc.OperationByURL(op.URL); !ok {
		t.Error("expected lookup by URL")
	}
	ops := dc.Operations()
	for i := 1; i < len(ops); i++ {
		if ops[i-1].Code > ops[i].Code {
			t.Fatalf("operations not sorted by code")
		}
	}
}

func TestDefinitionCollection_ProfilesByURLOnly(t *testing.T) {
	dc := fhir.NewDefinitionCollection()
	profile := &fhir.StructureDefinition{
		URL:            "http://example.org/StructureDefinition/us-patient",
		Name:           "USPatient",
		Kind:           "resource",
		Type:           "Patient",
		Derivation:     "constraint",
		BaseDefinition: "http://hl7.org/fhir/StructureDefinition/Patient",
	}
	if err := dc.AddStructureDefinition(profile); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dc.IsResource("USPatient") {
		t.Error("profiles must not be indexed as resources")
	}
	if _, ok := dc.StructureByURL(profile.URL); !ok {
		t.Error("expected profile by URL")
	}
}

func TestDefinitionCollection_MultipleCoreVersions(t *testing.T) {
	dc := fhir.NewDefinitionCollection()
	if err := dc.SetFHIRVersion("4.0.1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := dc.SetFHIRVersion("4.0.0"); err != nil {
		t.Errorf("same release should be accepted: %v", err)
	}
	err := dc.SetFHIRVersion("5.0.0")
	if !errors.Is(err, fhir.ErrMultipleCoreVersions) {
		t.Errorf("expected ErrMultipleCoreVersions, got %v", err)
	}
}

func TestDefinitionCollection_UnknownCoreVersions(t *testing.T) {
	tests := []struct {
		name    string
		first   string
		second  string
		wantErr bool
	}{
		{"same unknown version", "6.0.0-ballot1", "6.0.0-ballot1", false},
		{"different unknown versions", "6.0.0-ballot1", "7.1.0", true},
		{"unknown then known", "6.0.0-ballot1", "4.0.1", true},
		{"known then unknown", "4.0.1", "6.0.0-ballot1", true},
		{"same known release", "4.3.0", "4.3.0-snapshot1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc := fhir.NewDefinitionCollection()
			if err := dc.SetFHIRVersion(tt.first); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			err := dc.SetFHIRVersion(tt.second)
			if got := errors.Is(err, fhir.ErrMultipleCoreVersions); got != tt.wantErr {
				t.Errorf("SetFHIRVersion(%q) after %q: err = %v, wantErr %v", tt.second, tt.first, err, tt.wantErr)
			}
			if dc.FHIRVersion() != tt.first {
				t.Errorf("recorded version changed to %q", dc.FHIRVersion())
			}
		})
	}
}

func TestDefinitionCollection_AddRaw(t *testing.T) {
	dc := fhir.NewDefinitionCollection()

	bundle := []byte(`{
		"resourceType": "Bundle",
		"entry": [
			{"resource": {"resourceType": "SearchParameter", "url": "http://example.org/sp/a", "code": "a", "base": ["Patient"], "type": "token"}},
			{"resource": {"resourceType": "OperationDefinition", "url": "http://example.org/op/b", "code": "b", "kind": "operation", "system": true}},
			{"resource": {"resourceType": "ValueSet", "url": "http://example.org/vs/c"}}
		]
	}`)
	if err := dc.Add(bundle); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := dc.SearchParameterByURL("http://example.org/sp/a"); !ok {
		t.Error("expected search parameter from bundle")
	}
	if _, ok := dc.OperationByURL("http://example.org/op/b"); !ok {
		t.Error("expected operation from bundle")
	}

	if err := dc.Add([]byte(`{not json`)); err == nil {
		t.Error("expected decode error")
	}
}

func TestDefinitionCollection_ConcurrentReads(t *testing.T) {
	dc := fhirtest.Collection()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = dc.Resources()
			_ = dc.SearchParametersForBase("Observation")
			_, _ = dc.ComplexType("Reference")
		}()
	}
	wg.Wait()
}

func TestReleaseForVersion(t *testing.T) {
	tests := map[string]string{
		"1.0.2": "DSTU2",
		"3.0.2": "STU3",
		"4.0.1": "R4",
		"4.3.0": "R4B",
		"5.0.0": "R5",
		"6.0.0": "",
	}
	for version, want := range tests {
		if got := fhir.ReleaseForVersion(version); got != want {
			t.Errorf("ReleaseForVersion(%s) = %q, want %q", version, got, want)
		}
	}
}
