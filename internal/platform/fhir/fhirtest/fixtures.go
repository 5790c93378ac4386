// Package fhirtest provides a small, self-consistent set of FHIR R4 core
// definitions for tests that need a populated DefinitionCollection.
package fhirtest

import (
	"github.com/microsoft/fhir-codegen-sub025/internal/platform/fhir"
	"github.com/microsoft/fhir-codegen-sub025/pkg/fhirmodels"
)

// CoreVersion is the FHIR version of the fixture definitions.
const CoreVersion = "4.0.1"

const (
	sdBase = "http://hl7.org/fhir/StructureDefinition/"
	spBase = "http://hl7.org/fhir/SearchParameter/"
	opBase = "http://hl7.org/fhir/OperationDefinition/"

	systemString = fhirmodels.FHIRPathSystemPrefix + "String"
)

// Collection returns a DefinitionCollection holding primitives, a handful of
// complex types (including the self-referential Extension and the
// Reference/Identifier cycle), the abstract Resource and DomainResource, and
// the Patient, Observation, Bundle, OperationOutcome and Parameters
// resources with search parameters and operations.
func Collection() *fhir.DefinitionCollection {
	dc := fhir.NewDefinitionCollection()
	for _, sd := range Structures() {
		if err := dc.AddStructureDefinition(sd); err != nil {
			panic(err)
		}
	}
	for _, sp := range SearchParameters() {
		if err := dc.AddSearchParameter(sp); err != nil {
			panic(err)
		}
	}
	for _, op := range Operations() {
		if err := dc.AddOperationDefinition(op); err != nil {
			panic(err)
		}
	}
	return dc
}

func intPtr(i int) *int { return &i }

func el(path string, min int, max string, types ...string) *fhir.ElementDefinition {
	ed := &fhir.ElementDefinition{
		ID:    path,
		Path:  path,
		Short: path,
		Min:   intPtr(min),
		Max:   max,
	}
	for _, t := range types {
		ed.Type = append(ed.Type, fhir.ElementType{Code: t})
	}
	return ed
}

func ref(path string, min int, max string, targets ...string) *fhir.ElementDefinition {
	ed := el(path, min, max)
	et := fhir.ElementType{Code: "Reference"}
	for _, t := range targets {
		et.TargetProfile = append(et.TargetProfile, sdBase+t)
	}
	ed.Type = []fhir.ElementType{et}
	return ed
}

func contentRef(path string, min int, max, target string) *fhir.ElementDefinition {
	ed := el(path, min, max)
	ed.ContentReference = "#" + target
	return ed
}

func summary(ed *fhir.ElementDefinition) *fhir.ElementDefinition {
	ed.IsSummary = true
	return ed
}

func modifier(ed *fhir.ElementDefinition) *fhir.ElementDefinition {
	ed.IsModifier = true
	return ed
}

func structure(kind, name, base string, abstract bool, elements ...*fhir.ElementDefinition) *fhir.StructureDefinition {
	sd := &fhir.StructureDefinition{
		ResourceType: "StructureDefinition",
		ID:           name,
		URL:          sdBase + name,
		Name:         name,
		Status:       "active",
		Kind:         kind,
		Abstract:     abstract,
		Type:         name,
		Derivation:   fhirmodels.DerivationSpecialization,
		Description:  "Base StructureDefinition for " + name,
		FHIRVersion:  CoreVersion,
		Snapshot:     &fhir.StructureSnapshot{Element: elements},
	}
	if base != "" {
		sd.BaseDefinition = sdBase + base
	}
	return sd
}

func primitive(name string) *fhir.StructureDefinition {
	return structure(fhirmodels.KindPrimitiveType, name, "Element", false,
		el(name, 0, "*"),
		el(name+".id", 0, "1", systemString),
		el(name+".extension", 0, "*", "Extension"),
	)
}

func complexType(name string, elements ...*fhir.ElementDefinition) *fhir.StructureDefinition {
	all := []*fhir.ElementDefinition{
		el(name, 0, "*"),
		el(name+".id", 0, "1", systemString),
		el(name+".extension", 0, "*", "Extension"),
	}
	return structure(fhirmodels.KindComplexType, name, "Element", false, append(all, elements...)...)
}

func resourceHeader(name string) []*fhir.ElementDefinition {
	return []*fhir.ElementDefinition{
		el(name, 0, "*"),
		summary(el(name+".id", 0, "1", systemString)),
		summary(el(name+".meta", 0, "1", "Meta")),
		modifier(el(name+".implicitRules", 0, "1", "uri")),
		el(name+".language", 0, "1", "code"),
	}
}

func domainResource(name string, elements ...*fhir.ElementDefinition) *fhir.StructureDefinition {
	all := append(resourceHeader(name),
		el(name+".extension", 0, "*", "Extension"),
		modifier(el(name+".modifierExtension", 0, "*", "Extension")),
	)
	return structure(fhirmodels.KindResource, name, "DomainResource", false, append(all, elements...)...)
}

// Structures returns the fixture structure definitions.
func Structures() []*fhir.StructureDefinition {
	var out []*fhir.StructureDefinition
	for _, p := range []string{"boolean", "integer", "decimal", "string", "uri", "code", "id", "date", "dateTime", "instant", "markdown"} {
		out = append(out, primitive(p))
	}

	element := structure(fhirmodels.KindComplexType, "Element", "", true,
		el("Element", 0, "*"),
		el("Element.id", 0, "1", systemString),
		el("Element.extension", 0, "*", "Extension"),
	)
	backbone := structure(fhirmodels.KindComplexType, "BackboneElement", "Element", true,
		el("BackboneElement", 0, "*"),
		el("BackboneElement.id", 0, "1", systemString),
		el("BackboneElement.extension", 0, "*", "Extension"),
		el("BackboneElement.modifierExtension", 0, "*", "Extension"),
	)
	extension := complexType("Extension",
		el("Extension.url", 1, "1", systemString),
		el("Extension.value[x]", 0, "1", "string", "boolean", "integer", "code", "Coding", "Reference"),
	)
	out = append(out, element, backbone, extension,
		complexType("Coding",
			summary(el("Coding.system", 0, "1", "uri")),
			summary(el("Coding.version", 0, "1", "string")),
			summary(el("Coding.code", 0, "1", "code")),
			summary(el("Coding.display", 0, "1", "string")),
			summary(el("Coding.userSelected", 0, "1", "boolean")),
		),
		complexType("CodeableConcept",
			summary(el("CodeableConcept.coding", 0, "*", "Coding")),
			summary(el("CodeableConcept.text", 0, "1", "string")),
		),
		complexType("Period",
			summary(el("Period.start", 0, "1", "dateTime")),
			summary(el("Period.end", 0, "1", "dateTime")),
		),
		complexType("Identifier",
			modifier(el("Identifier.use", 0, "1", "code")),
			el("Identifier.type", 0, "1", "CodeableConcept"),
			el("Identifier.system", 0, "1", "uri"),
			el("Identifier.value", 0, "1", "string"),
			el("Identifier.period", 0, "1", "Period"),
			ref("Identifier.assigner", 0, "1", "Organization"),
		),
		complexType("Reference",
			el("Reference.reference", 0, "1", "string"),
			el("Reference.type", 0, "1", "uri"),
			el("Reference.identifier", 0, "1", "Identifier"),
			el("Reference.display", 0, "1", "string"),
		),
		complexType("HumanName",
			el("HumanName.use", 0, "1", "code"),
			el("HumanName.text", 0, "1", "string"),
			el("HumanName.family", 0, "1", "string"),
			el("HumanName.given", 0, "*", "string"),
		),
		complexType("Meta",
			el("Meta.versionId", 0, "1", "id"),
			el("Meta.lastUpdated", 0, "1", "instant"),
			el("Meta.source", 0, "1", "uri"),
			el("Meta.profile", 0, "*", "uri"),
			el("Meta.tag", 0, "*", "Coding"),
		),
	)

	out = append(out,
		structure(fhirmodels.KindResource, "Resource", "", true, resourceHeader("Resource")...),
		structure(fhirmodels.KindResource, "DomainResource", "Resource", true,
			append(resourceHeader("DomainResource"),
				el("DomainResource.extension", 0, "*", "Extension"),
				modifier(el("DomainResource.modifierExtension", 0, "*", "Extension")),
			)...,
		),
		domainResource("Patient",
			summary(el("Patient.identifier", 0, "*", "Identifier")),
			modifier(summary(el("Patient.active", 0, "1", "boolean"))),
			summary(el("Patient.name", 0, "*", "HumanName")),
			summary(el("Patient.gender", 0, "1", "code")),
			summary(el("Patient.birthDate", 0, "1", "date")),
			el("Patient.contact", 0, "*", "BackboneElement"),
			el("Patient.contact.id", 0, "1", systemString),
			el("Patient.contact.extension", 0, "*", "Extension"),
			el("Patient.contact.modifierExtension", 0, "*", "Extension"),
			el("Patient.contact.name", 0, "1", "HumanName"),
			el("Patient.contact.gender", 0, "1", "code"),
			ref("Patient.managingOrganization", 0, "1", "Organization"),
			modifier(summary(el("Patient.link", 0, "*", "BackboneElement"))),
			el("Patient.link.id", 0, "1", systemString),
			el("Patient.link.extension", 0, "*", "Extension"),
			el("Patient.link.modifierExtension", 0, "*", "Extension"),
			ref("Patient.link.other", 1, "1", "Patient"),
			el("Patient.link.type", 1, "1", "code"),
			el("Patient.photo", 0, "0", "string"),
		),
		domainResource("Observation",
			summary(el("Observation.identifier", 0, "*", "Identifier")),
			modifier(summary(el("Observation.status", 1, "1", "code"))),
			summary(el("Observation.code", 1, "1", "CodeableConcept")),
			summary(ref("Observation.subject", 0, "1", "Patient")),
			summary(el("Observation.effective[x]", 0, "1", "dateTime")),
			summary(el("Observation.value[x]", 0, "1", "string", "boolean", "integer", "CodeableConcept", "Period")),
			el("Observation.referenceRange", 0, "*", "BackboneElement"),
			el("Observation.referenceRange.id", 0, "1", systemString),
			el("Observation.referenceRange.extension", 0, "*", "Extension"),
			el("Observation.referenceRange.modifierExtension", 0, "*", "Extension"),
			el("Observation.referenceRange.text", 0, "1", "string"),
			summary(el("Observation.component", 0, "*", "BackboneElement")),
			el("Observation.component.id", 0, "1", systemString),
			el("Observation.component.extension", 0, "*", "Extension"),
			el("Observation.component.modifierExtension", 0, "*", "Extension"),
			summary(el("Observation.component.code", 1, "1", "CodeableConcept")),
			summary(el("Observation.component.value[x]", 0, "1", "string", "CodeableConcept")),
			contentRef("Observation.component.referenceRange", 0, "*", "Observation.referenceRange"),
		),
		structure(fhirmodels.KindResource, "Bundle", "Resource", false,
			append(resourceHeader("Bundle"),
				summary(el("Bundle.type", 1, "1", "code")),
				summary(el("Bundle.total", 0, "1", "integer")),
				summary(el("Bundle.entry", 0, "*", "BackboneElement")),
				el("Bundle.entry.id", 0, "1", systemString),
				el("Bundle.entry.extension", 0, "*", "Extension"),
				el("Bundle.entry.modifierExtension", 0, "*", "Extension"),
				summary(el("Bundle.entry.fullUrl", 0, "1", "uri")),
				el("Bundle.entry.resource", 0, "1", "Resource"),
			)...,
		),
		domainResource("OperationOutcome",
			summary(el("OperationOutcome.issue", 1, "*", "BackboneElement")),
			el("OperationOutcome.issue.id", 0, "1", systemString),
			el("OperationOutcome.issue.extension", 0, "*", "Extension"),
			el("OperationOutcome.issue.modifierExtension", 0, "*", "Extension"),
			summary(el("OperationOutcome.issue.severity", 1, "1", "code")),
			summary(el("OperationOutcome.issue.code", 1, "1", "code")),
			summary(el("OperationOutcome.issue.diagnostics", 0, "1", "string")),
		),
		structure(fhirmodels.KindResource, "Parameters", "Resource", false,
			append(resourceHeader("Parameters"),
				summary(el("Parameters.parameter", 0, "*", "BackboneElement")),
				el("Parameters.parameter.id", 0, "1", systemString),
				el("Parameters.parameter.extension", 0, "*", "Extension"),
				el("Parameters.parameter.modifierExtension", 0, "*", "Extension"),
				summary(el("Parameters.parameter.name", 1, "1", "string")),
				summary(el("Parameters.parameter.value[x]", 0, "1", "string", "boolean", "integer")),
				summary(el("Parameters.parameter.resource", 0, "1", "Resource")),
				summary(contentRef("Parameters.parameter.part", 0, "*", "Parameters.parameter")),
			)...,
		),
	)
	return out
}

func searchParam(id, code, typ, description string, base ...string) *fhir.SearchParameter {
	return &fhir.SearchParameter{
		ResourceType: "SearchParameter",
		ID:           id,
		URL:          spBase + id,
		Name:         code,
		Status:       "active",
		Description:  description,
		Code:         code,
		Base:         base,
		Type:         typ,
	}
}

// SearchParameters returns the fixture search parameters.
func SearchParameters() []*fhir.SearchParameter {
	return []*fhir.SearchParameter{
		searchParam("Resource-id", "_id", fhirmodels.SearchTypeToken, "Logical id of this artifact", "Resource"),
		searchParam("Resource-lastUpdated", "_lastUpdated", fhirmodels.SearchTypeDate, "When the resource version last changed", "Resource"),
		searchParam("Patient-name", "name", fhirmodels.SearchTypeString, "A server defined search that may match any of the string fields in the HumanName", "Patient"),
		searchParam("Patient-birthdate", "birthdate", fhirmodels.SearchTypeDate, "The patient's date of birth", "Patient"),
		searchParam("clinical-identifier", "identifier", fhirmodels.SearchTypeToken, "Multiple Resources: [Patient](patient.html): A patient identifier", "Patient", "Observation"),
		searchParam("Observation-code", "code", fhirmodels.SearchTypeToken, "The code of the observation type", "Observation"),
		searchParam("Observation-subject", "subject", fhirmodels.SearchTypeReference, "The subject that the observation is about", "Observation"),
	}
}

// Operations returns the fixture operation definitions.
func Operations() []*fhir.OperationDefinition {
	return []*fhir.OperationDefinition{
		{
			ResourceType: "OperationDefinition",
			ID:           "Patient-everything",
			URL:          opBase + "Patient-everything",
			Name:         "Fetch Patient Record",
			Kind:         fhirmodels.OperationKindOperation,
			Code:         "everything",
			Type:         true,
			Instance:     true,
			Resource:     []string{"Patient"},
			Description:  "Return all the information related to one or more patients",
			Parameter: []fhir.OperationParam{
				{Name: "start", Use: "in", Min: 0, Max: "1", Type: "date"},
				{Name: "end", Use: "in", Min: 0, Max: "1", Type: "date"},
				{Name: "_count", Use: "in", Min: 0, Max: "1", Type: "integer"},
				{Name: "return", Use: "out", Min: 1, Max: "1", Type: "Bundle"},
			},
		},
		{
			ResourceType: "OperationDefinition",
			ID:           "Resource-validate",
			URL:          opBase + "Resource-validate",
			Name:         "Validate a resource",
			Kind:         fhirmodels.OperationKindOperation,
			Code:         "validate",
			Type:         true,
			Instance:     true,
			Resource:     []string{"Resource"},
			Parameter: []fhir.OperationParam{
				{Name: "resource", Use: "in", Min: 0, Max: "1", Type: "Resource"},
				{Name: "mode", Use: "in", Min: 0, Max: "1", Type: "code"},
				{Name: "profile", Use: "in", Min: 0, Max: "1", Type: "uri"},
				{Name: "return", Use: "out", Min: 1, Max: "1", Type: "OperationOutcome"},
			},
		},
		{
			ResourceType: "OperationDefinition",
			ID:           "Patient-match",
			URL:          opBase + "Patient-match",
			Name:         "Find patient matches using MPI based logic",
			Kind:         fhirmodels.OperationKindOperation,
			Code:         "match",
			Type:         true,
			Resource:     []string{"Patient"},
			Parameter: []fhir.OperationParam{
				{Name: "resource", Use: "in", Min: 1, Max: "1", Type: "Resource"},
				{Name: "onlyCertainMatches", Use: "in", Min: 0, Max: "1", Type: "boolean"},
				{Name: "count", Use: "in", Min: 0, Max: "1", Type: "integer"},
				{Name: "return", Use: "out", Min: 1, Max: "1", Type: "Bundle"},
			},
		},
		{
			ResourceType: "OperationDefinition",
			ID:           "Resource-meta-add",
			URL:          opBase + "Resource-meta-add",
			Name:         "Add profiles, tags, and security labels to a resource",
			Kind:         fhirmodels.OperationKindOperation,
			Code:         "meta-add",
			AffectsState: true,
			Instance:     true,
			Resource:     []string{"Resource"},
			Parameter: []fhir.OperationParam{
				{Name: "meta", Use: "in", Min: 1, Max: "1", Type: "Meta"},
				{Name: "return", Use: "out", Min: 1, Max: "1", Type: "Meta"},
			},
		},
		{
			ResourceType: "OperationDefinition",
			ID:           "CapabilityStatement-versions",
			URL:          opBase + "CapabilityStatement-versions",
			Name:         "Discover what versions a server supports",
			Kind:         fhirmodels.OperationKindOperation,
			Code:         "versions",
			System:       true,
			Parameter: []fhir.OperationParam{
				{Name: "version", Use: "out", Min: 1, Max: "*", Type: "code"},
				{Name: "default", Use: "out", Min: 1, Max: "1", Type: "code"},
			},
		},
		{
			ResourceType: "OperationDefinition",
			ID:           "Observation-recent",
			URL:          "http://example.org/OperationDefinition/Observation-recent",
			Name:         "Recent observations",
			Kind:         fhirmodels.OperationKindQuery,
			Code:         "recent",
			Type:         true,
			Resource:     []string{"Observation"},
			Parameter: []fhir.OperationParam{
				{Name: "since", Use: "in", Min: 0, Max: "1", Type: "date", SearchType: fhirmodels.SearchTypeDate},
				{Name: "category", Use: "in", Min: 0, Max: "*", Type: "string", SearchType: fhirmodels.SearchTypeToken},
				{Name: "limit", Use: "in", Min: 0, Max: "1", Type: "integer"},
				{Name: "return", Use: "out", Min: 1, Max: "1", Type: "Bundle"},
			},
		},
	}
}

// interactions builds capability interaction entries from codes.
func interactions(codes ...string) []fhir.InteractionCapability {
	out := make([]fhir.InteractionCapability, 0, len(codes))
	for _, c := range codes {
		out = append(out, fhir.InteractionCapability{Code: c})
	}
	return out
}

// CapabilityStatement returns a server capability statement declaring
// Patient with read, update and conditional update, plus the everything
// operation and the name and _lastUpdated search parameters.
func CapabilityStatement() *fhir.CapabilityStatement {
	return &fhir.CapabilityStatement{
		ResourceType: "CapabilityStatement",
		FHIRVersion:  CoreVersion,
		Format:       []string{"json", "xml"},
		PatchFormat:  []string{fhirmodels.MimeJSONPatch},
		Implementation: &fhir.CapabilityImplementation{
			Description: "fixture server",
			URL:         "https://fhir.example.org/r4",
		},
		Rest: []fhir.CapabilityRest{{
			Mode: "server",
			Resource: []fhir.ResourceCapability{{
				Type:              "Patient",
				Interaction:       interactions(fhirmodels.InteractionRead, fhirmodels.InteractionUpdate),
				ConditionalUpdate: true,
				SearchParam: []fhir.SearchParamCapability{
					{Name: "name", Type: fhirmodels.SearchTypeString, Definition: spBase + "Patient-name"},
					{Name: "_lastUpdated", Type: fhirmodels.SearchTypeDate, Definition: spBase + "Resource-lastUpdated"},
					{Name: "general-practitioner", Type: fhirmodels.SearchTypeReference, Documentation: "See [Practitioner](practitioner.html)"},
					{Name: "name", Type: fhirmodels.SearchTypeToken, Documentation: "duplicate code, ignored"},
				},
				Operation: []fhir.OperationCapability{
					{Name: "everything", Definition: opBase + "Patient-everything"},
				},
			}},
			Interaction: interactions(fhirmodels.InteractionTransaction),
		}},
	}
}
