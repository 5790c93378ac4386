package fhir

import (
	"strconv"
	"strings"

	"github.com/microsoft/fhir-codegen-sub025/pkg/fhirmodels"
)

// ============================================================================
// StructureDefinition Models
// ============================================================================

// StructureDefinition is the subset of a FHIR StructureDefinition resource
// needed to describe primitive types, complex types, and resources.
type StructureDefinition struct {
	ResourceType   string                 `json:"resourceType"`
	ID             string                 `json:"id,omitempty"`
	URL            string                 `json:"url"`
	Version        string                 `json:"version,omitempty"`
	Name           string                 `json:"name"`
	Title          string                 `json:"title,omitempty"`
	Status         string                 `json:"status,omitempty"`
	Kind           string                 `json:"kind"` // primitive-type, complex-type, resource, logical
	Abstract       bool                   `json:"abstract"`
	Type           string                 `json:"type"` // e.g., "Patient", "Observation"
	BaseDefinition string                 `json:"baseDefinition,omitempty"`
	Derivation     string                 `json:"derivation,omitempty"` // specialization, constraint
	Description    string                 `json:"description,omitempty"`
	Purpose        string                 `json:"purpose,omitempty"`
	FHIRVersion    string                 `json:"fhirVersion,omitempty"`
	Snapshot       *StructureSnapshot     `json:"snapshot,omitempty"`
	Differential   *StructureDifferential `json:"differential,omitempty"`
}

// StructureSnapshot contains the full set of element definitions for the structure.
type StructureSnapshot struct {
	Element []*ElementDefinition `json:"element"`
}

// StructureDifferential contains the delta of element definitions relative to the base.
type StructureDifferential struct {
	Element []*ElementDefinition `json:"element"`
}

// ElementDefinition describes a single element within a StructureDefinition.
type ElementDefinition struct {
	ID               string          `json:"id,omitempty"`
	Path             string          `json:"path"`
	Short            string          `json:"short,omitempty"`
	Definition       string          `json:"definition,omitempty"`
	Comment          string          `json:"comment,omitempty"`
	Min              *int            `json:"min,omitempty"`
	Max              string          `json:"max,omitempty"`
	Base             *ElementBase    `json:"base,omitempty"`
	ContentReference string          `json:"contentReference,omitempty"`
	Type             []ElementType   `json:"type,omitempty"`
	IsModifier       bool            `json:"isModifier,omitempty"`
	IsSummary        bool            `json:"isSummary,omitempty"`
	MustSupport      bool            `json:"mustSupport,omitempty"`
	Binding          *ElementBinding `json:"binding,omitempty"`
}

// ElementBase records where an element was originally defined.
type ElementBase struct {
	Path string `json:"path"`
	Min  int    `json:"min"`
	Max  string `json:"max"`
}

// ElementType describes a datatype for an element.
type ElementType struct {
	Code          string   `json:"code"`
	Profile       []string `json:"profile,omitempty"`
	TargetProfile []string `json:"targetProfile,omitempty"`
}

// ElementBinding describes a terminology binding for an element.
type ElementBinding struct {
	Strength string `json:"strength"` // required, extensible, preferred, example
	ValueSet string `json:"valueSet,omitempty"`
}

// Elements returns the snapshot elements, falling back to the differential
// for structures that were published without a snapshot.
func (sd *StructureDefinition) Elements() []*ElementDefinition {
	if sd.Snapshot != nil && len(sd.Snapshot.Element) > 0 {
		return sd.Snapshot.Element
	}
	if sd.Differential != nil {
		return sd.Differential.Element
	}
	return nil
}

// RootElement returns the element whose path equals the structure type, or
// nil when the structure carries no elements.
func (sd *StructureDefinition) RootElement() *ElementDefinition {
	for _, ed := range sd.Elements() {
		if !strings.Contains(ed.Path, ".") {
			return ed
		}
	}
	return nil
}

// IsPrimitive reports whether the structure defines a primitive datatype.
func (sd *StructureDefinition) IsPrimitive() bool {
	return sd.Kind == fhirmodels.KindPrimitiveType
}

// IsResource reports whether the structure defines a resource.
func (sd *StructureDefinition) IsResource() bool {
	return sd.Kind == fhirmodels.KindResource
}

// IsProfile reports whether the structure constrains another definition.
func (sd *StructureDefinition) IsProfile() bool {
	return sd.Derivation == fhirmodels.DerivationConstraint
}

// IsExtension reports whether the structure defines an extension.
func (sd *StructureDefinition) IsExtension() bool {
	return sd.Type == fhirmodels.TypeExtension && sd.IsProfile()
}

// BaseName returns the name portion of the base definition canonical.
func (sd *StructureDefinition) BaseName() string {
	if sd.BaseDefinition == "" {
		return ""
	}
	return sd.BaseDefinition[strings.LastIndex(sd.BaseDefinition, "/")+1:]
}

// ============================================================================
// ElementDefinition helpers
// ============================================================================

// MinCardinality returns the element minimum cardinality (0 when absent).
func (ed *ElementDefinition) MinCardinality() int {
	if ed.Min == nil {
		return 0
	}
	return *ed.Min
}

// MaxCardinality returns the element maximum cardinality; -1 means unbounded.
// An absent max is treated as 1.
func (ed *ElementDefinition) MaxCardinality() int {
	switch ed.Max {
	case "":
		return 1
	case "*":
		return -1
	}
	n, err := strconv.Atoi(ed.Max)
	if err != nil {
		return 1
	}
	return n
}

// IsArray reports whether the element repeats.
func (ed *ElementDefinition) IsArray() bool {
	max := ed.MaxCardinality()
	return max == -1 || max > 1
}

// IsProhibited reports whether the element was profiled out (max = 0).
func (ed *ElementDefinition) IsProhibited() bool {
	return ed.MaxCardinality() == 0
}

// Name returns the last path segment, e.g. "value[x]" for "Observation.value[x]".
func (ed *ElementDefinition) Name() string {
	return ed.Path[strings.LastIndex(ed.Path, ".")+1:]
}

// IsChoice reports whether the element is a polymorphic [x] element.
func (ed *ElementDefinition) IsChoice() bool {
	return strings.HasSuffix(ed.Path, "[x]")
}

// Description returns the most specific human text available.
func (ed *ElementDefinition) Description() string {
	if ed.Short != "" {
		return ed.Short
	}
	return ed.Definition
}

// TypeCode normalizes an element type code. FHIRPath system types (used on
// id and extension.url elements) map to their FHIR primitive equivalents.
func (et ElementType) TypeCode() string {
	if !strings.HasPrefix(et.Code, fhirmodels.FHIRPathSystemPrefix) {
		return et.Code
	}
	switch strings.TrimPrefix(et.Code, fhirmodels.FHIRPathSystemPrefix) {
	case "Boolean":
		return "boolean"
	case "Integer":
		return "integer"
	case "Decimal":
		return "decimal"
	case "Date":
		return "date"
	case "DateTime":
		return "dateTime"
	case "Time":
		return "time"
	default:
		return "string"
	}
}
