package fhir

import (
	"github.com/microsoft/fhir-codegen-sub025/pkg/fhirmodels"
)

// ---------------------------------------------------------------------------
// OperationDefinition types
// ---------------------------------------------------------------------------

// OperationParam describes a single input or output parameter for an
// OperationDefinition.
type OperationParam struct {
	Name          string           `json:"name"`
	Use           string           `json:"use"` // "in" or "out"
	Min           int              `json:"min"`
	Max           string           `json:"max"` // "1", "*"
	Type          string           `json:"type,omitempty"`
	SearchType    string           `json:"searchType,omitempty"`
	Documentation string           `json:"documentation,omitempty"`
	Part          []OperationParam `json:"part,omitempty"`
}

// OperationDefinition is the FHIR OperationDefinition resource.
type OperationDefinition struct {
	ResourceType string           `json:"resourceType"`
	ID           string           `json:"id,omitempty"`
	URL          string           `json:"url"`
	Name         string           `json:"name"`
	Title        string           `json:"title,omitempty"`
	Status       string           `json:"status,omitempty"`
	Kind         string           `json:"kind"` // "operation" or "query"
	Code         string           `json:"code"` // e.g., "validate", "meta"
	AffectsState bool             `json:"affectsState,omitempty"`
	System       bool             `json:"system"`
	Type         bool             `json:"type"`
	Instance     bool             `json:"instance"`
	Resource     []string         `json:"resource,omitempty"`
	Parameter    []OperationParam `json:"parameter,omitempty"`
	Description  string           `json:"description,omitempty"`
}

// IsQuery reports whether the operation is a named query.
func (op *OperationDefinition) IsQuery() bool {
	return op.Kind == fhirmodels.OperationKindQuery
}

// AppliesTo reports whether the operation is defined on resource, either by
// naming it or by naming one of the generic Resource/DomainResource bases.
func (op *OperationDefinition) AppliesTo(resource string) bool {
	for _, r := range op.Resource {
		if r == resource || r == fhirmodels.TypeResource || r == fhirmodels.TypeDomainResource {
			return true
		}
	}
	return false
}

// Inputs returns the parameters with use "in", in declaration order.
func (op *OperationDefinition) Inputs() []OperationParam {
	return op.params(fhirmodels.ParameterUseIn)
}

// Outputs returns the parameters with use "out", in declaration order.
func (op *OperationDefinition) Outputs() []OperationParam {
	return op.params(fhirmodels.ParameterUseOut)
}

func (op *OperationDefinition) params(use string) []OperationParam {
	var out []OperationParam
	for _, p := range op.Parameter {
		if p.Use == use {
			out = append(out, p)
		}
	}
	return out
}

// IsRequired reports whether the parameter must be supplied.
func (p OperationParam) IsRequired() bool {
	return p.Min > 0
}

// IsRepeating reports whether the parameter may appear more than once.
func (p OperationParam) IsRepeating() bool {
	return p.Max == "*" || (p.Max != "" && p.Max != "0" && p.Max != "1")
}
