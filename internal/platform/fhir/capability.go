package fhir

import (
	"github.com/microsoft/fhir-codegen-sub025/pkg/fhirmodels"
)

// ---------------------------------------------------------------------------
// Core types
// ---------------------------------------------------------------------------

// CapabilityStatement is the subset of a FHIR CapabilityStatement that
// restricts or augments what a generated API surface exposes.
type CapabilityStatement struct {
	ResourceType   string                    `json:"resourceType"`
	ID             string                    `json:"id,omitempty"`
	URL            string                    `json:"url,omitempty"`
	Name           string                    `json:"name,omitempty"`
	Title          string                    `json:"title,omitempty"`
	Description    string                    `json:"description,omitempty"`
	FHIRVersion    string                    `json:"fhirVersion,omitempty"`
	Format         []string                  `json:"format,omitempty"`
	PatchFormat    []string                  `json:"patchFormat,omitempty"`
	Software       *CapabilitySoftware       `json:"software,omitempty"`
	Implementation *CapabilityImplementation `json:"implementation,omitempty"`
	Rest           []CapabilityRest          `json:"rest,omitempty"`
}

// CapabilitySoftware identifies the server software.
type CapabilitySoftware struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// CapabilityImplementation describes the specific server instance.
type CapabilityImplementation struct {
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
}

// CapabilityRest describes one REST endpoint mode (client or server).
type CapabilityRest struct {
	Mode        string                  `json:"mode"`
	Resource    []ResourceCapability    `json:"resource,omitempty"`
	Interaction []InteractionCapability `json:"interaction,omitempty"`
	SearchParam []SearchParamCapability `json:"searchParam,omitempty"`
	Operation   []OperationCapability   `json:"operation,omitempty"`
}

// ResourceCapability declares what a server supports for one resource type.
type ResourceCapability struct {
	Type              string                  `json:"type"`
	Profile           string                  `json:"profile,omitempty"`
	Interaction       []InteractionCapability `json:"interaction,omitempty"`
	Versioning        string                  `json:"versioning,omitempty"`
	ConditionalCreate bool                    `json:"conditionalCreate,omitempty"`
	ConditionalRead   string                  `json:"conditionalRead,omitempty"`
	ConditionalUpdate bool                    `json:"conditionalUpdate,omitempty"`
	ConditionalPatch  bool                    `json:"conditionalPatch,omitempty"`
	ConditionalDelete string                  `json:"conditionalDelete,omitempty"` // not-supported, single, multiple
	SearchParam       []SearchParamCapability `json:"searchParam,omitempty"`
	Operation         []OperationCapability   `json:"operation,omitempty"`
}

// InteractionCapability names a supported interaction.
type InteractionCapability struct {
	Code          string `json:"code"`
	Documentation string `json:"documentation,omitempty"`
}

// SearchParamCapability describes a search parameter in a ResourceCapability.
type SearchParamCapability struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Definition    string `json:"definition,omitempty"`
	Documentation string `json:"documentation,omitempty"`
}

// OperationCapability describes an operation (resource-level or system-level).
type OperationCapability struct {
	Name          string `json:"name"`
	Definition    string `json:"definition"`
	Documentation string `json:"documentation,omitempty"`
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

// ServerRest returns the first rest entry with mode "server", falling back to
// the first entry when none declares a mode.
func (cs *CapabilityStatement) ServerRest() *CapabilityRest {
	if cs == nil || len(cs.Rest) == 0 {
		return nil
	}
	for i := range cs.Rest {
		if cs.Rest[i].Mode == "server" {
			return &cs.Rest[i]
		}
	}
	return &cs.Rest[0]
}

// Resource returns the server capability entry for a resource type.
func (cs *CapabilityStatement) Resource(resourceType string) (*ResourceCapability, bool) {
	rest := cs.ServerRest()
	if rest == nil {
		return nil, false
	}
	for i := range rest.Resource {
		if rest.Resource[i].Type == resourceType {
			return &rest.Resource[i], true
		}
	}
	return nil, false
}

// HasResource reports whether the server declares the resource type.
func (cs *CapabilityStatement) HasResource(resourceType string) bool {
	_, ok := cs.Resource(resourceType)
	return ok
}

// HasSystemInteraction reports whether the server declares a system-level
// interaction such as "transaction" or "search-system".
func (cs *CapabilityStatement) HasSystemInteraction(code string) bool {
	rest := cs.ServerRest()
	if rest == nil {
		return false
	}
	for _, i := range rest.Interaction {
		if i.Code == code {
			return true
		}
	}
	return false
}

// SystemOperations returns the server-level operations.
func (cs *CapabilityStatement) SystemOperations() []OperationCapability {
	rest := cs.ServerRest()
	if rest == nil {
		return nil
	}
	return rest.Operation
}

// BaseURL returns the implementation URL, if declared.
func (cs *CapabilityStatement) BaseURL() string {
	if cs == nil || cs.Implementation == nil {
		return ""
	}
	return cs.Implementation.URL
}

// HasInteraction reports whether the entry declares the interaction code.
func (rc *ResourceCapability) HasInteraction(code string) bool {
	for _, i := range rc.Interaction {
		if i.Code == code {
			return true
		}
	}
	return false
}

// ConditionalDeleteMode returns the declared conditional delete mode,
// defaulting to not-supported.
func (rc *ResourceCapability) ConditionalDeleteMode() string {
	switch rc.ConditionalDelete {
	case fhirmodels.ConditionalDeleteSingle, fhirmodels.ConditionalDeleteMultiple:
		return rc.ConditionalDelete
	default:
		return fhirmodels.ConditionalDeleteNotSupported
	}
}
