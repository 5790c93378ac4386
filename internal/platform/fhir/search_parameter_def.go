package fhir

import (
	"strings"
)

// ---------------------------------------------------------------------------
// SearchParameter
// ---------------------------------------------------------------------------

// SearchParameter represents a FHIR SearchParameter resource that defines a
// search parameter and the resource types it applies to.
type SearchParameter struct {
	ResourceType string   `json:"resourceType"`
	ID           string   `json:"id,omitempty"`
	URL          string   `json:"url"`
	Version      string   `json:"version,omitempty"`
	Name         string   `json:"name"`
	Status       string   `json:"status,omitempty"`
	Description  string   `json:"description,omitempty"`
	Code         string   `json:"code"`
	Base         []string `json:"base"`
	Type         string   `json:"type"` // number, date, string, token, reference, composite, quantity, uri, special
	Expression   string   `json:"expression,omitempty"`
	Target       []string `json:"target,omitempty"`
	Comparator   []string `json:"comparator,omitempty"`
	Modifier     []string `json:"modifier,omitempty"`
}

// validSearchParamTypes enumerates the allowed SearchParameter.type values.
var validSearchParamTypes = map[string]bool{
	"number":    true,
	"date":      true,
	"string":    true,
	"token":     true,
	"reference": true,
	"composite": true,
	"quantity":  true,
	"uri":       true,
	"special":   true,
}

// IsValidSearchParamType reports whether t is a SearchParameter.type code.
func IsValidSearchParamType(t string) bool {
	return validSearchParamTypes[t]
}

// AppliesTo reports whether the parameter lists base among its base types.
func (sp *SearchParameter) AppliesTo(base string) bool {
	for _, b := range sp.Base {
		if b == base {
			return true
		}
	}
	return false
}

// LocalURL builds the canonical used when a declared search parameter has
// no resolvable definition.
func LocalURL(resource, code string) string {
	return "http://localhost/SearchParameter/" + resource + "-" + strings.TrimPrefix(code, "_")
}
