package openapi

import (
	"regexp"
	"strings"

	"github.com/microsoft/fhir-codegen-sub025/internal/platform/fhir"
	"github.com/microsoft/fhir-codegen-sub025/pkg/fhirmodels"
)

// SearchParameterDescriptor is a search parameter as exposed on one resource.
type SearchParameterDescriptor struct {
	Code        string
	Name        string
	URL         string
	Type        string
	Description string
	// Synthetic marks descriptors built locally rather than resolved from
	// a SearchParameter definition.
	Synthetic bool
}

// searchCollector resolves the search parameters of a resource.
type searchCollector struct {
	src DefinitionSource
	cs  *fhir.CapabilityStatement
}

// GetResourceSearchParameters returns the search parameters of resource in
// a stable order, deduplicated by code (first occurrence wins).
func (c searchCollector) GetResourceSearchParameters(resource string) []SearchParameterDescriptor {
	var out []SearchParameterDescriptor
	seen := make(map[string]bool)
	add := func(d SearchParameterDescriptor) {
		if d.Code == "" || seen[d.Code] {
			return
		}
		seen[d.Code] = true
		out = append(out, d)
	}

	if c.cs != nil {
		rc, ok := c.cs.Resource(resource)
		if !ok {
			return nil
		}
		for _, sp := range rc.SearchParam {
			add(c.fromCapability(resource, sp))
		}
		if rest := c.cs.ServerRest(); rest != nil {
			for _, sp := range rest.SearchParam {
				add(c.fromCapability(resource, sp))
			}
		}
		for _, oc := range rc.Operation {
			if op := c.resolveOperation(oc); op != nil && op.IsQuery() {
				for _, d := range c.queryParameters(op) {
					add(d)
				}
			}
		}
		return out
	}

	for _, base := range append([]string{resource}, c.src.BaseChain(resource)...) {
		for _, sp := range c.src.SearchParametersForBase(base) {
			add(fromDefinition(sp.Code, sp))
		}
	}
	for _, op := range c.src.Operations() {
		if op.IsQuery() && op.Type && op.AppliesTo(resource) {
			for _, d := range c.queryParameters(op) {
				add(d)
			}
		}
	}
	return out
}

func (c searchCollector) fromCapability(resource string, sp fhir.SearchParamCapability) SearchParameterDescriptor {
	if sp.Definition != "" {
		if def, ok := c.src.SearchParameterByURL(sp.Definition); ok {
			d := fromDefinition(sp.Name, def)
			if sp.Documentation != "" {
				d.Description = rewriteMarkdownLinks(sp.Documentation, c.src.Release())
			}
			return d
		}
	}
	return SearchParameterDescriptor{
		Code:        sp.Name,
		Name:        sp.Name,
		URL:         fhir.LocalURL(resource, sp.Name),
		Type:        sp.Type,
		Description: rewriteMarkdownLinks(sp.Documentation, c.src.Release()),
		Synthetic:   true,
	}
}

func fromDefinition(code string, sp *fhir.SearchParameter) SearchParameterDescriptor {
	return SearchParameterDescriptor{
		Code:        code,
		Name:        sp.Name,
		URL:         sp.URL,
		Type:        sp.Type,
		Description: sp.Description,
	}
}

// queryParameters expands a named query into the _query selector plus one
// parameter per input that declares a search type.
func (c searchCollector) queryParameters(op *fhir.OperationDefinition) []SearchParameterDescriptor {
	out := []SearchParameterDescriptor{{
		Code:        paramQuery,
		Name:        paramQuery,
		URL:         "http://hl7.org/fhir/SearchParameter/query",
		Type:        fhirmodels.SearchTypeToken,
		Description: "Named query to execute",
		Synthetic:   true,
	}}
	for _, p := range op.Inputs() {
		if p.SearchType == "" {
			continue
		}
		out = append(out, SearchParameterDescriptor{
			Code:        p.Name,
			Name:        p.Name,
			URL:         op.URL + "#" + p.Name,
			Type:        p.SearchType,
			Description: rewriteMarkdownLinks(p.Documentation, c.src.Release()),
			Synthetic:   true,
		})
	}
	return out
}

func (c searchCollector) resolveOperation(oc fhir.OperationCapability) *fhir.OperationDefinition {
	if oc.Definition != "" {
		if op, ok := c.src.OperationByURL(oc.Definition); ok {
			return op
		}
	}
	if op, ok := c.src.OperationByCode(oc.Name); ok {
		return op
	}
	return nil
}

var markdownLink = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)

// rewriteMarkdownLinks turns relative markdown links such as
// [Patient](patient.html) into absolute links into the published release.
func rewriteMarkdownLinks(text, release string) string {
	if !strings.Contains(text, "](") {
		return text
	}
	base := "http://hl7.org/fhir/"
	if release != "" {
		base += release + "/"
	}
	return markdownLink.ReplaceAllStringFunc(text, func(m string) string {
		parts := markdownLink.FindStringSubmatch(m)
		target := parts[2]
		if strings.Contains(target, "://") || strings.HasPrefix(target, "#") || strings.HasPrefix(target, "mailto:") {
			return m
		}
		return "[" + parts[1] + "](" + base + strings.TrimPrefix(target, "/") + ")"
	})
}
