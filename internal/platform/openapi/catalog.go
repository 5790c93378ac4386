package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// Well-known parameter names.
const (
	paramLogicalID       = "logical_id"
	paramResourceVersion = "resource_version"
	paramFormat          = "_format"
	paramPretty          = "_pretty"
	paramQuery           = "_query"

	headerIfMatch         = "If-Match"
	headerIfNoneMatch     = "If-None-Match"
	headerIfNoneExist     = "If-None-Exist"
	headerIfModifiedSince = "If-Modified-Since"
	headerPrefer          = "Prefer"
)

// ParamDef describes a shared parameter. Parameters are materialized fresh
// for every document so catalogs can be shared between builders.
type ParamDef struct {
	Name        string
	In          string
	Type        string
	Format      string
	Description string
	Required    bool
	Enum        []string
}

// Catalog is the immutable set of shared parameter definitions and field
// lists a Builder works from. Tests can substitute their own.
type Catalog struct {
	// Path holds the path parameters (logical_id, resource_version).
	Path []ParamDef
	// HTTPCommon is attached to every path item (_format, _pretty).
	HTTPCommon []ParamDef
	// Read holds the query parameters of read-like interactions.
	Read []ParamDef
	// SearchResult holds the result-shaping parameters of searches.
	SearchResult []ParamDef
	// History holds the query parameters of history interactions.
	History []ParamDef
	// Headers holds the precondition and preference headers.
	Headers []ParamDef
	// UncommonFields is the element denylist honored by RemoveUncommonFields.
	// "Element.id" matches the id of every non-resource element.
	UncommonFields []string
}

// DefaultCatalog returns the standard FHIR parameter catalog.
func DefaultCatalog() Catalog {
	return Catalog{
		Path: []ParamDef{
			{Name: paramLogicalID, In: openapi3.ParameterInPath, Type: openapi3.TypeString, Required: true, Description: "Resource logical id"},
			{Name: paramResourceVersion, In: openapi3.ParameterInPath, Type: openapi3.TypeString, Required: true, Description: "Resource version id"},
		},
		HTTPCommon: []ParamDef{
			{Name: paramFormat, In: openapi3.ParameterInQuery, Type: openapi3.TypeString, Description: "Override the HTTP content negotiation"},
			{Name: paramPretty, In: openapi3.ParameterInQuery, Type: openapi3.TypeString, Description: "Ask for a pretty printed response for human convenience"},
		},
		Read: []ParamDef{
			{Name: "_summary", In: openapi3.ParameterInQuery, Type: openapi3.TypeString, Description: "Return only a subset of the resource", Enum: []string{"true", "text", "data", "count", "false"}},
			{Name: "_elements", In: openapi3.ParameterInQuery, Type: openapi3.TypeString, Description: "Comma-separated list of elements to return"},
		},
		SearchResult: []ParamDef{
			{Name: "_count", In: openapi3.ParameterInQuery, Type: openapi3.TypeInteger, Description: "Number of results per page"},
			{Name: "_sort", In: openapi3.ParameterInQuery, Type: openapi3.TypeString, Description: "Order to sort results in"},
			{Name: "_include", In: openapi3.ParameterInQuery, Type: openapi3.TypeString, Description: "Other resources to include in the search results that search matches point to"},
			{Name: "_revinclude", In: openapi3.ParameterInQuery, Type: openapi3.TypeString, Description: "Other resources to include in the search results when they refer to search matches"},
			{Name: "_total", In: openapi3.ParameterInQuery, Type: openapi3.TypeString, Description: "Request a precision of the total number of results", Enum: []string{"none", "estimate", "accurate"}},
			{Name: "_contained", In: openapi3.ParameterInQuery, Type: openapi3.TypeString, Description: "Whether to return resources contained in other resources", Enum: []string{"true", "false", "both"}},
		},
		History: []ParamDef{
			{Name: "_since", In: openapi3.ParameterInQuery, Type: openapi3.TypeString, Format: "date-time", Description: "Only include resource versions created at or after the given instant"},
			{Name: "_at", In: openapi3.ParameterInQuery, Type: openapi3.TypeString, Description: "Only include resource versions current at some point in the given period"},
			{Name: "_list", In: openapi3.ParameterInQuery, Type: openapi3.TypeString, Description: "Only include resources in the given list"},
		},
		Headers: []ParamDef{
			{Name: headerIfMatch, In: openapi3.ParameterInHeader, Type: openapi3.TypeString, Description: "Version-aware update precondition (ETag)"},
			{Name: headerIfNoneMatch, In: openapi3.ParameterInHeader, Type: openapi3.TypeString, Description: "Only act if the current version does not match (ETag)"},
			{Name: headerIfNoneExist, In: openapi3.ParameterInHeader, Type: openapi3.TypeString, Description: "Conditional create search criteria"},
			{Name: headerIfModifiedSince, In: openapi3.ParameterInHeader, Type: openapi3.TypeString, Description: "Only return the resource if modified since the given instant"},
			{Name: headerPrefer, In: openapi3.ParameterInHeader, Type: openapi3.TypeString, Description: "Preferred response content", Enum: []string{"return=minimal", "return=representation", "return=OperationOutcome"}},
		},
		UncommonFields: []string{
			"Element.id",
			"Reference.identifier",
			"Coding.version",
			"Coding.userSelected",
			"Identifier.period",
			"Identifier.assigner",
			"Meta.source",
			"Meta.versionId",
			"Narrative.div",
		},
	}
}

// all returns every shared parameter definition in declaration order.
func (c Catalog) all() []ParamDef {
	var out []ParamDef
	for _, group := range [][]ParamDef{c.Path, c.HTTPCommon, c.Read, c.SearchResult, c.History, c.Headers} {
		out = append(out, group...)
	}
	return out
}

func (c Catalog) uncommon() map[string]bool {
	m := make(map[string]bool, len(c.UncommonFields))
	for _, f := range c.UncommonFields {
		m[f] = true
	}
	return m
}

// parameter materializes a new openapi3.Parameter from the definition.
func (d ParamDef) parameter() *openapi3.Parameter {
	schema := &openapi3.Schema{Type: &openapi3.Types{d.Type}, Format: d.Format}
	for _, e := range d.Enum {
		schema.Enum = append(schema.Enum, e)
	}
	return &openapi3.Parameter{
		Name:        d.Name,
		In:          d.In,
		Description: d.Description,
		Required:    d.Required,
		Schema:      openapi3.NewSchemaRef("", schema),
	}
}
