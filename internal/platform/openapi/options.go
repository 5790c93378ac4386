package openapi

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidOptions is returned by Export when an option holds a value
// outside its enumeration.
var ErrInvalidOptions = errors.New("invalid openapi options")

// TriState is a per-interaction configuration value. Capabilities defers to
// the capability statement (or the static default when none is loaded).
type TriState int

const (
	Capabilities TriState = iota
	True
	False
)

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "capabilities"
	}
}

// ParseTriState parses "capabilities", "true" or "false" (case-insensitive).
// An empty string means Capabilities.
func ParseTriState(s string) (TriState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "capabilities":
		return Capabilities, nil
	case "true", "yes", "1":
		return True, nil
	case "false", "no", "0":
		return False, nil
	}
	return Capabilities, fmt.Errorf("%w: tri-state %q", ErrInvalidOptions, s)
}

// OpenAPIVersion selects the document version.
type OpenAPIVersion string

const (
	OpenAPIv2 OpenAPIVersion = "v2"
	OpenAPIv3 OpenAPIVersion = "v3"
)

// FileFormat selects the serialization format.
type FileFormat string

const (
	FormatJSON FileFormat = "json"
	FormatYAML FileFormat = "yaml"
)

// SchemaLevel controls schema fidelity.
type SchemaLevel string

const (
	SchemaLevelNone     SchemaLevel = "none"
	SchemaLevelNames    SchemaLevel = "names"
	SchemaLevelDetailed SchemaLevel = "detailed"
)

// SchemaStyle controls whether nested types are inlined or referenced.
type SchemaStyle string

const (
	SchemaStyleInline             SchemaStyle = "inline"
	SchemaStyleTypeReferences     SchemaStyle = "type-references"
	SchemaStyleBackboneReferences SchemaStyle = "backbone-references"
)

// FHIRMimeTypes selects the FHIR body formats.
type FHIRMimeTypes string

const (
	FHIRMimeCapabilities FHIRMimeTypes = "capabilities"
	FHIRMimeCommon       FHIRMimeTypes = "common"
	FHIRMimeJSON         FHIRMimeTypes = "json"
	FHIRMimeXML          FHIRMimeTypes = "xml"
	FHIRMimeAll          FHIRMimeTypes = "all"
)

// PatchMimeTypes selects the patch body formats.
type PatchMimeTypes string

const (
	PatchMimeCapabilities PatchMimeTypes = "capabilities"
	PatchMimeJSONPatch    PatchMimeTypes = "json-patch"
	PatchMimeXMLPatch     PatchMimeTypes = "xml-patch"
	PatchMimeFHIR         PatchMimeTypes = "fhir"
	PatchMimeAll          PatchMimeTypes = "all"
)

// HTTPMethods selects GET, POST, or both for search and operations.
type HTTPMethods string

const (
	MethodsGet  HTTPMethods = "get"
	MethodsPost HTTPMethods = "post"
	MethodsBoth HTTPMethods = "both"
)

// AllowsGet reports whether GET variants are enabled.
func (m HTTPMethods) AllowsGet() bool { return m != MethodsPost }

// AllowsPost reports whether POST variants are enabled.
func (m HTTPMethods) AllowsPost() bool { return m != MethodsGet }

// SearchParamStyle controls where search parameters are declared.
type SearchParamStyle string

const (
	SearchParamsInline       SearchParamStyle = "inline"
	SearchParamsPerResource  SearchParamStyle = "per-resource"
	SearchParamsConsolidated SearchParamStyle = "consolidated"
)

// ExtensionSupport controls which extension properties appear in schemas.
type ExtensionSupport string

const (
	ExtensionsNone         ExtensionSupport = "none"
	ExtensionsModifiers    ExtensionSupport = "modifiers"
	ExtensionsResources    ExtensionSupport = "resources"
	ExtensionsNonPrimitive ExtensionSupport = "non-primitive"
	ExtensionsPrimitive    ExtensionSupport = "primitive"
	ExtensionsAll          ExtensionSupport = "all"
)

// NamingConvention controls operation id casing.
type NamingConvention string

const (
	NamingPascal NamingConvention = "pascal"
	NamingCamel  NamingConvention = "camel"
	NamingUpper  NamingConvention = "upper"
	NamingLower  NamingConvention = "lower"
)

// Options is the immutable configuration of one generator run.
type Options struct {
	OpenAPIVersion OpenAPIVersion
	FileFormat     FileFormat
	Minify         bool

	SchemaLevel   SchemaLevel
	SchemaStyle   SchemaStyle
	MaxRecursions int

	FHIRMimeTypes  FHIRMimeTypes
	PatchMimeTypes PatchMimeTypes

	SearchMethods    HTTPMethods
	OperationMethods HTTPMethods
	SearchParamStyle SearchParamStyle

	ExtensionSupport     ExtensionSupport
	RemoveUncommonFields bool
	SingleResponses      bool

	IncludeDescriptions   bool
	DescriptionMaxLen     int
	DescriptionValidation bool
	IncludeSummaries      bool

	IncludeHeaders          bool
	IncludeHTTPCommonParams bool

	NamingConvention NamingConvention

	ReadOnly  bool
	WriteOnly bool

	// Interactions holds the per-interaction tri-states; missing keys mean
	// Capabilities.
	Interactions map[Interaction]TriState
	// ResourceInteractions overrides the static interaction set per resource
	// when no capability statement is loaded.
	ResourceInteractions map[string][]Interaction
	// ExportKeys restricts the exported resources; empty exports all.
	ExportKeys []string

	FHIRServerURL string
	Title         string
	Version       string
	Description   string
}

// DefaultOptions returns the default generator configuration.
func DefaultOptions() Options {
	return Options{
		OpenAPIVersion:          OpenAPIv3,
		FileFormat:              FormatJSON,
		SchemaLevel:             SchemaLevelDetailed,
		SchemaStyle:             SchemaStyleInline,
		MaxRecursions:           5,
		FHIRMimeTypes:           FHIRMimeCommon,
		PatchMimeTypes:          PatchMimeJSONPatch,
		SearchMethods:           MethodsBoth,
		OperationMethods:        MethodsBoth,
		SearchParamStyle:        SearchParamsInline,
		ExtensionSupport:        ExtensionsNonPrimitive,
		IncludeDescriptions:     true,
		IncludeSummaries:        true,
		IncludeHTTPCommonParams: true,
		NamingConvention:        NamingPascal,
		Interactions:            map[Interaction]TriState{},
		ResourceInteractions:    map[string][]Interaction{},
		Title:                   "FHIR Server",
		Version:                 "1.0.0",
	}
}

// Interaction returns the configured tri-state for i.
func (o *Options) Interaction(i Interaction) TriState {
	if ts, ok := o.Interactions[i]; ok {
		return ts
	}
	return Capabilities
}

// exports reports whether the resource passes the export-key filter.
func (o *Options) exports(resource string) bool {
	if len(o.ExportKeys) == 0 {
		return true
	}
	for _, k := range o.ExportKeys {
		if k == resource {
			return true
		}
	}
	return false
}

func oneOf[T ~string](field string, v T, allowed ...T) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s=%q", ErrInvalidOptions, field, string(v))
}

// Validate checks every enumerated option for a known value. No cross-field
// rules are applied.
func (o *Options) Validate() error {
	checks := []error{
		oneOf("OpenAPIVersion", o.OpenAPIVersion, OpenAPIv2, OpenAPIv3),
		oneOf("FileFormat", o.FileFormat, FormatJSON, FormatYAML),
		oneOf("SchemaLevel", o.SchemaLevel, SchemaLevelNone, SchemaLevelNames, SchemaLevelDetailed),
		oneOf("SchemaStyle", o.SchemaStyle, SchemaStyleInline, SchemaStyleTypeReferences, SchemaStyleBackboneReferences),
		oneOf("FHIRMimeTypes", o.FHIRMimeTypes, FHIRMimeCapabilities, FHIRMimeCommon, FHIRMimeJSON, FHIRMimeXML, FHIRMimeAll),
		oneOf("PatchMimeTypes", o.PatchMimeTypes, PatchMimeCapabilities, PatchMimeJSONPatch, PatchMimeXMLPatch, PatchMimeFHIR, PatchMimeAll),
		oneOf("SearchMethods", o.SearchMethods, MethodsGet, MethodsPost, MethodsBoth),
		oneOf("OperationMethods", o.OperationMethods, MethodsGet, MethodsPost, MethodsBoth),
		oneOf("SearchParamStyle", o.SearchParamStyle, SearchParamsInline, SearchParamsPerResource, SearchParamsConsolidated),
		oneOf("ExtensionSupport", o.ExtensionSupport, ExtensionsNone, ExtensionsModifiers, ExtensionsResources, ExtensionsNonPrimitive, ExtensionsPrimitive, ExtensionsAll),
		oneOf("NamingConvention", o.NamingConvention, NamingPascal, NamingCamel, NamingUpper, NamingLower),
	}
	if err := errors.Join(checks...); err != nil {
		return err
	}
	if o.MaxRecursions < 0 {
		return fmt.Errorf("%w: MaxRecursions=%d", ErrInvalidOptions, o.MaxRecursions)
	}
	if o.DescriptionMaxLen < 0 {
		return fmt.Errorf("%w: DescriptionMaxLen=%d", ErrInvalidOptions, o.DescriptionMaxLen)
	}

	keys := make([]string, 0, len(o.Interactions))
	for i := range o.Interactions {
		keys = append(keys, string(i))
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !Interaction(k).known() {
			return fmt.Errorf("%w: unknown interaction %q", ErrInvalidOptions, k)
		}
	}

	resources := make([]string, 0, len(o.ResourceInteractions))
	for r := range o.ResourceInteractions {
		resources = append(resources, r)
	}
	sort.Strings(resources)
	for _, r := range resources {
		for _, i := range o.ResourceInteractions[r] {
			if !i.resourceLevel() {
				return fmt.Errorf("%w: ResourceInteractions[%s] has unknown interaction %q", ErrInvalidOptions, r, string(i))
			}
		}
	}
	return nil
}
