package openapi

import (
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/rs/zerolog"

	"github.com/microsoft/fhir-codegen-sub025/internal/platform/fhir"
	"github.com/microsoft/fhir-codegen-sub025/pkg/fhirmodels"
)

// DefinitionSource is the read-only view of loaded FHIR definitions the
// builder works from. fhir.DefinitionCollection implements it.
type DefinitionSource interface {
	FHIRVersion() string
	Release() string
	Resources() []*fhir.StructureDefinition
	Resource(name string) (*fhir.StructureDefinition, bool)
	ComplexType(name string) (*fhir.StructureDefinition, bool)
	PrimitiveType(name string) (*fhir.StructureDefinition, bool)
	IsPrimitive(name string) bool
	IsComplexType(name string) bool
	IsResource(name string) bool
	StructureByURL(url string) (*fhir.StructureDefinition, bool)
	BaseChain(name string) []string
	Children(sd *fhir.StructureDefinition, path string) []*fhir.ElementDefinition
	ElementByPath(path string) (*fhir.StructureDefinition, *fhir.ElementDefinition, bool)
	SearchParameterByURL(url string) (*fhir.SearchParameter, bool)
	SearchParametersForBase(base string) []*fhir.SearchParameter
	Operations() []*fhir.OperationDefinition
	OperationByURL(url string) (*fhir.OperationDefinition, bool)
	OperationByCode(code string) (*fhir.OperationDefinition, bool)
}

var _ DefinitionSource = (*fhir.DefinitionCollection)(nil)

// BuildStatistics summarizes one build. It is never part of the document.
type BuildStatistics struct {
	Paths               int
	Operations          int
	Schemas             int
	QueryParameters     int
	ParamInstances      int
	DescriptionWarnings int
}

// Builder generates OpenAPI documents from FHIR definitions. A Builder holds
// only immutable inputs and may be reused; every Build starts from scratch.
type Builder struct {
	src     DefinitionSource
	cs      *fhir.CapabilityStatement
	smart   *fhir.SmartConfiguration
	opts    Options
	catalog Catalog
	logger  zerolog.Logger
}

// BuilderOption configures optional Builder inputs.
type BuilderOption func(*Builder)

// WithLogger sets the logger used for build diagnostics.
func WithLogger(logger zerolog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = logger }
}

// WithCatalog replaces the default parameter catalog.
func WithCatalog(c Catalog) BuilderOption {
	return func(b *Builder) { b.catalog = c }
}

// WithSmartConfiguration supplies the scopes advertised in the security
// requirement.
func WithSmartConfiguration(sc *fhir.SmartConfiguration) BuilderOption {
	return func(b *Builder) { b.smart = sc }
}

// NewBuilder creates a Builder. cs may be nil, in which case the static
// interaction configuration decides what is exported.
func NewBuilder(src DefinitionSource, cs *fhir.CapabilityStatement, opts Options, options ...BuilderOption) *Builder {
	b := &Builder{
		src:     src,
		cs:      cs,
		opts:    opts,
		catalog: DefaultCatalog(),
		logger:  zerolog.Nop(),
	}
	for _, o := range options {
		o(b)
	}
	return b
}

// Policy returns the capability resolver for this builder's inputs.
func (b *Builder) Policy() Policy {
	return Policy{opts: &b.opts, cs: b.cs}
}

// GetInteractions returns the sorted interactions exported for resource.
func (b *Builder) GetInteractions(resource string) []Interaction {
	return interactionSelector{policy: b.Policy()}.GetInteractions(resource)
}

// GetResourceSearchParameters returns the search parameters exposed on
// resource, deduplicated by code.
func (b *Builder) GetResourceSearchParameters(resource string) []SearchParameterDescriptor {
	return searchCollector{src: b.src, cs: b.cs}.GetResourceSearchParameters(resource)
}

// run holds the mutable state of a single Build.
type run struct {
	b        *Builder
	src      DefinitionSource
	cs       *fhir.CapabilityStatement
	opts     *Options
	logger   zerolog.Logger
	policy   Policy
	selector interactionSelector
	search   searchCollector

	doc   *openapi3.T
	paths *openapi3.Paths
	stats BuildStatistics

	// schemaNames is the set of resources that get a component schema.
	schemaNames map[string]bool
	components  openapi3.Schemas
	building    map[string]bool
	pending     []string

	uncommon   map[string]bool
	tags       map[string]string
	searchKeys map[string]string
	fhirMimes  []string
	patchMimes []string
}

func (b *Builder) newRun() *run {
	components := openapi3.NewComponents()
	components.Parameters = openapi3.ParametersMap{}
	components.Schemas = openapi3.Schemas{}

	r := &run{
		b:          b,
		src:        b.src,
		cs:         b.cs,
		opts:       &b.opts,
		logger:     b.logger,
		policy:     b.Policy(),
		selector:   interactionSelector{policy: b.Policy()},
		search:     searchCollector{src: b.src, cs: b.cs},
		doc:        &openapi3.T{OpenAPI: "3.0.3", Components: &components},
		building:   map[string]bool{},
		uncommon:   b.catalog.uncommon(),
		tags:       map[string]string{},
		searchKeys: map[string]string{},
	}
	r.fhirMimes = fhirMimeTypes(b.opts.FHIRMimeTypes, b.cs)
	r.patchMimes = patchMimeTypes(b.opts.PatchMimeTypes, b.cs)
	r.schemaNames = r.schemaSet()
	return r
}

// Build generates the document and its statistics.
func (b *Builder) Build() (*openapi3.T, BuildStatistics) {
	r := b.newRun()

	r.buildInfo()
	r.buildServers()
	r.buildCommonParameters()
	r.buildSearchParameterComponents()
	r.doc.Components.Schemas = r.buildSchemas()
	r.doc.Paths = r.buildPaths()
	r.buildTags()
	r.buildSecurity()

	r.stats.Paths = r.doc.Paths.Len()
	r.stats.Schemas = len(r.doc.Components.Schemas)

	b.logger.Info().
		Str("fhir_version", b.src.FHIRVersion()).
		Int("paths", r.stats.Paths).
		Int("operations", r.stats.Operations).
		Int("schemas", r.stats.Schemas).
		Int("query_parameters", r.stats.QueryParameters).
		Int("parameter_instances", r.stats.ParamInstances).
		Int("description_warnings", r.stats.DescriptionWarnings).
		Msg("openapi document built")

	return r.doc, r.stats
}

func (r *run) buildInfo() {
	description := r.opts.Description
	if description == "" && r.src.FHIRVersion() != "" {
		description = "FHIR " + r.src.FHIRVersion() + " REST API"
	}
	r.doc.Info = &openapi3.Info{
		Title:       r.opts.Title,
		Version:     r.opts.Version,
		Description: description,
	}
}

// buildServers declares the base URL, only when a capability statement is
// loaded.
func (r *run) buildServers() {
	if r.cs == nil {
		return
	}
	url := r.cs.BaseURL()
	if url == "" {
		url = r.opts.FHIRServerURL
	}
	if url == "" {
		return
	}
	r.doc.Servers = openapi3.Servers{{URL: url}}
}

func (r *run) buildCommonParameters() {
	for _, d := range r.b.catalog.all() {
		if _, ok := r.doc.Components.Parameters[d.Name]; ok {
			continue
		}
		r.doc.Components.Parameters[d.Name] = &openapi3.ParameterRef{Value: d.parameter()}
	}
}

// paramRef references a catalog parameter component. It returns nil when
// the catalog has no such parameter.
func (r *run) paramRef(name string) *openapi3.ParameterRef {
	p, ok := r.doc.Components.Parameters[name]
	if !ok {
		return nil
	}
	return &openapi3.ParameterRef{Ref: "#/components/parameters/" + name, Value: p.Value}
}

func (r *run) catalogRefs(defs []ParamDef) []*openapi3.ParameterRef {
	out := make([]*openapi3.ParameterRef, 0, len(defs))
	for _, d := range defs {
		out = append(out, r.paramRef(d.Name))
	}
	return out
}

// buildSearchParameterComponents registers search parameters as reusable
// components for the per-resource and consolidated styles.
func (r *run) buildSearchParameterComponents() {
	if r.opts.SearchParamStyle == SearchParamsInline {
		return
	}
	catalog := make(map[string]bool)
	for _, d := range r.b.catalog.all() {
		catalog[d.Name] = true
	}
	for _, sd := range r.src.Resources() {
		if sd.Abstract || !r.selector.exported(sd.Name) {
			continue
		}
		for _, d := range r.search.GetResourceSearchParameters(sd.Name) {
			key := d.Code
			if r.opts.SearchParamStyle == SearchParamsPerResource {
				key = sd.Name + "-" + d.Code
			} else if catalog[key] {
				key = "search-" + d.Code
			}
			r.searchKeys[sd.Name+"|"+d.Code] = key
			if _, ok := r.doc.Components.Parameters[key]; ok {
				continue
			}
			r.doc.Components.Parameters[key] = &openapi3.ParameterRef{Value: r.searchParameter(d)}
		}
	}
}

func (r *run) buildTags() {
	names := make([]string, 0, len(r.tags))
	for name := range r.tags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.doc.Tags = append(r.doc.Tags, &openapi3.Tag{Name: name, Description: r.tags[name]})
	}
}

// buildSecurity declares the SMART on FHIR OpenID Connect scheme.
func (r *run) buildSecurity() {
	if r.opts.OpenAPIVersion != OpenAPIv3 || r.opts.FHIRServerURL == "" {
		return
	}
	url := strings.TrimSuffix(r.opts.FHIRServerURL, "/") + "/.well-known/smart-configuration"
	r.doc.Components.SecuritySchemes = openapi3.SecuritySchemes{
		"smart": &openapi3.SecuritySchemeRef{Value: &openapi3.SecurityScheme{
			Type:             "openIdConnect",
			Description:      "SMART on FHIR",
			OpenIdConnectUrl: url,
		}},
	}
	scopes := r.b.smart.Scopes()
	if scopes == nil {
		scopes = []string{}
	}
	r.doc.Security = openapi3.SecurityRequirements{{"smart": scopes}}
}

// schemaSet returns the resources that get a component schema: exported
// concrete resources, the infrastructure resources every document needs
// and the resource types operations exchange.
func (r *run) schemaSet() map[string]bool {
	set := make(map[string]bool)
	add := func(name string) {
		if sd, ok := r.src.Resource(name); ok && !sd.Abstract {
			set[name] = true
		}
	}
	for _, sd := range r.src.Resources() {
		if r.selector.exported(sd.Name) {
			add(sd.Name)
		}
	}
	for _, name := range []string{
		fhirmodels.TypeBundle, fhirmodels.TypeOperationOutcome, fhirmodels.TypeParameters,
	} {
		add(name)
	}
	if r.cs != nil {
		add(fhirmodels.TypeCapability)
	}
	for _, op := range r.src.Operations() {
		if !r.operationInScope(op) {
			continue
		}
		for _, p := range op.Parameter {
			if p.Type != "" && r.src.IsResource(p.Type) {
				add(p.Type)
			}
		}
	}
	return set
}

func (r *run) operationInScope(op *fhir.OperationDefinition) bool {
	if op.System {
		return true
	}
	for _, res := range op.Resource {
		if res == fhirmodels.TypeResource || res == fhirmodels.TypeDomainResource || r.selector.exported(res) {
			return true
		}
	}
	return false
}

// describe applies the description options to text.
func (r *run) describe(text string) string {
	if !r.opts.IncludeDescriptions {
		return ""
	}
	text = strings.TrimSpace(text)
	long := r.opts.DescriptionMaxLen > 0 && len([]rune(text)) > r.opts.DescriptionMaxLen
	if r.opts.DescriptionValidation && (text == "" || long) {
		r.stats.DescriptionWarnings++
		r.logger.Warn().
			Bool("empty", text == "").
			Int("length", len([]rune(text))).
			Msg("description failed validation")
	}
	if long {
		text = truncate(text, r.opts.DescriptionMaxLen)
	}
	return text
}

// truncate shortens text to at most limit runes, ending in an ellipsis when
// limit leaves room for one.
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	const ellipsis = "..."
	if limit <= len(ellipsis) {
		return string(runes[:limit])
	}
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}
