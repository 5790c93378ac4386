package openapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/microsoft/fhir-codegen-sub025/internal/platform/fhir"
	"github.com/microsoft/fhir-codegen-sub025/pkg/fhirmodels"
)

// errNotQueryable means an operation cannot be invoked with GET because a
// required input has no query-string representation.
var errNotQueryable = errors.New("required input cannot be a query parameter")

// Response code families.
var (
	readResponses         = []int{200, 410, 404}
	updateResponses       = []int{200, 400, 401, 404, 405, 409, 412, 422}
	deleteResponses       = []int{200, 202, 204, 400, 401, 404, 405, 409}
	conditionalResponses  = []int{200, 400, 401, 404, 412}
	createResponses       = []int{201, 400, 401, 404, 405, 409, 412, 422}
	searchResponses       = []int{200, 400, 401}
	operationResponses    = []int{200, 400, 401, 404}
	capabilitiesResponses = []int{200}
)

const (
	scopeInstance = "instance"
	scopeType     = "type"
	scopeSystem   = "system"

	systemTag = "System"
)

func fhirMimeTypes(opt FHIRMimeTypes, cs *fhir.CapabilityStatement) []string {
	common := []string{fhirmodels.MimeFHIRJSON, fhirmodels.MimeFHIRXML}
	switch opt {
	case FHIRMimeJSON:
		return []string{fhirmodels.MimeFHIRJSON}
	case FHIRMimeXML:
		return []string{fhirmodels.MimeFHIRXML}
	case FHIRMimeAll:
		return []string{fhirmodels.MimeFHIRJSON, fhirmodels.MimeFHIRXML, fhirmodels.MimeFHIRTurtle}
	case FHIRMimeCapabilities:
		if cs == nil || len(cs.Format) == 0 {
			return common
		}
		var out []string
		for _, f := range cs.Format {
			mime := f
			switch strings.ToLower(f) {
			case "json":
				mime = fhirmodels.MimeFHIRJSON
			case "xml":
				mime = fhirmodels.MimeFHIRXML
			case "ttl", "turtle":
				mime = fhirmodels.MimeFHIRTurtle
			}
			if !strings.Contains(mime, "/") || containsString(out, mime) {
				continue
			}
			out = append(out, mime)
		}
		if len(out) == 0 {
			return common
		}
		return out
	}
	return common
}

func patchMimeTypes(opt PatchMimeTypes, cs *fhir.CapabilityStatement) []string {
	switch opt {
	case PatchMimeXMLPatch:
		return []string{fhirmodels.MimeXMLPatch}
	case PatchMimeFHIR:
		return []string{fhirmodels.MimeFHIRJSON, fhirmodels.MimeFHIRXML}
	case PatchMimeAll:
		return []string{fhirmodels.MimeJSONPatch, fhirmodels.MimeXMLPatch, fhirmodels.MimeFHIRJSON, fhirmodels.MimeFHIRXML}
	case PatchMimeCapabilities:
		if cs != nil && len(cs.PatchFormat) > 0 {
			return append([]string(nil), cs.PatchFormat...)
		}
	}
	return []string{fhirmodels.MimeJSONPatch}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r *run) fhirContent(schema *openapi3.SchemaRef) openapi3.Content {
	content := openapi3.Content{}
	for _, mime := range r.fhirMimes {
		content[mime] = openapi3.NewMediaType().WithSchemaRef(schema)
	}
	return content
}

// patchContent describes the patch document per media type.
func (r *run) patchContent() openapi3.Content {
	content := openapi3.Content{}
	for _, mime := range r.patchMimes {
		var schema *openapi3.SchemaRef
		switch mime {
		case fhirmodels.MimeJSONPatch:
			op := openapi3.NewObjectSchema()
			op.Properties["op"] = openapi3.NewSchemaRef("", openapi3.NewStringSchema().WithEnum("add", "remove", "replace", "move", "copy", "test"))
			op.Properties["path"] = openapi3.NewSchemaRef("", openapi3.NewStringSchema())
			op.Properties["from"] = openapi3.NewSchemaRef("", openapi3.NewStringSchema())
			op.Properties["value"] = openapi3.NewSchemaRef("", opaqueSchema(""))
			op.Required = []string{"op", "path"}
			schema = openapi3.NewSchemaRef("", openapi3.NewArraySchema().WithItems(op))
		case fhirmodels.MimeFHIRJSON, fhirmodels.MimeFHIRXML:
			schema = r.resourceSchemaRef(fhirmodels.TypeParameters)
		default:
			schema = openapi3.NewSchemaRef("", openapi3.NewStringSchema())
		}
		content[mime] = openapi3.NewMediaType().WithSchemaRef(schema)
	}
	return content
}

// responses builds the response map for a code family. Success codes other
// than 204 carry success; error codes carry an OperationOutcome.
func (r *run) responses(codes []int, success *openapi3.SchemaRef) *openapi3.Responses {
	if r.opts.SingleResponses && len(codes) > 1 {
		codes = codes[:1]
	}
	responses := openapi3.NewResponses()
	responses.Delete("default")
	for _, code := range codes {
		resp := openapi3.NewResponse().WithDescription(http.StatusText(code))
		switch {
		case code >= 200 && code < 300 && code != http.StatusNoContent:
			if success != nil {
				resp.Content = r.fhirContent(success)
			}
		case code >= 400:
			resp.Content = r.fhirContent(r.resourceSchemaRef(fhirmodels.TypeOperationOutcome))
		}
		responses.Set(strconv.Itoa(code), &openapi3.ResponseRef{Value: resp})
	}
	return responses
}

func (r *run) newOperation(tag, summary string, idParts ...string) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = operationID(r.opts.NamingConvention, idParts...)
	op.Tags = []string{tag}
	if r.opts.IncludeSummaries {
		op.Summary = summary
	}
	return op
}

// addParams appends parameters, skipping nil entries and any name/location
// pair the operation already declares.
func addParams(op *openapi3.Operation, params ...*openapi3.ParameterRef) {
	for _, p := range params {
		if p == nil || p.Value == nil {
			continue
		}
		if op.Parameters.GetByInAndName(p.Value.In, p.Value.Name) != nil {
			continue
		}
		op.Parameters = append(op.Parameters, p)
	}
}

func (r *run) headers(names ...string) []*openapi3.ParameterRef {
	out := make([]*openapi3.ParameterRef, 0, len(names))
	for _, n := range names {
		out = append(out, r.paramRef(n))
	}
	return out
}

func (r *run) withBody(op *openapi3.Operation, content openapi3.Content, required bool) {
	op.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithRequired(required).WithContent(content)}
}

// searchParameter materializes a search parameter descriptor.
func (r *run) searchParameter(d SearchParameterDescriptor) *openapi3.Parameter {
	p := openapi3.NewQueryParameter(d.Code).WithSchema(fhirSearchParamSchema(d.Type))
	p.Description = r.describe(d.Description)
	return p
}

// fhirSearchParamSchema maps a FHIR search parameter type to a schema.
// Values keep their prefixes and modifiers, so everything is a string.
func fhirSearchParamSchema(fhirType string) *openapi3.Schema {
	s := openapi3.NewStringSchema()
	if fhirType == fhirmodels.SearchTypeURI {
		s.Format = "uri"
	}
	return s
}

func (r *run) searchParamRefs(resource string, params []SearchParameterDescriptor) []*openapi3.ParameterRef {
	out := make([]*openapi3.ParameterRef, 0, len(params))
	for _, d := range params {
		if key, ok := r.searchKeys[resource+"|"+d.Code]; ok {
			out = append(out, &openapi3.ParameterRef{
				Ref:   "#/components/parameters/" + key,
				Value: r.doc.Components.Parameters[key].Value,
			})
			continue
		}
		out = append(out, &openapi3.ParameterRef{Value: r.searchParameter(d)})
	}
	return out
}

// searchForm is the form-encoded body of POST searches.
func (r *run) searchForm(params []SearchParameterDescriptor) openapi3.Content {
	form := openapi3.NewObjectSchema()
	for _, d := range params {
		prop := openapi3.NewStringSchema()
		prop.Description = r.describe(d.Description)
		form.Properties[d.Code] = openapi3.NewSchemaRef("", prop)
	}
	return openapi3.Content{fhirmodels.MimeFormEncoded: openapi3.NewMediaType().WithSchema(form)}
}

// resourceContext carries what the path assembler knows about one resource.
type resourceContext struct {
	name   string
	sd     *fhir.StructureDefinition
	params []SearchParameterDescriptor
	// tag is the resource tag description.
	tag string
}

func (r *run) readOperation(rc *resourceContext) *openapi3.Operation {
	op := r.newOperation(rc.name, "Read "+rc.name, "read", scopeInstance, rc.name)
	addParams(op, r.paramRef(paramLogicalID))
	addParams(op, r.catalogRefs(r.b.catalog.Read)...)
	if r.opts.IncludeHeaders {
		addParams(op, r.headers(headerIfNoneMatch, headerIfModifiedSince)...)
	}
	op.Responses = r.responses(readResponses, r.resourceSchemaRef(rc.name))
	return op
}

func (r *run) vreadOperation(rc *resourceContext) *openapi3.Operation {
	op := r.newOperation(rc.name, "Read a specific version of "+rc.name, "vread", scopeInstance, rc.name)
	addParams(op, r.paramRef(paramLogicalID), r.paramRef(paramResourceVersion))
	addParams(op, r.catalogRefs(r.b.catalog.Read)...)
	if r.opts.IncludeHeaders {
		addParams(op, r.headers(headerIfNoneMatch, headerIfModifiedSince)...)
	}
	op.Responses = r.responses(readResponses, r.resourceSchemaRef(rc.name))
	return op
}

func (r *run) updateOperation(rc *resourceContext, conditional bool) *openapi3.Operation {
	var op *openapi3.Operation
	if conditional {
		op = r.newOperation(rc.name, "Conditionally update "+rc.name, "update-conditional", scopeType, rc.name)
		addParams(op, r.searchParamRefs(rc.name, rc.params)...)
		op.Responses = r.responses(conditionalResponses, r.resourceSchemaRef(rc.name))
	} else {
		op = r.newOperation(rc.name, "Update "+rc.name, "update", scopeInstance, rc.name)
		addParams(op, r.paramRef(paramLogicalID))
		op.Responses = r.responses(updateResponses, r.resourceSchemaRef(rc.name))
	}
	if r.policy.ResolveUpdateConditional(rc.name) {
		addParams(op, r.headers(headerIfMatch, headerIfNoneMatch)...)
	}
	if r.opts.IncludeHeaders {
		addParams(op, r.paramRef(headerPrefer))
	}
	r.withBody(op, r.fhirContent(r.resourceSchemaRef(rc.name)), true)
	return op
}

func (r *run) patchOperation(rc *resourceContext, conditional bool) *openapi3.Operation {
	var op *openapi3.Operation
	if conditional {
		op = r.newOperation(rc.name, "Conditionally patch "+rc.name, "patch-conditional", scopeType, rc.name)
		addParams(op, r.searchParamRefs(rc.name, rc.params)...)
	} else {
		op = r.newOperation(rc.name, "Patch "+rc.name, "patch", scopeInstance, rc.name)
		addParams(op, r.paramRef(paramLogicalID))
	}
	if r.policy.ResolvePatchConditional(rc.name) {
		addParams(op, r.paramRef(headerIfMatch))
	}
	if r.opts.IncludeHeaders {
		addParams(op, r.paramRef(headerPrefer))
	}
	r.withBody(op, r.patchContent(), true)
	op.Responses = r.responses(conditionalResponses, r.resourceSchemaRef(rc.name))
	return op
}

func (r *run) deleteOperation(rc *resourceContext) *openapi3.Operation {
	op := r.newOperation(rc.name, "Delete "+rc.name, "delete", scopeInstance, rc.name)
	addParams(op, r.paramRef(paramLogicalID))
	op.Responses = r.responses(deleteResponses, r.resourceSchemaRef(fhirmodels.TypeOperationOutcome))
	return op
}

func (r *run) deleteConditionalOperation(rc *resourceContext) *openapi3.Operation {
	summary := "Conditionally delete a single " + rc.name
	if r.policy.ResolveDeleteConditional(rc.name) == ConditionalDeleteMultiple {
		summary = "Conditionally delete one or more " + rc.name + " resources"
	}
	op := r.newOperation(rc.name, summary, "delete-conditional", scopeType, rc.name)
	addParams(op, r.searchParamRefs(rc.name, rc.params)...)
	op.Responses = r.responses(conditionalResponses, r.resourceSchemaRef(fhirmodels.TypeOperationOutcome))
	return op
}

func (r *run) deleteHistoryOperation(rc *resourceContext, version bool) *openapi3.Operation {
	var op *openapi3.Operation
	if version {
		op = r.newOperation(rc.name, "Delete a version of "+rc.name, "delete-history-version", scopeInstance, rc.name)
		addParams(op, r.paramRef(paramLogicalID), r.paramRef(paramResourceVersion))
	} else {
		op = r.newOperation(rc.name, "Delete the history of "+rc.name, "delete-history", scopeInstance, rc.name)
		addParams(op, r.paramRef(paramLogicalID))
	}
	op.Responses = r.responses(deleteResponses, r.resourceSchemaRef(fhirmodels.TypeOperationOutcome))
	return op
}

func (r *run) historyOperation(tag, summary, scope, resource string) *openapi3.Operation {
	op := r.newOperation(tag, summary, "history", scope, resource)
	if scope == scopeInstance {
		addParams(op, r.paramRef(paramLogicalID))
	}
	addParams(op, r.catalogRefs(r.b.catalog.History)...)
	addParams(op, r.paramRef("_count"))
	op.Responses = r.responses(searchResponses, r.resourceSchemaRef(fhirmodels.TypeBundle))
	return op
}

func (r *run) createOperation(rc *resourceContext) *openapi3.Operation {
	op := r.newOperation(rc.name, "Create "+rc.name, "create", scopeType, rc.name)
	if r.policy.ResolveCreateConditional(rc.name) {
		addParams(op, r.paramRef(headerIfNoneExist))
	}
	if r.opts.IncludeHeaders {
		addParams(op, r.paramRef(headerPrefer))
	}
	r.withBody(op, r.fhirContent(r.resourceSchemaRef(rc.name)), true)
	op.Responses = r.responses(createResponses, r.resourceSchemaRef(rc.name))
	return op
}

func (r *run) searchOperation(tag, summary, scope, resource, method string, params []SearchParameterDescriptor) *openapi3.Operation {
	op := r.newOperation(tag, summary, "search", scope, resource, strings.ToLower(method))
	if method == http.MethodGet {
		addParams(op, r.searchParamRefs(resource, params)...)
		addParams(op, r.catalogRefs(r.b.catalog.Read)...)
		addParams(op, r.catalogRefs(r.b.catalog.SearchResult)...)
	} else {
		r.withBody(op, r.searchForm(params), false)
	}
	op.Responses = r.responses(searchResponses, r.resourceSchemaRef(fhirmodels.TypeBundle))
	return op
}

func (r *run) capabilitiesOperation() *openapi3.Operation {
	op := r.newOperation(systemTag, "Server capability statement", "capabilities", scopeSystem)
	op.Responses = r.responses(capabilitiesResponses, r.resourceSchemaRef(fhirmodels.TypeCapability))
	return op
}

func (r *run) batchOperation() *openapi3.Operation {
	op := r.newOperation(systemTag, "Batch or transaction", "batch", scopeSystem)
	r.withBody(op, r.fhirContent(r.resourceSchemaRef(fhirmodels.TypeBundle)), true)
	op.Responses = r.responses(searchResponses, r.resourceSchemaRef(fhirmodels.TypeBundle))
	return op
}

// customOperation builds the common part of an extended operation.
func (r *run) customOperation(resource string, def *fhir.OperationDefinition, scope, method string) *openapi3.Operation {
	tag := resource
	if tag == "" {
		tag = systemTag
	}
	summary := def.Title
	if summary == "" {
		summary = "$" + def.Code
	}
	op := r.newOperation(tag, summary, "operation", scope, resource, def.Code, strings.ToLower(method))
	if def.Description != "" {
		op.Description = r.describe(def.Description)
	}
	if scope == scopeInstance {
		addParams(op, r.paramRef(paramLogicalID))
	}
	op.Responses = r.responses(operationResponses, r.operationOutput(def))
	return op
}

// operationGet builds the GET form of an operation. It returns nil without
// error when GET is not offered, and errNotQueryable when a required input
// is complex.
func (r *run) operationGet(resource string, def *fhir.OperationDefinition, scope string) (*openapi3.Operation, error) {
	if def.AffectsState || !r.opts.OperationMethods.AllowsGet() {
		return nil, nil
	}
	var params []*openapi3.ParameterRef
	for _, p := range def.Inputs() {
		if r.isPrimitiveParam(p) {
			params = append(params, &openapi3.ParameterRef{Value: r.operationQueryParam(p)})
			continue
		}
		if p.IsRequired() {
			return nil, fmt.Errorf("$%s input %s: %w", def.Code, p.Name, errNotQueryable)
		}
	}
	op := r.customOperation(resource, def, scope, http.MethodGet)
	addParams(op, params...)
	return op, nil
}

// operationPost builds the POST form. A single resource input travels as
// the body itself; anything else is wrapped in Parameters.
func (r *run) operationPost(resource string, def *fhir.OperationDefinition, scope string) *openapi3.Operation {
	op := r.customOperation(resource, def, scope, http.MethodPost)

	var resources, complexInputs, primitives []fhir.OperationParam
	for _, p := range def.Inputs() {
		switch {
		case r.isPrimitiveParam(p):
			primitives = append(primitives, p)
		case len(p.Part) == 0 && r.src.IsResource(p.Type):
			resources = append(resources, p)
		default:
			complexInputs = append(complexInputs, p)
		}
	}

	if len(resources) == 1 && len(complexInputs) == 0 {
		for _, p := range primitives {
			addParams(op, &openapi3.ParameterRef{Value: r.operationQueryParam(p)})
		}
		r.withBody(op, r.fhirContent(r.resourceSchemaRef(resources[0].Type)), resources[0].IsRequired())
		return op
	}

	required := false
	for _, p := range def.Inputs() {
		if p.IsRequired() {
			required = true
		}
	}
	r.withBody(op, r.fhirContent(r.resourceSchemaRef(fhirmodels.TypeParameters)), required)
	return op
}

func (r *run) isPrimitiveParam(p fhir.OperationParam) bool {
	if p.Type == "" || len(p.Part) > 0 {
		return false
	}
	return r.src.IsPrimitive(fhir.ElementType{Code: p.Type}.TypeCode())
}

func (r *run) operationQueryParam(p fhir.OperationParam) *openapi3.Parameter {
	schema := primitiveSchema(fhir.ElementType{Code: p.Type}.TypeCode(), "")
	if p.IsRepeating() {
		schema = openapi3.NewArraySchema().WithItems(schema)
	}
	param := openapi3.NewQueryParameter(p.Name).WithSchema(schema).WithRequired(p.IsRequired())
	if p.Documentation != "" {
		param.Description = r.describe(p.Documentation)
	}
	return param
}

// operationOutput is the success body: the single output resource when it
// has a schema, Parameters otherwise.
func (r *run) operationOutput(def *fhir.OperationDefinition) *openapi3.SchemaRef {
	outs := def.Outputs()
	if len(outs) == 1 && r.schemaNames[outs[0].Type] {
		return r.resourceSchemaRef(outs[0].Type)
	}
	return r.resourceSchemaRef(fhirmodels.TypeParameters)
}
