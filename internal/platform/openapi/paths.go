package openapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/microsoft/fhir-codegen-sub025/internal/platform/fhir"
	"github.com/microsoft/fhir-codegen-sub025/pkg/fhirmodels"
)

// buildPaths assembles every path item: system interactions first, then
// each exported concrete resource.
func (r *run) buildPaths() *openapi3.Paths {
	r.paths = openapi3.NewPaths()
	r.addSystemPaths()

	for _, sd := range r.src.Resources() {
		if sd.Abstract {
			continue
		}
		interactions := r.selector.GetInteractions(sd.Name)
		if len(interactions) == 0 {
			continue
		}
		rc := &resourceContext{
			name:   sd.Name,
			sd:     sd,
			params: r.search.GetResourceSearchParameters(sd.Name),
			tag:    r.describe(sd.Description),
		}
		for _, i := range interactions {
			r.addInteraction(rc, i)
		}
	}
	return r.paths
}

// addOperation attaches op to path under method. The first operation on a
// path creates the item (with the HTTP common parameters); a method that is
// already present is left untouched.
func (r *run) addOperation(path, method string, op *openapi3.Operation, tagDescription string) bool {
	item := r.paths.Value(path)
	if item == nil {
		item = &openapi3.PathItem{}
		if r.opts.IncludeHTTPCommonParams {
			for _, ref := range r.catalogRefs(r.b.catalog.HTTPCommon) {
				if ref == nil {
					continue
				}
				item.Parameters = append(item.Parameters, ref)
				r.countParam(ref)
			}
		}
		r.paths.Set(path, item)
	}
	if item.GetOperation(method) != nil {
		return false
	}
	item.SetOperation(method, op)
	r.stats.Operations++
	for _, ref := range op.Parameters {
		r.countParam(ref)
	}
	for _, tag := range op.Tags {
		if _, ok := r.tags[tag]; !ok || r.tags[tag] == "" {
			r.tags[tag] = tagDescription
		}
	}
	return true
}

func (r *run) countParam(ref *openapi3.ParameterRef) {
	r.stats.ParamInstances++
	if ref.Value != nil && ref.Value.In == openapi3.ParameterInQuery {
		r.stats.QueryParameters++
	}
}

func (r *run) addInteraction(rc *resourceContext, i Interaction) {
	base := "/" + rc.name
	instance := base + "/{" + paramLogicalID + "}"
	version := instance + "/_history/{" + paramResourceVersion + "}"
	tag := rc.tag

	switch i {
	case InteractionRead:
		r.addOperation(instance, http.MethodGet, r.readOperation(rc), tag)
	case InteractionVRead:
		r.addOperation(version, http.MethodGet, r.vreadOperation(rc), tag)
	case InteractionUpdate:
		r.addOperation(instance, http.MethodPut, r.updateOperation(rc, false), tag)
	case InteractionUpdateConditional:
		r.addOperation(base, http.MethodPut, r.updateOperation(rc, true), tag)
	case InteractionPatch:
		r.addOperation(instance, http.MethodPatch, r.patchOperation(rc, false), tag)
	case InteractionPatchConditional:
		r.addOperation(base, http.MethodPatch, r.patchOperation(rc, true), tag)
	case InteractionDelete:
		r.addOperation(instance, http.MethodDelete, r.deleteOperation(rc), tag)
	case InteractionDeleteConditionalSingle, InteractionDeleteConditionalMultiple:
		r.addOperation(base, http.MethodDelete, r.deleteConditionalOperation(rc), tag)
	case InteractionDeleteHistory:
		r.addOperation(instance+"/_history", http.MethodDelete, r.deleteHistoryOperation(rc, false), tag)
	case InteractionDeleteHistoryVersion:
		r.addOperation(version, http.MethodDelete, r.deleteHistoryOperation(rc, true), tag)
	case InteractionHistoryInstance:
		r.addOperation(instance+"/_history", http.MethodGet,
			r.historyOperation(rc.name, "History of a "+rc.name+" instance", scopeInstance, rc.name), tag)
	case InteractionHistoryType:
		r.addOperation(base+"/_history", http.MethodGet,
			r.historyOperation(rc.name, "History of all "+rc.name+" resources", scopeType, rc.name), tag)
	case InteractionCreate, InteractionCreateConditional:
		r.addOperation(base, http.MethodPost, r.createOperation(rc), tag)
	case InteractionSearchType:
		if r.opts.SearchMethods.AllowsGet() {
			r.addOperation(base, http.MethodGet,
				r.searchOperation(rc.name, "Search "+rc.name, scopeType, rc.name, http.MethodGet, rc.params), tag)
		}
		if r.opts.SearchMethods.AllowsPost() {
			r.addOperation(base+"/_search", http.MethodPost,
				r.searchOperation(rc.name, "Search "+rc.name, scopeType, rc.name, http.MethodPost, rc.params), tag)
		}
	case InteractionOperation:
		for _, def := range r.resourceOperations(rc.name) {
			if def.Type {
				r.addCustomOperation(rc.name, def, scopeType, tag)
			}
			if def.Instance {
				r.addCustomOperation(rc.name, def, scopeInstance, tag)
			}
		}
	}
}

func (r *run) addSystemPaths() {
	const tag = "Server-level interactions"

	if r.policy.resolveSystem(InteractionCapabilities, func(*fhir.CapabilityStatement) bool { return true }) {
		r.addOperation("/metadata", http.MethodGet, r.capabilitiesOperation(), tag)
	}
	if r.policy.resolveSystem(InteractionSearchSystem, declaresSystem(fhirmodels.InteractionSearchSystem)) {
		if r.opts.SearchMethods.AllowsGet() {
			r.addOperation("/", http.MethodGet,
				r.searchOperation(systemTag, "Search all resources", scopeSystem, "", http.MethodGet, nil), tag)
		}
		if r.opts.SearchMethods.AllowsPost() {
			r.addOperation("/_search", http.MethodPost,
				r.searchOperation(systemTag, "Search all resources", scopeSystem, "", http.MethodPost, nil), tag)
		}
	}
	if r.policy.resolveSystem(InteractionHistorySystem, declaresSystem(fhirmodels.InteractionHistorySystem)) {
		r.addOperation("/_history", http.MethodGet,
			r.historyOperation(systemTag, "History of all resources", scopeSystem, ""), tag)
	}
	if r.policy.resolveSystem(InteractionBatchTransaction, func(cs *fhir.CapabilityStatement) bool {
		return cs.HasSystemInteraction(fhirmodels.InteractionBatch) || cs.HasSystemInteraction(fhirmodels.InteractionTransaction)
	}) {
		r.addOperation("/", http.MethodPost, r.batchOperation(), tag)
	}

	for _, def := range r.systemOperations() {
		r.addCustomOperation("", def, scopeSystem, tag)
	}
}

func declaresSystem(code string) func(*fhir.CapabilityStatement) bool {
	return func(cs *fhir.CapabilityStatement) bool { return cs.HasSystemInteraction(code) }
}

// resourceOperations returns the extended (non-query) operations offered
// on resource.
func (r *run) resourceOperations(resource string) []*fhir.OperationDefinition {
	var out []*fhir.OperationDefinition
	if r.cs != nil {
		rc, ok := r.cs.Resource(resource)
		if !ok {
			return nil
		}
		for _, oc := range rc.Operation {
			def := r.search.resolveOperation(oc)
			if def == nil {
				def = synthesizedOperation(oc)
			}
			if !def.IsQuery() {
				out = append(out, def)
			}
		}
		return out
	}
	for _, def := range r.src.Operations() {
		if !def.IsQuery() && def.AppliesTo(resource) && (def.Type || def.Instance) {
			out = append(out, def)
		}
	}
	return out
}

// systemOperations returns the operations invoked on the server root.
func (r *run) systemOperations() []*fhir.OperationDefinition {
	var out []*fhir.OperationDefinition
	if r.cs != nil {
		for _, oc := range r.cs.SystemOperations() {
			def := r.search.resolveOperation(oc)
			if def == nil {
				def = synthesizedOperation(oc)
			}
			if !def.IsQuery() {
				out = append(out, def)
			}
		}
		return out
	}
	if r.opts.Interaction(InteractionOperation) == False {
		return nil
	}
	for _, def := range r.src.Operations() {
		if def.System && !def.IsQuery() {
			out = append(out, def)
		}
	}
	return out
}

// synthesizedOperation stands in for a declared operation whose definition
// is not loaded. It is assumed to change state, so only POST is offered.
func synthesizedOperation(oc fhir.OperationCapability) *fhir.OperationDefinition {
	return &fhir.OperationDefinition{
		URL:          oc.Definition,
		Name:         oc.Name,
		Kind:         fhirmodels.OperationKindOperation,
		Code:         strings.TrimPrefix(oc.Name, "$"),
		AffectsState: true,
		System:       true,
		Type:         true,
		Description:  oc.Documentation,
	}
}

func (r *run) addCustomOperation(resource string, def *fhir.OperationDefinition, scope, tag string) {
	var path string
	switch scope {
	case scopeSystem:
		path = "/$" + def.Code
	case scopeType:
		path = "/" + resource + "/$" + def.Code
	default:
		path = "/" + resource + "/{" + paramLogicalID + "}/$" + def.Code
	}

	get, err := r.operationGet(resource, def, scope)
	switch {
	case errors.Is(err, errNotQueryable):
		r.logger.Debug().Err(err).Str("path", path).Msg("skipping GET form of operation")
	case get != nil:
		r.addOperation(path, http.MethodGet, get, tag)
	}
	if r.opts.OperationMethods.AllowsPost() {
		r.addOperation(path, http.MethodPost, r.operationPost(resource, def, scope), tag)
	}
}
