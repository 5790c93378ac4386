package openapi

import (
	"github.com/microsoft/fhir-codegen-sub025/internal/platform/fhir"
	"github.com/microsoft/fhir-codegen-sub025/pkg/fhirmodels"
)

// ConditionalDeleteMode is the resolved conditional delete support.
type ConditionalDeleteMode int

const (
	ConditionalDeleteNotSupported ConditionalDeleteMode = iota
	ConditionalDeleteSingle
	ConditionalDeleteMultiple
)

// resolvePolicy reduces a configured tri-state and an optional capability
// fact to a decision. True and False always win; Capabilities uses the fact
// when lookup finds one, else absent.
func resolvePolicy(configured TriState, lookup func() (value, found bool), absent bool) bool {
	switch configured {
	case True:
		return true
	case False:
		return false
	}
	if lookup != nil {
		if v, ok := lookup(); ok {
			return v
		}
	}
	return absent
}

// Policy answers per-resource capability questions. It holds no state
// beyond its inputs.
type Policy struct {
	opts *Options
	cs   *fhir.CapabilityStatement
}

// capability builds a lookup that evaluates fact against the resource's
// capability entry. Resources absent from the statement yield no fact.
func (p Policy) capability(resource string, fact func(*fhir.ResourceCapability) bool) func() (bool, bool) {
	return func() (bool, bool) {
		if p.cs == nil {
			return false, false
		}
		rc, ok := p.cs.Resource(resource)
		if !ok {
			return false, false
		}
		return fact(rc), true
	}
}

func declares(code string) func(*fhir.ResourceCapability) bool {
	return func(rc *fhir.ResourceCapability) bool { return rc.HasInteraction(code) }
}

// absent is the decision used when no capability fact exists: the static
// configuration when no statement is loaded, otherwise not supported.
func (p Policy) absent(resource string, i Interaction) bool {
	if p.cs != nil {
		return false
	}
	return staticAllows(p.opts, resource, i)
}

func (p Policy) resolve(resource string, i Interaction, fact func(*fhir.ResourceCapability) bool) bool {
	return resolvePolicy(p.opts.Interaction(i), p.capability(resource, fact), p.absent(resource, i))
}

// ResolveRead reports whether read is supported for resource.
func (p Policy) ResolveRead(resource string) bool {
	return p.resolve(resource, InteractionRead, declares(fhirmodels.InteractionRead))
}

// ResolveVRead reports whether vread is supported for resource.
func (p Policy) ResolveVRead(resource string) bool {
	return p.resolve(resource, InteractionVRead, declares(fhirmodels.InteractionVRead))
}

// ResolveUpdate reports whether update is supported for resource.
func (p Policy) ResolveUpdate(resource string) bool {
	return p.resolve(resource, InteractionUpdate, declares(fhirmodels.InteractionUpdate))
}

// ResolveUpdateConditional reports whether conditional update is supported.
// A statement must declare update for the flag to count.
func (p Policy) ResolveUpdateConditional(resource string) bool {
	return p.resolve(resource, InteractionUpdateConditional, func(rc *fhir.ResourceCapability) bool {
		return rc.ConditionalUpdate && rc.HasInteraction(fhirmodels.InteractionUpdate)
	})
}

// ResolvePatch reports whether patch is supported for resource.
func (p Policy) ResolvePatch(resource string) bool {
	return p.resolve(resource, InteractionPatch, declares(fhirmodels.InteractionPatch))
}

// ResolvePatchConditional reports whether conditional patch is supported.
func (p Policy) ResolvePatchConditional(resource string) bool {
	return p.resolve(resource, InteractionPatchConditional, func(rc *fhir.ResourceCapability) bool {
		return rc.ConditionalPatch && rc.HasInteraction(fhirmodels.InteractionPatch)
	})
}

// ResolveDelete reports whether delete is supported for resource.
func (p Policy) ResolveDelete(resource string) bool {
	return p.resolve(resource, InteractionDelete, declares(fhirmodels.InteractionDelete))
}

func deleteMode(want string) func(*fhir.ResourceCapability) bool {
	return func(rc *fhir.ResourceCapability) bool {
		return rc.ConditionalDeleteMode() == want && rc.HasInteraction(fhirmodels.InteractionDelete)
	}
}

// ResolveDeleteConditional returns the conditional delete mode. Multiple
// takes precedence over single when both resolve true.
func (p Policy) ResolveDeleteConditional(resource string) ConditionalDeleteMode {
	if p.resolve(resource, InteractionDeleteConditionalMultiple, deleteMode(fhirmodels.ConditionalDeleteMultiple)) {
		return ConditionalDeleteMultiple
	}
	if p.resolve(resource, InteractionDeleteConditionalSingle, deleteMode(fhirmodels.ConditionalDeleteSingle)) {
		return ConditionalDeleteSingle
	}
	return ConditionalDeleteNotSupported
}

// ResolveCreate reports whether create is supported for resource.
func (p Policy) ResolveCreate(resource string) bool {
	return p.resolve(resource, InteractionCreate, declares(fhirmodels.InteractionCreate))
}

// ResolveCreateConditional reports whether conditional create is supported.
func (p Policy) ResolveCreateConditional(resource string) bool {
	return p.resolve(resource, InteractionCreateConditional, func(rc *fhir.ResourceCapability) bool {
		return rc.ConditionalCreate && rc.HasInteraction(fhirmodels.InteractionCreate)
	})
}

// ResolveHistoryInstance reports whether instance history is supported.
func (p Policy) ResolveHistoryInstance(resource string) bool {
	return p.resolve(resource, InteractionHistoryInstance, declares(fhirmodels.InteractionHistoryInstance))
}

// ResolveHistoryType reports whether type history is supported.
func (p Policy) ResolveHistoryType(resource string) bool {
	return p.resolve(resource, InteractionHistoryType, declares(fhirmodels.InteractionHistoryType))
}

// Resolve decides any resource-level interaction. Conditional delete
// variants are decided independently here; ResolveDeleteConditional applies
// the multiple-over-single precedence.
func (p Policy) Resolve(resource string, i Interaction) bool {
	switch i {
	case InteractionRead:
		return p.ResolveRead(resource)
	case InteractionVRead:
		return p.ResolveVRead(resource)
	case InteractionUpdate:
		return p.ResolveUpdate(resource)
	case InteractionUpdateConditional:
		return p.ResolveUpdateConditional(resource)
	case InteractionPatch:
		return p.ResolvePatch(resource)
	case InteractionPatchConditional:
		return p.ResolvePatchConditional(resource)
	case InteractionDelete:
		return p.ResolveDelete(resource)
	case InteractionDeleteConditionalSingle:
		return p.resolve(resource, i, deleteMode(fhirmodels.ConditionalDeleteSingle))
	case InteractionDeleteConditionalMultiple:
		return p.resolve(resource, i, deleteMode(fhirmodels.ConditionalDeleteMultiple))
	case InteractionCreate:
		return p.ResolveCreate(resource)
	case InteractionCreateConditional:
		return p.ResolveCreateConditional(resource)
	case InteractionHistoryInstance:
		return p.ResolveHistoryInstance(resource)
	case InteractionHistoryType:
		return p.ResolveHistoryType(resource)
	case InteractionSearchType:
		return p.resolve(resource, i, declares(fhirmodels.InteractionSearchType))
	case InteractionOperation:
		return p.resolve(resource, i, func(rc *fhir.ResourceCapability) bool { return len(rc.Operation) > 0 })
	case InteractionDeleteHistory, InteractionDeleteHistoryVersion:
		// R4 statements cannot declare history deletion.
		return p.resolve(resource, i, func(*fhir.ResourceCapability) bool { return false })
	}
	return false
}

// resolveSystem decides a system-level interaction. With a capability
// statement the fact is whether the statement declares it; without one the
// interaction is on unless configured False.
func (p Policy) resolveSystem(i Interaction, declared func(*fhir.CapabilityStatement) bool) bool {
	lookup := func() (bool, bool) {
		if p.cs == nil {
			return false, false
		}
		return declared(p.cs), true
	}
	return resolvePolicy(p.opts.Interaction(i), lookup, p.cs == nil)
}
