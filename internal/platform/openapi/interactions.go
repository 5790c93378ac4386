package openapi

import (
	"sort"

	"github.com/microsoft/fhir-codegen-sub025/internal/platform/fhir"
	"github.com/microsoft/fhir-codegen-sub025/pkg/fhirmodels"
)

// Interaction is an expanded REST interaction: the FHIR interaction codes
// plus their conditional and history-deletion variants.
type Interaction string

const (
	InteractionCapabilities              Interaction = "capabilities"
	InteractionRead                      Interaction = "read"
	InteractionVRead                     Interaction = "vread"
	InteractionUpdate                    Interaction = "update"
	InteractionUpdateConditional         Interaction = "update-conditional"
	InteractionPatch                     Interaction = "patch"
	InteractionPatchConditional          Interaction = "patch-conditional"
	InteractionDelete                    Interaction = "delete"
	InteractionDeleteConditionalSingle   Interaction = "delete-conditional-single"
	InteractionDeleteConditionalMultiple Interaction = "delete-conditional-multiple"
	InteractionDeleteHistory             Interaction = "delete-history"
	InteractionDeleteHistoryVersion      Interaction = "delete-history-version"
	InteractionHistoryInstance           Interaction = "history-instance"
	InteractionHistoryType               Interaction = "history-type"
	InteractionCreate                    Interaction = "create"
	InteractionCreateConditional         Interaction = "create-conditional"
	InteractionSearchType                Interaction = "search-type"
	InteractionOperation                 Interaction = "operation"
	InteractionHistorySystem             Interaction = "history-system"
	InteractionSearchSystem              Interaction = "search-system"
	InteractionBatchTransaction          Interaction = "batch-transaction"
)

// resourceInteractions lists the resource-level interactions with their
// static default (used when neither a capability statement nor a
// per-resource override decides).
var resourceInteractions = []struct {
	interaction Interaction
	byDefault   bool
}{
	{InteractionRead, true},
	{InteractionVRead, true},
	{InteractionUpdate, true},
	{InteractionUpdateConditional, false},
	{InteractionPatch, true},
	{InteractionPatchConditional, false},
	{InteractionDelete, true},
	{InteractionDeleteConditionalSingle, false},
	{InteractionDeleteConditionalMultiple, false},
	{InteractionDeleteHistory, false},
	{InteractionDeleteHistoryVersion, false},
	{InteractionHistoryInstance, true},
	{InteractionHistoryType, true},
	{InteractionCreate, true},
	{InteractionCreateConditional, false},
	{InteractionSearchType, true},
	{InteractionOperation, true},
}

var systemInteractions = []Interaction{
	InteractionCapabilities,
	InteractionHistorySystem,
	InteractionSearchSystem,
	InteractionBatchTransaction,
}

func (i Interaction) known() bool {
	return i.resourceLevel() || i.systemLevel()
}

func (i Interaction) resourceLevel() bool {
	for _, ri := range resourceInteractions {
		if ri.interaction == i {
			return true
		}
	}
	return false
}

func (i Interaction) systemLevel() bool {
	for _, si := range systemInteractions {
		if si == i {
			return true
		}
	}
	return false
}

// staticAllows reports whether the static configuration (no capability
// statement) allows i for resource.
func staticAllows(opts *Options, resource string, i Interaction) bool {
	if static, ok := opts.ResourceInteractions[resource]; ok {
		for _, s := range static {
			if s == i {
				return true
			}
		}
		return false
	}
	for _, ri := range resourceInteractions {
		if ri.interaction == i {
			return ri.byDefault
		}
	}
	return false
}

// Fixed interaction sets unioned in by the ReadOnly and WriteOnly options.
var (
	readOnlyInteractions = []Interaction{
		InteractionRead, InteractionVRead, InteractionHistoryInstance, InteractionHistoryType, InteractionSearchType,
	}
	writeOnlyInteractions = []Interaction{
		InteractionCreate, InteractionUpdate, InteractionPatch, InteractionDelete,
	}
)

// interactionSelector decides which interactions reach the path assembler.
// Every per-interaction decision comes from the policy.
type interactionSelector struct {
	policy Policy
}

// exported reports whether a resource passes the export filters: the
// export keys and, when loaded, the capability statement.
func (s interactionSelector) exported(resource string) bool {
	if !s.policy.opts.exports(resource) {
		return false
	}
	if cs := s.policy.cs; cs != nil && !cs.HasResource(resource) {
		return false
	}
	return true
}

// GetInteractions returns the sorted interaction set for resource.
func (s interactionSelector) GetInteractions(resource string) []Interaction {
	if !s.exported(resource) {
		return nil
	}

	set := make(map[Interaction]bool)
	// A declared interaction is never removed, even when configured False.
	if rc, ok := s.policy.cs.Resource(resource); ok {
		for _, i := range translateCapability(rc) {
			set[i] = true
		}
	}
	for _, ri := range resourceInteractions {
		if s.policy.Resolve(resource, ri.interaction) {
			set[ri.interaction] = true
		}
	}

	opts := s.policy.opts
	if opts.ReadOnly {
		for _, i := range readOnlyInteractions {
			set[i] = true
		}
	}
	if opts.WriteOnly {
		for _, i := range writeOnlyInteractions {
			set[i] = true
		}
	}

	out := make([]Interaction, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// translateCapability maps a capability entry onto the expanded vocabulary.
func translateCapability(rc *fhir.ResourceCapability) []Interaction {
	var out []Interaction
	for _, ic := range rc.Interaction {
		switch ic.Code {
		case fhirmodels.InteractionRead:
			out = append(out, InteractionRead)
		case fhirmodels.InteractionVRead:
			out = append(out, InteractionVRead)
		case fhirmodels.InteractionUpdate:
			out = append(out, InteractionUpdate)
			if rc.ConditionalUpdate {
				out = append(out, InteractionUpdateConditional)
			}
		case fhirmodels.InteractionPatch:
			out = append(out, InteractionPatch)
			if rc.ConditionalPatch {
				out = append(out, InteractionPatchConditional)
			}
		case fhirmodels.InteractionDelete:
			out = append(out, InteractionDelete)
			switch rc.ConditionalDeleteMode() {
			case fhirmodels.ConditionalDeleteSingle:
				out = append(out, InteractionDeleteConditionalSingle)
			case fhirmodels.ConditionalDeleteMultiple:
				out = append(out, InteractionDeleteConditionalMultiple)
			}
		case fhirmodels.InteractionHistoryInstance:
			out = append(out, InteractionHistoryInstance)
		case fhirmodels.InteractionHistoryType:
			out = append(out, InteractionHistoryType)
		case fhirmodels.InteractionCreate:
			out = append(out, InteractionCreate)
			if rc.ConditionalCreate {
				out = append(out, InteractionCreateConditional)
			}
		case fhirmodels.InteractionSearchType:
			out = append(out, InteractionSearchType)
		}
	}
	if len(rc.Operation) > 0 {
		out = append(out, InteractionOperation)
	}
	return out
}

func containsInteraction(set []Interaction, i Interaction) bool {
	for _, s := range set {
		if s == i {
			return true
		}
	}
	return false
}
