package fhir

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/microsoft/fhir-codegen-sub025/pkg/fhirmodels"
)

// ErrMultipleCoreVersions is returned when definitions from different FHIR
// core releases are added to one collection.
var ErrMultipleCoreVersions = errors.New("multiple FHIR core versions loaded")

// ---------------------------------------------------------------------------
// DefinitionCollection
// ---------------------------------------------------------------------------

// DefinitionCollection is a thread-safe in-memory store of the conformance
// resources of one FHIR release: structure definitions keyed by name and by
// canonical URL, search parameters, and operation definitions.
type DefinitionCollection struct {
	mu          sync.RWMutex
	fhirVersion string

	primitives   map[string]*StructureDefinition // keyed by name
	complexTypes map[string]*StructureDefinition
	resources    map[string]*StructureDefinition
	byURL        map[string]*StructureDefinition // includes profiles and extensions

	searchParams map[string]*SearchParameter     // keyed by URL
	operations   map[string]*OperationDefinition // keyed by URL

	// children maps structure URL -> parent element path -> direct children.
	children map[string]map[string][]*ElementDefinition
	// elements maps an element path to its owning structure and definition.
	elements map[string]elementRef
}

type elementRef struct {
	sd *StructureDefinition
	ed *ElementDefinition
}

// NewDefinitionCollection creates an empty DefinitionCollection.
func NewDefinitionCollection() *DefinitionCollection {
	return &DefinitionCollection{
		primitives:   make(map[string]*StructureDefinition),
		complexTypes: make(map[string]*StructureDefinition),
		resources:    make(map[string]*StructureDefinition),
		byURL:        make(map[string]*StructureDefinition),
		searchParams: make(map[string]*SearchParameter),
		operations:   make(map[string]*OperationDefinition),
		children:     make(map[string]map[string][]*ElementDefinition),
		elements:     make(map[string]elementRef),
	}
}

// SetFHIRVersion records the core version of the collection. Setting a
// version from a different release than the one already recorded fails with
// ErrMultipleCoreVersions.
func (c *DefinitionCollection) SetFHIRVersion(version string) error {
	if version == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setVersionLocked(version)
}

func (c *DefinitionCollection) setVersionLocked(version string) error {
	if c.fhirVersion == "" {
		c.fhirVersion = version
		return nil
	}
	if !sameRelease(c.fhirVersion, version) {
		return fmt.Errorf("%w: %s and %s", ErrMultipleCoreVersions, c.fhirVersion, version)
	}
	return nil
}

// sameRelease reports whether two version literals belong to one release.
// Versions outside the known releases only match themselves.
func sameRelease(a, b string) bool {
	ra, rb := ReleaseForVersion(a), ReleaseForVersion(b)
	if ra == fhirmodels.ReleaseUnknown || rb == fhirmodels.ReleaseUnknown {
		return a == b
	}
	return ra == rb
}

// Add decodes a single conformance resource and stores it. Resource types
// the collection does not track are ignored.
func (c *DefinitionCollection) Add(raw []byte) error {
	var head struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return fmt.Errorf("decode resource: %w", err)
	}

	switch head.ResourceType {
	case "StructureDefinition":
		var sd StructureDefinition
		if err := json.Unmarshal(raw, &sd); err != nil {
			return fmt.Errorf("decode StructureDefinition: %w", err)
		}
		return c.AddStructureDefinition(&sd)
	case "SearchParameter":
		var sp SearchParameter
		if err := json.Unmarshal(raw, &sp); err != nil {
			return fmt.Errorf("decode SearchParameter: %w", err)
		}
		return c.AddSearchParameter(&sp)
	case "OperationDefinition":
		var op OperationDefinition
		if err := json.Unmarshal(raw, &op); err != nil {
			return fmt.Errorf("decode OperationDefinition: %w", err)
		}
		return c.AddOperationDefinition(&op)
	case "Bundle":
		var b struct {
			Entry []struct {
				Resource json.RawMessage `json:"resource"`
			} `json:"entry"`
		}
		if err := json.Unmarshal(raw, &b); err != nil {
			return fmt.Errorf("decode Bundle: %w", err)
		}
		for _, e := range b.Entry {
			if len(e.Resource) == 0 {
				continue
			}
			if err := c.Add(e.Resource); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddStructureDefinition stores a structure definition. Core (non-profile)
// definitions are indexed by name; every definition is indexed by URL.
func (c *DefinitionCollection) AddStructureDefinition(sd *StructureDefinition) error {
	if sd.URL == "" || sd.Name == "" {
		return fmt.Errorf("structure definition missing url or name")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if sd.FHIRVersion != "" && !sd.IsProfile() {
		if err := c.setVersionLocked(sd.FHIRVersion); err != nil {
			return err
		}
	}

	c.byURL[sd.URL] = sd
	if sd.IsProfile() {
		return nil
	}

	switch sd.Kind {
	case fhirmodels.KindPrimitiveType:
		c.primitives[sd.Name] = sd
	case fhirmodels.KindComplexType:
		c.complexTypes[sd.Name] = sd
	case fhirmodels.KindResource:
		c.resources[sd.Name] = sd
	default:
		return nil
	}

	idx := make(map[string][]*ElementDefinition)
	for _, ed := range sd.Elements() {
		if strings.Contains(ed.ID, ":") {
			continue // slices are not part of the base element tree
		}
		c.elements[ed.Path] = elementRef{sd: sd, ed: ed}
		if i := strings.LastIndex(ed.Path, "."); i > 0 {
			parent := ed.Path[:i]
			idx[parent] = append(idx[parent], ed)
		}
	}
	c.children[sd.URL] = idx
	return nil
}

// AddSearchParameter stores a search parameter keyed by canonical URL.
func (c *DefinitionCollection) AddSearchParameter(sp *SearchParameter) error {
	if sp.URL == "" || sp.Code == "" {
		return fmt.Errorf("search parameter missing url or code")
	}
	c.mu.Lock()
	c.searchParams[sp.URL] = sp
	c.mu.Unlock()
	return nil
}

// AddOperationDefinition stores an operation definition keyed by canonical URL.
func (c *DefinitionCollection) AddOperationDefinition(op *OperationDefinition) error {
	if op.URL == "" || op.Code == "" {
		return fmt.Errorf("operation definition missing url or code")
	}
	c.mu.Lock()
	c.operations[op.URL] = op
	c.mu.Unlock()
	return nil
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

// FHIRVersion returns the core version literal, e.g. "4.0.1".
func (c *DefinitionCollection) FHIRVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fhirVersion
}

// Release returns the release literal of the core version, e.g. "R4".
func (c *DefinitionCollection) Release() string {
	return ReleaseForVersion(c.FHIRVersion())
}

// Resources returns all resource definitions sorted by name.
func (c *DefinitionCollection) Resources() []*StructureDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedStructures(c.resources)
}

// ComplexTypes returns all complex type definitions sorted by name.
func (c *DefinitionCollection) ComplexTypes() []*StructureDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedStructures(c.complexTypes)
}

func sortedStructures(m map[string]*StructureDefinition) []*StructureDefinition {
	out := make([]*StructureDefinition, 0, len(m))
	for _, sd := range m {
		out = append(out, sd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Resource looks up a resource definition by name.
func (c *DefinitionCollection) Resource(name string) (*StructureDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sd, ok := c.resources[name]
	return sd, ok
}

// ComplexType looks up a complex type definition by name.
func (c *DefinitionCollection) ComplexType(name string) (*StructureDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sd, ok := c.complexTypes[name]
	return sd, ok
}

// PrimitiveType looks up a primitive type definition by name.
func (c *DefinitionCollection) PrimitiveType(name string) (*StructureDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sd, ok := c.primitives[name]
	return sd, ok
}

// IsPrimitive reports whether name is a known primitive type.
func (c *DefinitionCollection) IsPrimitive(name string) bool {
	_, ok := c.PrimitiveType(name)
	return ok
}

// IsComplexType reports whether name is a known complex type.
func (c *DefinitionCollection) IsComplexType(name string) bool {
	_, ok := c.ComplexType(name)
	return ok
}

// IsResource reports whether name is a known resource type.
func (c *DefinitionCollection) IsResource(name string) bool {
	_, ok := c.Resource(name)
	return ok
}

// StructureByURL looks up any structure definition, profiles included.
func (c *DefinitionCollection) StructureByURL(url string) (*StructureDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sd, ok := c.byURL[url]
	return sd, ok
}

// BaseChain returns the ancestors of a type or resource, nearest first,
// e.g. Patient -> [DomainResource Resource].
func (c *DefinitionCollection) BaseChain(name string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var chain []string
	seen := map[string]bool{name: true}
	for cur := c.lookupLocked(name); cur != nil; {
		base := cur.BaseName()
		if base == "" || seen[base] {
			break
		}
		seen[base] = true
		chain = append(chain, base)
		cur = c.lookupLocked(base)
	}
	return chain
}

func (c *DefinitionCollection) lookupLocked(name string) *StructureDefinition {
	if sd, ok := c.resources[name]; ok {
		return sd
	}
	if sd, ok := c.complexTypes[name]; ok {
		return sd
	}
	return c.primitives[name]
}

// Children returns the direct child elements of path within sd, in
// definition order.
func (c *DefinitionCollection) Children(sd *StructureDefinition, path string) []*ElementDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.children[sd.URL][path]
}

// ElementByPath resolves an element path such as "Observation.referenceRange"
// or a contentReference ("#Observation.referenceRange", optionally prefixed
// with a structure canonical).
func (c *DefinitionCollection) ElementByPath(path string) (*StructureDefinition, *ElementDefinition, bool) {
	if i := strings.Index(path, "#"); i >= 0 {
		path = path[i+1:]
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	ref, ok := c.elements[path]
	if !ok {
		return nil, nil, false
	}
	return ref.sd, ref.ed, true
}

// SearchParameterByURL looks up a search parameter by canonical URL.
func (c *DefinitionCollection) SearchParameterByURL(url string) (*SearchParameter, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sp, ok := c.searchParams[url]
	return sp, ok
}

// SearchParametersForBase returns the search parameters whose base includes
// base, sorted by code then URL.
func (c *DefinitionCollection) SearchParametersForBase(base string) []*SearchParameter {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*SearchParameter
	for _, sp := range c.searchParams {
		if sp.AppliesTo(base) {
			out = append(out, sp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].URL < out[j].URL
	})
	return out
}

// Operations returns all operation definitions sorted by code then URL.
func (c *DefinitionCollection) Operations() []*OperationDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*OperationDefinition, 0, len(c.operations))
	for _, op := range c.operations {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].URL < out[j].URL
	})
	return out
}

// OperationByURL looks up an operation definition by canonical URL.
func (c *DefinitionCollection) OperationByURL(url string) (*OperationDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	op, ok := c.operations[url]
	return op, ok
}

// OperationByCode returns the first operation (by URL order) with code.
func (c *DefinitionCollection) OperationByCode(code string) (*OperationDefinition, bool) {
	code = strings.TrimPrefix(code, "$")
	for _, op := range c.Operations() {
		if op.Code == code {
			return op, true
		}
	}
	return nil, false
}

// ---------------------------------------------------------------------------
// Release mapping
// ---------------------------------------------------------------------------

// ReleaseForVersion maps a FHIR version literal to its release name.
func ReleaseForVersion(version string) string {
	switch {
	case strings.HasPrefix(version, "1.0"):
		return fhirmodels.ReleaseDSTU2
	case strings.HasPrefix(version, "3.0"):
		return fhirmodels.ReleaseSTU3
	case strings.HasPrefix(version, "4.0"):
		return fhirmodels.ReleaseR4
	case strings.HasPrefix(version, "4.3"):
		return fhirmodels.ReleaseR4B
	case strings.HasPrefix(version, "5.0"):
		return fhirmodels.ReleaseR5
	default:
		return fhirmodels.ReleaseUnknown
	}
}
