package openapi

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/iancoleman/strcase"

	"github.com/microsoft/fhir-codegen-sub025/internal/platform/fhir"
	"github.com/microsoft/fhir-codegen-sub025/pkg/fhirmodels"
)

const schemaRefPrefix = "#/components/schemas/"

// componentDefinition is the position of the schema walk: the structure
// being emitted, the element whose children become properties, and whether
// that element is the structure root.
type componentDefinition struct {
	sd     *fhir.StructureDefinition
	ed     *fhir.ElementDefinition
	isRoot bool
}

// walk is the recursion state of one inline descent.
type walk struct {
	depth       int
	stack       []string
	inExtension bool
}

func (w walk) enter(key string) walk {
	stack := make([]string, len(w.stack), len(w.stack)+1)
	copy(stack, w.stack)
	return walk{depth: w.depth + 1, stack: append(stack, key), inExtension: w.inExtension}
}

func (w walk) visiting(key string) bool {
	for _, s := range w.stack {
		if s == key {
			return true
		}
	}
	return false
}

func (r *run) depthExceeded(w walk) bool {
	return r.opts.MaxRecursions > 0 && w.depth >= r.opts.MaxRecursions
}

func objectType() *openapi3.Types { return &openapi3.Types{openapi3.TypeObject} }

// opaqueSchema is an object with no declared properties.
func opaqueSchema(description string) *openapi3.Schema {
	return &openapi3.Schema{Type: objectType(), Description: description}
}

// anyResourceSchema accepts any resource.
func anyResourceSchema() *openapi3.Schema {
	return &openapi3.Schema{
		Type:        objectType(),
		Description: "Any FHIR resource",
		Properties: openapi3.Schemas{
			"resourceType": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
		},
		Required: []string{"resourceType"},
	}
}

// resourceSchemaRef returns the schema used wherever a resource travels in
// a request or response body.
func (r *run) resourceSchemaRef(name string) *openapi3.SchemaRef {
	if r.opts.SchemaLevel == SchemaLevelNone {
		return openapi3.NewSchemaRef(schemaRefPrefix+fhirmodels.TypeResource, nil)
	}
	if r.schemaNames[name] {
		return openapi3.NewSchemaRef(schemaRefPrefix+name, nil)
	}
	return openapi3.NewSchemaRef("", anyResourceSchema())
}

func (r *run) sortedSchemaNames() []string {
	var names []string
	for _, sd := range r.src.Resources() {
		if r.schemaNames[sd.Name] {
			names = append(names, sd.Name)
		}
	}
	return names
}

// buildSchemas emits the component schemas at the configured level.
func (r *run) buildSchemas() openapi3.Schemas {
	schemas := openapi3.Schemas{}
	switch r.opts.SchemaLevel {
	case SchemaLevelNone:
		schemas[fhirmodels.TypeResource] = openapi3.NewSchemaRef("", anyResourceSchema())
		return schemas
	case SchemaLevelNames:
		for _, name := range r.sortedSchemaNames() {
			sd, _ := r.src.Resource(name)
			schemas[name] = openapi3.NewSchemaRef("", opaqueSchema(r.describe(sd.Description)))
		}
		return schemas
	}

	r.components = schemas
	for _, name := range r.sortedSchemaNames() {
		sd, _ := r.src.Resource(name)
		schemas[name] = openapi3.NewSchemaRef("", r.structureSchema(sd))
	}
	for len(r.pending) > 0 {
		name := r.pending[0]
		r.pending = r.pending[1:]
		if _, done := schemas[name]; done {
			continue
		}
		sd, ok := r.src.ComplexType(name)
		if !ok {
			continue
		}
		schemas[name] = openapi3.NewSchemaRef("", r.structureSchema(sd))
	}
	return schemas
}

func (r *run) structureSchema(sd *fhir.StructureDefinition) *openapi3.Schema {
	cd := componentDefinition{sd: sd, ed: sd.RootElement(), isRoot: true}
	w := walk{stack: []string{sd.Name}, inExtension: sd.Name == fhirmodels.TypeExtension}
	return r.elementObject(cd, sd.Type, sd.Description, w)
}

// elementObject builds the object schema whose properties are the children
// of path within cd.sd.
func (r *run) elementObject(cd componentDefinition, path, description string, w walk) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	schema.Description = r.describe(description)

	resourceRoot := cd.isRoot && cd.sd.IsResource()
	if resourceRoot {
		rt := openapi3.NewStringSchema()
		rt.Enum = []any{cd.sd.Name}
		schema.Properties["resourceType"] = openapi3.NewSchemaRef("", rt)
		schema.Required = append(schema.Required, "resourceType")
	}

	for _, child := range r.src.Children(cd.sd, path) {
		r.addElement(schema, cd, child, resourceRoot, w)
	}
	return schema
}

func (r *run) addElement(schema *openapi3.Schema, cd componentDefinition, child *fhir.ElementDefinition, resourceRoot bool, w walk) {
	if child.IsProhibited() {
		return
	}
	if r.opts.RemoveUncommonFields && r.isUncommon(child, resourceRoot) {
		return
	}
	name := child.Name()
	switch name {
	case "extension":
		if !r.includeExtensions(cd) {
			return
		}
	case "modifierExtension":
		if r.opts.ExtensionSupport == ExtensionsNone {
			return
		}
	}

	if child.ContentReference != "" {
		r.setProperty(schema, name, child, r.contentReferenceSchema(child, w), child.MinCardinality() > 0)
		return
	}
	if len(child.Type) == 0 {
		r.setProperty(schema, name, child, openapi3.NewSchemaRef("", opaqueSchema(r.describe(child.Description()))), false)
		return
	}

	base := strings.TrimSuffix(name, "[x]")
	fanOut := child.IsChoice() && len(child.Type) > 1
	for _, et := range child.Type {
		code := et.TypeCode()
		prop := base
		if fanOut {
			prop = base + strcase.ToCamel(code)
		}
		r.setProperty(schema, prop, child, r.typeSchema(cd, child, code, w), !fanOut && child.MinCardinality() > 0)
		if r.primitiveExtensions() && r.src.IsPrimitive(code) {
			r.setProperty(schema, "_"+prop, child, openapi3.NewSchemaRef("", r.primitiveElementSchema()), false)
		}
	}
}

func (r *run) setProperty(schema *openapi3.Schema, name string, ed *fhir.ElementDefinition, s *openapi3.SchemaRef, required bool) {
	if ed.IsArray() {
		arr := openapi3.NewArraySchema()
		arr.Items = s
		s = openapi3.NewSchemaRef("", arr)
	}
	schema.Properties[name] = s
	if required {
		schema.Required = append(schema.Required, name)
	}
}

func (r *run) isUncommon(ed *fhir.ElementDefinition, resourceRoot bool) bool {
	if r.uncommon[ed.Path] {
		return true
	}
	return ed.Name() == "id" && !resourceRoot && r.uncommon["Element.id"]
}

func (r *run) includeExtensions(cd componentDefinition) bool {
	switch r.opts.ExtensionSupport {
	case ExtensionsResources:
		return cd.sd.IsResource()
	case ExtensionsNonPrimitive, ExtensionsPrimitive, ExtensionsAll:
		return true
	}
	return false
}

func (r *run) primitiveExtensions() bool {
	return r.opts.ExtensionSupport == ExtensionsPrimitive || r.opts.ExtensionSupport == ExtensionsAll
}

// primitiveElementSchema is the companion object carrying the id and
// extensions of a primitive value.
func (r *run) primitiveElementSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	if r.opts.ExtensionSupport == ExtensionsAll {
		s.Properties["id"] = openapi3.NewSchemaRef("", openapi3.NewStringSchema())
	}
	s.Properties["extension"] = openapi3.NewSchemaRef("", openapi3.NewArraySchema().WithItems(opaqueSchema("")))
	return s
}

// typeSchema resolves one element type: primitive, complex type, resource,
// backbone, then opaque.
func (r *run) typeSchema(cd componentDefinition, ed *fhir.ElementDefinition, code string, w walk) *openapi3.SchemaRef {
	description := ed.Description()
	if r.src.IsPrimitive(code) {
		return openapi3.NewSchemaRef("", primitiveSchema(code, r.describe(description)))
	}
	if sd, ok := r.src.ComplexType(code); ok && !sd.Abstract {
		return r.complexTypeSchema(sd, description, w)
	}
	if r.src.IsResource(code) {
		return r.resourceSchemaRef(code)
	}
	if code == fhirmodels.TypeBackboneElement || code == fhirmodels.TypeElement {
		if len(r.src.Children(cd.sd, ed.Path)) > 0 {
			return r.backboneSchema(cd.sd, ed, w)
		}
	}
	return openapi3.NewSchemaRef("", opaqueSchema(r.describe(description)))
}

func (r *run) complexTypeSchema(sd *fhir.StructureDefinition, description string, w walk) *openapi3.SchemaRef {
	if sd.Name == fhirmodels.TypeExtension && w.inExtension {
		return openapi3.NewSchemaRef("", opaqueSchema(r.describe(description)))
	}
	if r.opts.SchemaStyle != SchemaStyleInline {
		r.pending = append(r.pending, sd.Name)
		return openapi3.NewSchemaRef(schemaRefPrefix+sd.Name, nil)
	}
	if w.visiting(sd.Name) || r.depthExceeded(w) {
		return openapi3.NewSchemaRef("", opaqueSchema(r.describe(description)))
	}
	next := w.enter(sd.Name)
	if sd.Name == fhirmodels.TypeExtension {
		next.inExtension = true
	}
	cd := componentDefinition{sd: sd, ed: sd.RootElement(), isRoot: true}
	return openapi3.NewSchemaRef("", r.elementObject(cd, sd.Type, description, next))
}

func (r *run) backboneSchema(sd *fhir.StructureDefinition, ed *fhir.ElementDefinition, w walk) *openapi3.SchemaRef {
	if r.opts.SchemaStyle == SchemaStyleBackboneReferences {
		return openapi3.NewSchemaRef(schemaRefPrefix+r.backboneComponent(sd, ed), nil)
	}
	if w.visiting(ed.Path) || r.depthExceeded(w) {
		return openapi3.NewSchemaRef("", opaqueSchema(r.describe(ed.Description())))
	}
	cd := componentDefinition{sd: sd, ed: ed}
	return openapi3.NewSchemaRef("", r.elementObject(cd, ed.Path, ed.Description(), w.enter(ed.Path)))
}

// backboneComponent emits a backbone element as its own component and
// returns the component name (the element path with dots as underscores).
func (r *run) backboneComponent(sd *fhir.StructureDefinition, ed *fhir.ElementDefinition) string {
	name := strings.ReplaceAll(ed.Path, ".", "_")
	if _, done := r.components[name]; done || r.building[name] {
		return name
	}
	r.building[name] = true
	cd := componentDefinition{sd: sd, ed: ed}
	s := r.elementObject(cd, ed.Path, ed.Description(), walk{stack: []string{sd.Name, ed.Path}})
	r.components[name] = openapi3.NewSchemaRef("", s)
	delete(r.building, name)
	return name
}

// contentReferenceSchema resolves an element that reuses the definition of
// another element (#Observation.referenceRange).
func (r *run) contentReferenceSchema(ed *fhir.ElementDefinition, w walk) *openapi3.SchemaRef {
	sd, target, ok := r.src.ElementByPath(ed.ContentReference)
	if !ok {
		return openapi3.NewSchemaRef("", opaqueSchema(r.describe(ed.Description())))
	}
	if r.opts.SchemaStyle == SchemaStyleBackboneReferences {
		return openapi3.NewSchemaRef(schemaRefPrefix+r.backboneComponent(sd, target), nil)
	}
	if w.visiting(target.Path) || r.depthExceeded(w) {
		return openapi3.NewSchemaRef("", opaqueSchema(r.describe(ed.Description())))
	}
	cd := componentDefinition{sd: sd, ed: target}
	return openapi3.NewSchemaRef("", r.elementObject(cd, target.Path, ed.Description(), w.enter(target.Path)))
}

// primitiveSchema maps a FHIR primitive onto a JSON schema type.
func primitiveSchema(code, description string) *openapi3.Schema {
	var s *openapi3.Schema
	switch code {
	case "boolean":
		s = openapi3.NewBoolSchema()
	case "integer", "positiveInt", "unsignedInt":
		s = openapi3.NewInt32Schema()
	case "decimal":
		s = openapi3.NewFloat64Schema()
		s.Format = ""
	case "instant":
		s = openapi3.NewDateTimeSchema()
	case "uri", "url", "canonical":
		s = openapi3.NewStringSchema()
		s.Format = "uri"
	case "base64Binary":
		s = openapi3.NewBytesSchema()
	default:
		s = openapi3.NewStringSchema()
	}
	s.Description = description
	return s
}
