package fhirmodels

// Common FHIR conformance vocabulary used across the application.

// Release literals.
const (
	ReleaseDSTU2   = "DSTU2"
	ReleaseSTU3    = "STU3"
	ReleaseR4      = "R4"
	ReleaseR4B     = "R4B"
	ReleaseR5      = "R5"
	ReleaseUnknown = ""
)

// StructureDefinition.kind values.
const (
	KindPrimitiveType = "primitive-type"
	KindComplexType   = "complex-type"
	KindResource      = "resource"
	KindLogical       = "logical"
)

// StructureDefinition.derivation values.
const (
	DerivationSpecialization = "specialization"
	DerivationConstraint     = "constraint"
)

// CapabilityStatement.rest.resource.interaction codes.
const (
	InteractionRead            = "read"
	InteractionVRead           = "vread"
	InteractionUpdate          = "update"
	InteractionPatch           = "patch"
	InteractionDelete          = "delete"
	InteractionHistoryInstance = "history-instance"
	InteractionHistoryType     = "history-type"
	InteractionCreate          = "create"
	InteractionSearchType      = "search-type"
)

// CapabilityStatement.rest.interaction codes (system level).
const (
	InteractionTransaction   = "transaction"
	InteractionBatch         = "batch"
	InteractionSearchSystem  = "search-system"
	InteractionHistorySystem = "history-system"
)

// CapabilityStatement.rest.resource.conditionalDelete codes.
const (
	ConditionalDeleteNotSupported = "not-supported"
	ConditionalDeleteSingle       = "single"
	ConditionalDeleteMultiple     = "multiple"
)

// SearchParameter.type codes.
const (
	SearchTypeNumber    = "number"
	SearchTypeDate      = "date"
	SearchTypeString    = "string"
	SearchTypeToken     = "token"
	SearchTypeReference = "reference"
	SearchTypeComposite = "composite"
	SearchTypeQuantity  = "quantity"
	SearchTypeURI       = "uri"
	SearchTypeSpecial   = "special"
)

// OperationDefinition.kind codes.
const (
	OperationKindOperation = "operation"
	OperationKindQuery     = "query"
)

// OperationDefinition.parameter.use codes.
const (
	ParameterUseIn  = "in"
	ParameterUseOut = "out"
)

// MIME types.
const (
	MimeFHIRJSON     = "application/fhir+json"
	MimeFHIRXML      = "application/fhir+xml"
	MimeFHIRTurtle   = "application/fhir+turtle"
	MimeJSONPatch    = "application/json-patch+json"
	MimeXMLPatch     = "application/xml-patch+xml"
	MimeFormEncoded  = "application/x-www-form-urlencoded"
	MimeJSON         = "application/json"
	MimeXML          = "application/xml"
	MimeTurtleLegacy = "text/turtle"
)

// Well-known type names.
const (
	TypeResource         = "Resource"
	TypeDomainResource   = "DomainResource"
	TypeBundle           = "Bundle"
	TypeOperationOutcome = "OperationOutcome"
	TypeParameters       = "Parameters"
	TypeExtension        = "Extension"
	TypeBackboneElement  = "BackboneElement"
	TypeElement          = "Element"
	TypeReference        = "Reference"
	TypeCapability       = "CapabilityStatement"
)

// FHIRPathSystemPrefix prefixes the system type codes used on id-like
// snapshot elements (e.g. http://hl7.org/fhirpath/System.String).
const FHIRPathSystemPrefix = "http://hl7.org/fhirpath/System."
