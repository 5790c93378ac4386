package openapi

import (
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/microsoft/fhir-codegen-sub025/pkg/fhirmodels"
)

// mediaPreference orders the media types a document can carry. It matches
// the order the MIME options emit them in; unlisted types sort after it,
// alphabetically.
var mediaPreference = []string{
	fhirmodels.MimeJSONPatch,
	fhirmodels.MimeXMLPatch,
	fhirmodels.MimeFHIRJSON,
	fhirmodels.MimeFHIRXML,
	fhirmodels.MimeFHIRTurtle,
	fhirmodels.MimeJSON,
	fhirmodels.MimeXML,
	fhirmodels.MimeTurtleLegacy,
	fhirmodels.MimeFormEncoded,
}

func mediaRank(mime string) int {
	for i, m := range mediaPreference {
		if m == mime {
			return i
		}
	}
	return len(mediaPreference)
}

func sortMedia(list []string) {
	sort.Slice(list, func(a, b int) bool {
		ra, rb := mediaRank(list[a]), mediaRank(list[b])
		if ra != rb {
			return ra < rb
		}
		return list[a] < list[b]
	})
}

// orderedMedia returns the keys of content in preference order.
func orderedMedia(content openapi3.Content) []string {
	out := make([]string, 0, len(content))
	for mime := range content {
		out = append(out, mime)
	}
	sortMedia(out)
	return out
}

func appendMissing(list []string, values ...string) []string {
	for _, v := range values {
		if !containsString(list, v) {
			list = append(list, v)
		}
	}
	return list
}

// toV2 converts doc to OpenAPI 2.0. The generic converter only reads
// application/json bodies, so FHIR media types are carried over here: each
// operation gets produces and consumes, and every response and body
// parameter takes the schema of its first preferred media type.
func toV2(doc *openapi3.T) (*openapi2.T, error) {
	doc2, err := openapi2conv.FromV3(doc)
	if err != nil {
		return nil, err
	}

	for path, item := range doc.Paths.Map() {
		item2 := doc2.Paths[path]
		if item == nil || item2 == nil {
			continue
		}
		for method, op := range item.Operations() {
			op2 := item2.GetOperation(method)
			if op == nil || op2 == nil {
				continue
			}
			if err := carryMedia(doc, op, op2); err != nil {
				return nil, fmt.Errorf("%s %s: %w", method, path, err)
			}
		}
	}
	return doc2, nil
}

func carryMedia(doc *openapi3.T, op *openapi3.Operation, op2 *openapi2.Operation) error {
	if op.Responses != nil {
		var produces []string
		for code, ref := range op.Responses.Map() {
			if ref == nil || ref.Value == nil || len(ref.Value.Content) == 0 {
				continue
			}
			order := orderedMedia(ref.Value.Content)
			produces = appendMissing(produces, order...)
			resp2 := op2.Responses[code]
			if resp2 == nil {
				continue
			}
			if mt := ref.Value.Content[order[0]]; mt != nil && mt.Schema != nil {
				resp2.Schema, _ = openapi2conv.FromV3SchemaRef(mt.Schema, doc.Components)
			}
		}
		sortMedia(produces)
		op2.Produces = produces
	}

	if op.RequestBody == nil || op.RequestBody.Value == nil || len(op.RequestBody.Value.Content) == 0 {
		return nil
	}
	content := op.RequestBody.Value.Content
	order := orderedMedia(content)
	op2.Consumes = order
	if order[0] == fhirmodels.MimeFormEncoded {
		return nil
	}
	mt := content[order[0]]
	if mt == nil || mt.Schema == nil {
		return nil
	}
	for _, p := range op2.Parameters {
		if p != nil && p.In == "body" {
			p.Schema, _ = openapi2conv.FromV3SchemaRef(mt.Schema, doc.Components)
			return nil
		}
	}
	return fmt.Errorf("request body was not converted")
}
