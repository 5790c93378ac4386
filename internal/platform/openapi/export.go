package openapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/microsoft/fhir-codegen-sub025/internal/platform/fhir"
)

// Export validates opts, builds the document and writes it to w. Nothing is
// written unless serialization succeeds.
func Export(w io.Writer, src DefinitionSource, cs *fhir.CapabilityStatement, opts Options, options ...BuilderOption) (BuildStatistics, error) {
	if err := opts.Validate(); err != nil {
		return BuildStatistics{}, err
	}
	doc, stats := NewBuilder(src, cs, opts, options...).Build()
	data, err := Marshal(doc, opts)
	if err != nil {
		return stats, err
	}
	if _, err := w.Write(data); err != nil {
		return stats, fmt.Errorf("write document: %w", err)
	}
	return stats, nil
}

// Marshal serializes doc in the version and format selected by opts.
func Marshal(doc *openapi3.T, opts Options) ([]byte, error) {
	var v any = doc
	if opts.OpenAPIVersion == OpenAPIv2 {
		doc2, err := toV2(doc)
		if err != nil {
			return nil, fmt.Errorf("convert to openapi 2.0: %w", err)
		}
		v = doc2
	}

	var (
		data []byte
		err  error
	)
	if opts.Minify {
		data, err = json.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	if opts.FileFormat == FormatYAML {
		return jsonToYAML(data, opts.Minify)
	}
	return data, nil
}

// jsonToYAML re-encodes JSON as YAML through a node tree so key order is
// kept. flow renders collections inline.
func jsonToYAML(data []byte, flow bool) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse document for yaml: %w", err)
	}
	restyle(&node, flow)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// restyle drops the JSON quoting and bracket styles the parser recorded.
func restyle(n *yaml.Node, flow bool) {
	switch n.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		n.Style = 0
		if flow {
			n.Style = yaml.FlowStyle
		}
	case yaml.ScalarNode:
		n.Style = 0
	}
	for _, c := range n.Content {
		restyle(c, flow)
	}
}
