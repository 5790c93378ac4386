package openapi

import (
	"strings"

	"github.com/iancoleman/strcase"
)

// operationID joins the non-empty parts (action, scope, resource, code,
// method) and applies the naming convention.
func operationID(nc NamingConvention, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	raw := strings.Join(kept, ".")
	switch nc {
	case NamingCamel:
		return strcase.ToLowerCamel(raw)
	case NamingUpper:
		return strcase.ToScreamingSnake(raw)
	case NamingLower:
		return strcase.ToSnake(raw)
	default:
		return strcase.ToCamel(raw)
	}
}
