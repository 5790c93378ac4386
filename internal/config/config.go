package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/microsoft/fhir-codegen-sub025/internal/platform/openapi"
)

// EnvPrefix prefixes every environment variable, e.g. FHIR_CODEGEN_SCHEMA_LEVEL.
const EnvPrefix = "FHIR_CODEGEN"

// ErrNoPackages is returned when no definition package is configured.
var ErrNoPackages = errors.New("at least one FHIR package is required")

type Config struct {
	Env  string `mapstructure:"ENV"`
	Port string `mapstructure:"PORT"`

	Packages         []string `mapstructure:"PACKAGES"`
	CapabilitiesFile string   `mapstructure:"CAPABILITIES"`
	SmartConfigFile  string   `mapstructure:"SMART_CONFIG"`
	Output           string   `mapstructure:"OUTPUT"`

	OpenAPIVersion          string   `mapstructure:"OPENAPI_VERSION"`
	FileFormat              string   `mapstructure:"FORMAT"`
	Minify                  bool     `mapstructure:"MINIFY"`
	SchemaLevel             string   `mapstructure:"SCHEMA_LEVEL"`
	SchemaStyle             string   `mapstructure:"SCHEMA_STYLE"`
	MaxRecursions           int      `mapstructure:"MAX_RECURSIONS"`
	FHIRMimeTypes           string   `mapstructure:"FHIR_MIME_TYPES"`
	PatchMimeTypes          string   `mapstructure:"PATCH_MIME_TYPES"`
	SearchMethods           string   `mapstructure:"SEARCH_METHODS"`
	OperationMethods        string   `mapstructure:"OPERATION_METHODS"`
	SearchParamStyle        string   `mapstructure:"SEARCH_PARAM_STYLE"`
	ExtensionSupport        string   `mapstructure:"EXTENSION_SUPPORT"`
	RemoveUncommonFields    bool     `mapstructure:"REMOVE_UNCOMMON_FIELDS"`
	SingleResponses         bool     `mapstructure:"SINGLE_RESPONSES"`
	IncludeDescriptions     bool     `mapstructure:"INCLUDE_DESCRIPTIONS"`
	DescriptionMaxLen       int      `mapstructure:"DESCRIPTION_MAX_LEN"`
	DescriptionValidation   bool     `mapstructure:"DESCRIPTION_VALIDATION"`
	IncludeSummaries        bool     `mapstructure:"INCLUDE_SUMMARIES"`
	IncludeHeaders          bool     `mapstructure:"INCLUDE_HEADERS"`
	IncludeHTTPCommonParams bool     `mapstructure:"INCLUDE_HTTP_COMMON_PARAMS"`
	NamingConvention        string   `mapstructure:"NAMING_CONVENTION"`
	ReadOnly                bool     `mapstructure:"READ_ONLY"`
	WriteOnly               bool     `mapstructure:"WRITE_ONLY"`
	Interactions            []string `mapstructure:"INTERACTIONS"`
	ResourceInteractions    []string `mapstructure:"RESOURCE_INTERACTIONS"`
	ExportKeys              []string `mapstructure:"EXPORT_KEYS"`
	ServerURL               string   `mapstructure:"SERVER_URL"`
	Title                   string   `mapstructure:"TITLE"`
	Version                 string   `mapstructure:"API_VERSION"`
	Description             string   `mapstructure:"DESCRIPTION"`
}

// setting ties a configuration key to its flag and default.
type setting struct {
	key   string
	flag  string
	def   any
	usage string
}

func settings() []setting {
	d := openapi.DefaultOptions()
	return []setting{
		{"ENV", "env", "production", "runtime environment (development enables console logging)"},
		{"PORT", "port", "8080", "listen port for serve"},
		{"PACKAGES", "package", []string{}, "FHIR package directory or .tgz (repeatable)"},
		{"CAPABILITIES", "capabilities", "", "CapabilityStatement JSON restricting the export"},
		{"SMART_CONFIG", "smart-config", "", "SMART configuration JSON supplying security scopes"},
		{"OUTPUT", "output", "", "output file (default stdout)"},
		{"OPENAPI_VERSION", "openapi-version", string(d.OpenAPIVersion), "v2 or v3"},
		{"FORMAT", "format", string(d.FileFormat), "json or yaml"},
		{"MINIFY", "minify", d.Minify, "compact output"},
		{"SCHEMA_LEVEL", "schema-level", string(d.SchemaLevel), "none, names or detailed"},
		{"SCHEMA_STYLE", "schema-style", string(d.SchemaStyle), "inline, type-references or backbone-references"},
		{"MAX_RECURSIONS", "max-recursions", d.MaxRecursions, "inline expansion depth (0 for no cap)"},
		{"FHIR_MIME_TYPES", "fhir-mime-types", string(d.FHIRMimeTypes), "capabilities, common, json, xml or all"},
		{"PATCH_MIME_TYPES", "patch-mime-types", string(d.PatchMimeTypes), "capabilities, json-patch, xml-patch, fhir or all"},
		{"SEARCH_METHODS", "search-methods", string(d.SearchMethods), "get, post or both"},
		{"OPERATION_METHODS", "operation-methods", string(d.OperationMethods), "get, post or both"},
		{"SEARCH_PARAM_STYLE", "search-param-style", string(d.SearchParamStyle), "inline, per-resource or consolidated"},
		{"EXTENSION_SUPPORT", "extension-support", string(d.ExtensionSupport), "none, modifiers, resources, non-primitive, primitive or all"},
		{"REMOVE_UNCOMMON_FIELDS", "remove-uncommon-fields", d.RemoveUncommonFields, "drop rarely used elements"},
		{"SINGLE_RESPONSES", "single-responses", d.SingleResponses, "emit only the primary response code"},
		{"INCLUDE_DESCRIPTIONS", "descriptions", d.IncludeDescriptions, "include descriptions"},
		{"DESCRIPTION_MAX_LEN", "description-max-len", d.DescriptionMaxLen, "truncate descriptions (0 for no cap)"},
		{"DESCRIPTION_VALIDATION", "description-validation", d.DescriptionValidation, "warn on empty or long descriptions"},
		{"INCLUDE_SUMMARIES", "summaries", d.IncludeSummaries, "include operation summaries"},
		{"INCLUDE_HEADERS", "headers", d.IncludeHeaders, "include Prefer and conditional read headers"},
		{"INCLUDE_HTTP_COMMON_PARAMS", "common-params", d.IncludeHTTPCommonParams, "add _format and _pretty to every path"},
		{"NAMING_CONVENTION", "naming", string(d.NamingConvention), "pascal, camel, upper or lower"},
		{"READ_ONLY", "read-only", d.ReadOnly, "always export the read interactions"},
		{"WRITE_ONLY", "write-only", d.WriteOnly, "always export the write interactions"},
		{"INTERACTIONS", "interaction", []string{}, "interaction=true|false|capabilities (repeatable)"},
		{"RESOURCE_INTERACTIONS", "resource-interactions", []string{}, "Resource=read|search-type (repeatable)"},
		{"EXPORT_KEYS", "export", []string{}, "resources to export (default all)"},
		{"SERVER_URL", "server-url", d.FHIRServerURL, "FHIR server base URL (enables the SMART security scheme)"},
		{"TITLE", "title", d.Title, "document title"},
		{"API_VERSION", "api-version", d.Version, "document version"},
		{"DESCRIPTION", "description", d.Description, "document description"},
	}
}

// RegisterFlags adds a flag for every setting, plus --config.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "configuration file (yaml, json or toml)")
	for _, s := range settings() {
		switch def := s.def.(type) {
		case string:
			fs.String(s.flag, def, s.usage)
		case bool:
			fs.Bool(s.flag, def, s.usage)
		case int:
			fs.Int(s.flag, def, s.usage)
		case []string:
			fs.StringSlice(s.flag, def, s.usage)
		}
	}
}

// Load resolves the configuration from defaults, the optional config file,
// FHIR_CODEGEN_* environment variables and the flags in fs, in increasing
// precedence. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	for _, s := range settings() {
		v.SetDefault(s.key, s.def)
		if err := v.BindEnv(s.key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", s.key, err)
		}
		if fs == nil {
			continue
		}
		if f := fs.Lookup(s.flag); f != nil {
			if err := v.BindPFlag(s.key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", s.flag, err)
			}
		}
	}

	if fs != nil {
		if path, _ := fs.GetString("config"); path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks the settings the generator cannot default.
func (c *Config) Validate() error {
	if len(c.Packages) == 0 {
		return ErrNoPackages
	}
	_, err := c.ToOptions()
	return err
}

// ToOptions converts the configuration into validated generator options.
func (c *Config) ToOptions() (openapi.Options, error) {
	opts := openapi.DefaultOptions()
	opts.OpenAPIVersion = openapi.OpenAPIVersion(strings.ToLower(c.OpenAPIVersion))
	opts.FileFormat = openapi.FileFormat(strings.ToLower(c.FileFormat))
	opts.Minify = c.Minify
	opts.SchemaLevel = openapi.SchemaLevel(c.SchemaLevel)
	opts.SchemaStyle = openapi.SchemaStyle(c.SchemaStyle)
	opts.MaxRecursions = c.MaxRecursions
	opts.FHIRMimeTypes = openapi.FHIRMimeTypes(c.FHIRMimeTypes)
	opts.PatchMimeTypes = openapi.PatchMimeTypes(c.PatchMimeTypes)
	opts.SearchMethods = openapi.HTTPMethods(c.SearchMethods)
	opts.OperationMethods = openapi.HTTPMethods(c.OperationMethods)
	opts.SearchParamStyle = openapi.SearchParamStyle(c.SearchParamStyle)
	opts.ExtensionSupport = openapi.ExtensionSupport(c.ExtensionSupport)
	opts.RemoveUncommonFields = c.RemoveUncommonFields
	opts.SingleResponses = c.SingleResponses
	opts.IncludeDescriptions = c.IncludeDescriptions
	opts.DescriptionMaxLen = c.DescriptionMaxLen
	opts.DescriptionValidation = c.DescriptionValidation
	opts.IncludeSummaries = c.IncludeSummaries
	opts.IncludeHeaders = c.IncludeHeaders
	opts.IncludeHTTPCommonParams = c.IncludeHTTPCommonParams
	opts.NamingConvention = openapi.NamingConvention(c.NamingConvention)
	opts.ReadOnly = c.ReadOnly
	opts.WriteOnly = c.WriteOnly
	opts.ExportKeys = append([]string(nil), c.ExportKeys...)
	opts.FHIRServerURL = c.ServerURL
	opts.Title = c.Title
	opts.Version = c.Version
	opts.Description = c.Description

	for _, entry := range c.Interactions {
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			return opts, fmt.Errorf("%w: interaction %q is not name=value", openapi.ErrInvalidOptions, entry)
		}
		ts, err := openapi.ParseTriState(value)
		if err != nil {
			return opts, err
		}
		opts.Interactions[openapi.Interaction(strings.TrimSpace(name))] = ts
	}
	for _, entry := range c.ResourceInteractions {
		resource, list, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(resource) == "" {
			return opts, fmt.Errorf("%w: resource interactions %q is not Resource=a|b", openapi.ErrInvalidOptions, entry)
		}
		var set []openapi.Interaction
		for _, i := range strings.Split(list, "|") {
			if i = strings.TrimSpace(i); i != "" {
				set = append(set, openapi.Interaction(i))
			}
		}
		opts.ResourceInteractions[strings.TrimSpace(resource)] = set
	}

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}
