package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
)

//go:embed schema.json
var embeddedSchema string

// VerifyAgainstEmbeddedSchema validates the config against the embedded JSON schema.
// It checks that every config key is known to the schema, required keys are present
// and enum values are respected.
func VerifyAgainstEmbeddedSchema(cfg *Config) error {
	var schema jsonschema.Schema
	if err := json.Unmarshal([]byte(embeddedSchema), &schema); err != nil {
		return fmt.Errorf("parse embedded schema: %w", err)
	}

	// convert config to JSON map for validation
	configData, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	var configMap map[string]any
	if err := json.Unmarshal(configData, &configMap); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	root := resolveRef(&schema, &schema)
	if root == nil {
		return fmt.Errorf("schema has no root definition")
	}
	if errs := verifyObject(&schema, root, configMap, ""); len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// verifyObject checks a config object against an object schema, returns list of problems
func verifyObject(doc, s *jsonschema.Schema, obj map[string]any, path string) []string {
	var errs []string
	for _, req := range s.Required {
		if _, ok := obj[req]; !ok {
			errs = append(errs, fmt.Sprintf("%s is required", path+req))
		}
	}
	for key, val := range obj {
		if s.Properties == nil {
			break
		}
		prop, ok := s.Properties.Get(key)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s is not defined in schema", path+key))
			continue
		}
		prop = resolveRef(doc, prop)
		if prop == nil {
			continue
		}
		if len(prop.Enum) > 0 && !slices.Contains(prop.Enum, val) {
			errs = append(errs, fmt.Sprintf("%s has unexpected value %v", path+key, val))
		}
		if nested, ok := val.(map[string]any); ok && prop.Properties != nil {
			errs = append(errs, verifyObject(doc, prop, nested, path+key+".")...)
		}
	}
	return errs
}

// resolveRef follows local $ref pointers into $defs
func resolveRef(doc, s *jsonschema.Schema) *jsonschema.Schema {
	for s != nil && s.Ref != "" {
		name, ok := strings.CutPrefix(s.Ref, "#/$defs/")
		if !ok || doc.Definitions == nil {
			return nil
		}
		s = doc.Definitions[name]
	}
	return s
}

// GenerateSchema generates a JSON schema for the Config struct
func GenerateSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}
