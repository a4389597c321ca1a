package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mwhitford/ringlead/internal/engine"
)

// extensionsSchema constrains the monitored-extensions data file: a non-empty
// array of objects that each carry an extension id.
const extensionsSchema = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"required": ["id"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"name": {"type": "string"}
		}
	}
}`

// leadOwnersSchema constrains the rotation-owners data file.
const leadOwnersSchema = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"required": ["id", "name"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"name": {"type": "string", "minLength": 1},
			"email": {"type": "string"}
		}
	}
}`

// LoadExtensions reads and validates the extensions data file.
func LoadExtensions(path string) ([]engine.Extension, error) {
	var extensions []engine.Extension
	if err := loadValidated(path, extensionsSchema, &extensions); err != nil {
		return nil, fmt.Errorf("extensions file %s: %w", path, err)
	}
	return extensions, nil
}

// LoadLeadOwners reads and validates the lead owners data file.
func LoadLeadOwners(path string) ([]engine.Owner, error) {
	var owners []engine.Owner
	if err := loadValidated(path, leadOwnersSchema, &owners); err != nil {
		return nil, fmt.Errorf("lead owners file %s: %w", path, err)
	}
	return owners, nil
}

// loadValidated reads a JSON data file, checks it against the schema, and
// decodes it into out.
func loadValidated(path, schemaSrc string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(schemaSrc)); err != nil {
		return fmt.Errorf("failed to load data schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("failed to compile data schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("does not match expected shape: %w", err)
	}

	return json.Unmarshal(data, out)
}

// WriteExampleData writes starter extensions and lead owners files next to a
// fresh config, skipping any file that already exists.
func WriteExampleData(extensionsPath, ownersPath string) error {
	extensions := []engine.Extension{
		{ID: "101", Name: "Sales"},
		{ID: "102", Name: "Support"},
	}
	owners := []engine.Owner{
		{ID: "1000000000001", Name: "First Owner", Email: "first@example.com"},
		{ID: "1000000000002", Name: "Second Owner", Email: "second@example.com"},
	}

	if err := writeJSONIfMissing(extensionsPath, extensions); err != nil {
		return err
	}
	return writeJSONIfMissing(ownersPath, owners)
}

func writeJSONIfMissing(path string, v any) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
