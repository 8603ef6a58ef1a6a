package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/schemaflow/schemaflow/pkg/migration"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

// LoadSchema reads a schema snapshot from a JSON or YAML file. The format is
// picked by file extension; anything that is not .yaml/.yml is parsed as JSON.
func LoadSchema(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}

	var s schema.Schema
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		// Decode YAML into a generic document and round-trip it through JSON
		// so the schema types' text unmarshalers apply.
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML schema %s: %w", path, err)
		}
		jsonData, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert YAML schema %s: %w", path, err)
		}
		if err := json.Unmarshal(jsonData, &s); err != nil {
			return nil, fmt.Errorf("invalid schema in %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("invalid schema in %s: %w", path, err)
		}
	}

	if s.Name == "" {
		return nil, fmt.Errorf("schema file %s is missing a name", path)
	}
	return &s, nil
}

// LoadPlan reads a previously generated migration plan from a JSON file.
func LoadPlan(path string) (*migration.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file %s: %w", path, err)
	}

	var p migration.Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid plan in %s: %w", path, err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("plan file %s is missing an id", path)
	}
	return &p, nil
}
