package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
	"github.com/avolkov/lead-intake-assistant/internal/core/fieldrules"
)

// LoadSchema reads the intake field schema from the YAML file at path. An empty
// path yields the built-in default set. MaxAttempts from the file wins over the
// environment value; an unset file value falls back to maxAttempts.
func LoadSchema(path string, maxAttempts int) (domain.FieldSchema, error) {
	schema := fieldrules.DefaultSchema()
	if path == "" {
		if maxAttempts > 0 {
			schema.MaxAttempts = maxAttempts
		}
		return schema, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.FieldSchema{}, fmt.Errorf("read schema file: %w", err)
	}
	schema = domain.FieldSchema{}
	if err := yaml.Unmarshal(raw, &schema); err != nil {
		return domain.FieldSchema{}, fmt.Errorf("parse schema file: %w", err)
	}
	if schema.MaxAttempts <= 0 {
		schema.MaxAttempts = maxAttempts
	}
	if err := validateSchema(schema); err != nil {
		return domain.FieldSchema{}, fmt.Errorf("schema file %s: %w", path, err)
	}
	return schema, nil
}

func validateSchema(schema domain.FieldSchema) error {
	if len(schema.Required) == 0 {
		return fmt.Errorf("at least one required field is needed")
	}
	if schema.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive")
	}
	seen := map[string]bool{}
	for _, spec := range append(append([]domain.FieldSpec{}, schema.Required...), schema.Optional...) {
		if spec.Name == "" {
			return fmt.Errorf("field with empty name")
		}
		if seen[spec.Name] {
			return fmt.Errorf("field %q declared twice", spec.Name)
		}
		seen[spec.Name] = true
		if spec.Rule == "" {
			return fmt.Errorf("field %q has no validation rule", spec.Name)
		}
	}
	return nil
}
