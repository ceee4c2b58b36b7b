package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NATS_SUBJECT", "")
	t.Setenv("INTAKE_MAX_ATTEMPTS", "")
	t.Setenv("SUMMARY_MIN_LENGTH", "")
	t.Setenv("RATE_LIMIT_RPS", "")

	cfg := Load()
	if cfg.NATSSubject != "leads.completed" {
		t.Fatalf("expected default NATS subject, got %q", cfg.NATSSubject)
	}
	if cfg.MaxAttempts != 3 {
		t.Fatalf("expected default max attempts 3, got %d", cfg.MaxAttempts)
	}
	if cfg.SummaryMinLength != 50 {
		t.Fatalf("expected default summary min length 50, got %d", cfg.SummaryMinLength)
	}
	if cfg.RateLimitRPS != 10 {
		t.Fatalf("expected default rate limit 10, got %d", cfg.RateLimitRPS)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("INTAKE_MAX_ATTEMPTS", "5")
	t.Setenv("OLLAMA_ENABLED", "false")
	t.Setenv("AIRTABLE_TABLE_NAME", "Prospects")

	cfg := Load()
	if cfg.MaxAttempts != 5 {
		t.Fatalf("expected max attempts 5, got %d", cfg.MaxAttempts)
	}
	if cfg.OllamaEnabled {
		t.Fatalf("expected ollama disabled")
	}
	if cfg.AirtableTable != "Prospects" {
		t.Fatalf("expected table override, got %q", cfg.AirtableTable)
	}
}

func TestLoadSchemaDefaultsWithoutPath(t *testing.T) {
	schema, err := LoadSchema("", 4)
	if err != nil {
		t.Fatalf("LoadSchema() error = %v", err)
	}
	if len(schema.Required) != 3 || len(schema.Optional) != 2 {
		t.Fatalf("unexpected default schema: %+v", schema)
	}
	if schema.MaxAttempts != 4 {
		t.Fatalf("expected max attempts override 4, got %d", schema.MaxAttempts)
	}
}

func TestLoadSchemaReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	content := `
required:
  - name: name
    question: "Full name?"
    rule: name
  - name: company
    question: "Company name?"
    rule: text
optional:
  - name: city
    question: "City?"
    rule: city
max_attempts: 2
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write schema: %v", err)
	}

	schema, err := LoadSchema(path, 3)
	if err != nil {
		t.Fatalf("LoadSchema() error = %v", err)
	}
	if schema.MaxAttempts != 2 {
		t.Fatalf("expected file max_attempts 2, got %d", schema.MaxAttempts)
	}
	if !schema.IsRequired("company") || !schema.IsOptional("city") {
		t.Fatalf("unexpected schema: %+v", schema)
	}
	spec, ok := schema.Spec("company")
	if !ok || spec.Rule != "text" {
		t.Fatalf("unexpected company spec: %+v", spec)
	}
}

func TestLoadSchemaRejectsDuplicateFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	content := `
required:
  - name: name
    rule: name
optional:
  - name: name
    rule: text
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write schema: %v", err)
	}

	if _, err := LoadSchema(path, 3); err == nil {
		t.Fatalf("expected duplicate field error")
	}
}

func TestLoadSchemaRejectsMissingFile(t *testing.T) {
	if _, err := LoadSchema("/nonexistent/schema.yaml", 3); err == nil {
		t.Fatalf("expected read error")
	}
}
