package config

import (
	"encoding/json"
	"testing"
)

func TestGenerateSchema_CoversConfigSections(t *testing.T) {
	t.Parallel()

	schema := GenerateSchema()
	for _, key := range []string{"name", "version", "generator", "executor", "reporter", "dispatch", "resilience", "logging", "tracing", "server"} {
		if _, ok := schema.Properties[key]; !ok {
			t.Errorf("schema missing property %q", key)
		}
	}

	kinds := schema.Properties["reporter"].Properties["kinds"]
	if kinds.Items == nil || len(kinds.Items.Enum) != 5 {
		t.Errorf("reporter.kinds enum = %+v, want 5 values", kinds.Items)
	}
}

func TestSchemaJSON(t *testing.T) {
	t.Parallel()

	out, err := SchemaJSON()
	if err != nil {
		t.Fatalf("SchemaJSON() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("SchemaJSON() is not valid JSON: %v", err)
	}
	if decoded["additionalProperties"] != false {
		t.Errorf("additionalProperties = %v, want false", decoded["additionalProperties"])
	}
}
