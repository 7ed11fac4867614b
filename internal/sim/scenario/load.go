package scenario

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed scenario.schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("scenario.schema.json", bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("scenario.schema.json")
	})
	return schema, schemaErr
}

// Load reads a YAML or JSON scenario file, checks it against the embedded
// schema, and returns it normalized and validated.
func Load(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	s, err := Parse(raw)
	if err != nil {
		return s, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return s, nil
}

// Parse accepts YAML or JSON (YAML is a superset).
func Parse(raw []byte) (Scenario, error) {
	s := Defaults()

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return s, fmt.Errorf("parse: %w", err)
	}
	if doc != nil {
		if err := validateDocument(doc); err != nil {
			return s, err
		}
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("decode: %w", err)
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func validateDocument(doc any) error {
	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	// Round-trip through encoding/json so the validator sees JSON types.
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("scenario is not JSON-representable: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

// Marshal renders the scenario as YAML; run files embed it for replay.
func Marshal(s Scenario) ([]byte, error) {
	return yaml.Marshal(s)
}
