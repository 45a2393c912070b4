package profile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/profile.schema.json
var schemaJSON []byte

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func profileSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("profile.schema.json", bytes.NewReader(schemaJSON)); err != nil {
			compileErr = fmt.Errorf("failed to load profile schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile("profile.schema.json")
	})
	return compiled, compileErr
}

// validateDocument checks a decoded JSON document against the profile schema.
func validateDocument(doc any) error {
	schema, err := profileSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return nil
}

// Validate checks a spec against the profile schema and the rules the schema
// cannot express.
func Validate(s Spec) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode profile %q: %w", s.Name, err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode profile %q: %w", s.Name, err)
	}
	if err := validateDocument(doc); err != nil {
		return err
	}

	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		key := strings.ToLower(strings.TrimSpace(f.Name))
		if key == "" {
			return fmt.Errorf("%w: %s: blank field name", ErrInvalidProfile, s.Name)
		}
		if seen[key] {
			return fmt.Errorf("%w: %s: duplicate field %q", ErrInvalidProfile, s.Name, f.Name)
		}
		seen[key] = true
	}
	if s.MinTransactionFields > len(s.Fields) {
		return fmt.Errorf("%w: %s: min_transaction_fields %d exceeds %d fields",
			ErrInvalidProfile, s.Name, s.MinTransactionFields, len(s.Fields))
	}
	return nil
}
