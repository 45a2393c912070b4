package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a profile from a .yaml, .yml or .json file. The document is
// validated against the profile schema before it is decoded.
func LoadFile(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes a profile document. ext selects the syntax (".json" or a
// YAML extension); YAML is a superset of JSON so anything else is read as YAML.
func Parse(data []byte, ext string) (Spec, error) {
	var doc any
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return Spec{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Spec{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
		}
	}

	// Round-trip through JSON so YAML documents validate the same way.
	normalized, err := json.Marshal(doc)
	if err != nil {
		return Spec{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	var generic any
	if err := json.Unmarshal(normalized, &generic); err != nil {
		return Spec{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if err := validateDocument(generic); err != nil {
		return Spec{}, err
	}

	var s Spec
	if err := json.Unmarshal(normalized, &s); err != nil {
		return Spec{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if err := Validate(s); err != nil {
		return Spec{}, err
	}
	return s, nil
}

// LoadFiles registers every profile file into r.
func (r *Registry) LoadFiles(paths ...string) error {
	for _, p := range paths {
		s, err := LoadFile(p)
		if err != nil {
			return err
		}
		if err := r.Register(s); err != nil {
			return fmt.Errorf("failed to register profile from %s: %w", p, err)
		}
	}
	return nil
}
