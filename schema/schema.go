// Package schema holds the ordered list of ERK model parameter names shared by
// the fit, tune and significance pipelines.
//
// The list is embedded from parameters.yaml and checked once at load time:
// it must contain exactly Size unique names. Spreadsheet headers are then
// validated against it position by position, so a missing or shifted column
// fails loudly instead of mislabelling every importance score after it.
package schema

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Size is the number of model parameters.
const Size = 48

//go:embed parameters.yaml
var embedded []byte

// Schema はバージョン付きのパラメータ名リスト
type Schema struct {
	Version    string            `yaml:"version"`
	Target     string            `yaml:"target"`
	Parameters []string          `yaml:"parameters"`
	Aliases    map[string]string `yaml:"aliases"`

	index map[string]int
}

var (
	defaultOnce   sync.Once
	defaultSchema *Schema
	defaultErr    error
)

// Default returns the embedded schema. It panics if the embedded file is
// broken, which can only happen at build time.
func Default() *Schema {
	defaultOnce.Do(func() {
		defaultSchema, defaultErr = Parse(embedded, Size)
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultSchema
}

// Names returns a copy of the embedded parameter names.
func Names() []string {
	return Default().Names()
}

// Parse decodes a schema document and checks that it lists exactly size
// unique parameters and that every alias points at one of them.
func Parse(data []byte, size int) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "schema: decode")
	}
	if s.Version == "" {
		return nil, errors.NewValidationError("version", "schema version is required", s.Version)
	}
	if len(s.Parameters) != size {
		return nil, errors.NewSchemaLengthError("schema", s.Version, size, len(s.Parameters))
	}

	s.index = make(map[string]int, len(s.Parameters))
	for i, name := range s.Parameters {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.NewSchemaNameError("schema", s.Version, i, "<non-empty>", name)
		}
		if prev, dup := s.index[name]; dup {
			return nil, errors.NewValidationError("parameters",
				fmt.Sprintf("duplicate name at positions %d and %d", prev, i), name)
		}
		s.Parameters[i] = name
		s.index[name] = i
	}
	for alias, canonical := range s.Aliases {
		if _, ok := s.index[canonical]; !ok {
			return nil, errors.NewValidationError("aliases", "alias target is not a parameter", alias+" -> "+canonical)
		}
	}
	return &s, nil
}

// Len returns the number of parameters.
func (s *Schema) Len() int { return len(s.Parameters) }

// Names returns a copy of the parameter names in column order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.Parameters))
	copy(out, s.Parameters)
	return out
}

// Canonical resolves a name or a legacy alias to the canonical name.
func (s *Schema) Canonical(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if _, ok := s.index[name]; ok {
		return name, true
	}
	if c, ok := s.Aliases[name]; ok {
		return c, true
	}
	return "", false
}

// Index returns the column position of a name or alias, or -1.
func (s *Schema) Index(name string) int {
	c, ok := s.Canonical(name)
	if !ok {
		return -1
	}
	return s.index[c]
}

// Validate checks a feature header (target column already removed) against
// the schema. Legacy aliases are accepted with a SchemaAliasWarning.
func (s *Schema) Validate(source string, header []string) error {
	if len(header) != len(s.Parameters) {
		return errors.NewSchemaLengthError(source, s.Version, len(s.Parameters), len(header))
	}
	for i, got := range header {
		got = strings.TrimSpace(got)
		want := s.Parameters[i]
		if got == want {
			continue
		}
		if c, ok := s.Aliases[got]; ok && c == want {
			errors.Warn(&errors.SchemaAliasWarning{Position: i, Got: got, Canonical: want})
			continue
		}
		return errors.NewSchemaNameError(source, s.Version, i, want, got)
	}
	return nil
}

// CheckLen verifies that a per-parameter vector has one entry per parameter.
func (s *Schema) CheckLen(what string, n int) error {
	if n != len(s.Parameters) {
		return errors.NewSchemaLengthError(what, s.Version, len(s.Parameters), n)
	}
	return nil
}
