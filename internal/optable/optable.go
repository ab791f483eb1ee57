// Package optable loads the declarative operation tables that feed the
// operation registry: one `name -> kernel body` mapping for unary operations
// and one for binary elementwise operations.
package optable

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultTable []byte

// ErrInvalidTable is returned when a table fails validation.
var ErrInvalidTable = errors.New("invalid operation table")

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Tables holds the two operation tables.
type Tables struct {
	Unary  map[string]string `yaml:"unary"`
	Binary map[string]string `yaml:"binary"`
}

// Default returns the built-in operation table.
func Default() Tables {
	tables, err := decode(defaultTable)
	if err != nil {
		// The embedded table is part of the build.
		panic("optable: embedded default table: " + err.Error())
	}
	return tables
}

// Load decodes and validates tables from YAML.
func Load(r io.Reader) (Tables, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Tables{}, fmt.Errorf("optable: read: %w", err)
	}
	return decode(data)
}

// LoadFile decodes and validates tables from a YAML file.
func LoadFile(path string) (Tables, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is an operator-supplied table file.
	if err != nil {
		return Tables{}, fmt.Errorf("optable: %w", err)
	}
	defer f.Close()

	tables, err := Load(f)
	if err != nil {
		return Tables{}, fmt.Errorf("optable: %s: %w", path, err)
	}
	return tables, nil
}

func decode(data []byte) (Tables, error) {
	var tables Tables
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return Tables{}, fmt.Errorf("optable: decode: %w", err)
	}
	if tables.Unary == nil {
		tables.Unary = map[string]string{}
	}
	if tables.Binary == nil {
		tables.Binary = map[string]string{}
	}
	if err := tables.Validate(); err != nil {
		return Tables{}, err
	}
	return tables, nil
}

// Validate checks operation names and rejects empty bodies.
func (t Tables) Validate() error {
	for _, section := range []struct {
		name  string
		table map[string]string
	}{
		{"unary", t.Unary},
		{"binary", t.Binary},
	} {
		for _, name := range slices.Sorted(maps.Keys(section.table)) {
			if !namePattern.MatchString(name) {
				return fmt.Errorf("%w: %s operation name %q", ErrInvalidTable, section.name, name)
			}
			if strings.TrimSpace(section.table[name]) == "" {
				return fmt.Errorf("%w: %s operation %q has an empty body", ErrInvalidTable, section.name, name)
			}
		}
	}
	return nil
}

// Merge returns a copy of base with every entry of overlay added on top.
// Overlay entries replace base entries of the same name.
func Merge(base, overlay Tables) Tables {
	merged := Tables{
		Unary:  make(map[string]string, len(base.Unary)+len(overlay.Unary)),
		Binary: make(map[string]string, len(base.Binary)+len(overlay.Binary)),
	}
	maps.Copy(merged.Unary, base.Unary)
	maps.Copy(merged.Unary, overlay.Unary)
	maps.Copy(merged.Binary, base.Binary)
	maps.Copy(merged.Binary, overlay.Binary)
	return merged
}
