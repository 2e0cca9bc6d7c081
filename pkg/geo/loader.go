package geo

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrInvalidTable indicates a continent document that fails schema validation.
var ErrInvalidTable = errors.New("invalid continent table")

//go:embed schema.json
var tableSchema []byte

// document is the on-disk layout: continent name to the countries it contains.
type document struct {
	Continents map[string][]string `yaml:"continents"`
}

// Parse decodes and validates a YAML (or JSON) continent document.
func Parse(data []byte) (*Table, error) {
	var raw any

	err := yaml.Unmarshal(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("decode continent table: %w", err)
	}

	err = validate(raw)
	if err != nil {
		return nil, err
	}

	var doc document

	err = yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("decode continent table: %w", err)
	}

	return fromDocument(doc)
}

// LoadFile reads and parses a continent document from disk.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read continent table: %w", err)
	}

	table, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return table, nil
}

// Load returns the default table, extended by the document at path when
// path is non-empty. Entries in the file take precedence.
func Load(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	overlay, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	return Merge(Default(), overlay), nil
}

func validate(raw any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(tableSchema),
		gojsonschema.NewGoLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTable, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidTable, strings.Join(problems, "; "))
}

func fromDocument(doc document) (*Table, error) {
	owners := make(map[string]string)
	entries := make(map[string]string)

	for continent, countries := range doc.Continents {
		for _, country := range countries {
			key := fold(country)

			if prev, ok := owners[key]; ok && prev != continent {
				return nil, fmt.Errorf("%w: %q in %q and %q", ErrAmbiguousCountry, country, prev, continent)
			}

			owners[key] = continent
			entries[country] = continent
		}
	}

	return NewTable(entries), nil
}
