// Package geo maps country names to continents.
//
// The mapping is reference data, not logic: the default table is an embedded
// YAML document and operators can extend or override it with their own file
// without touching the aggregation code.
package geo

import (
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Unknown is the continent of every country missing from the table.
const Unknown = "Unknown"

// ErrAmbiguousCountry indicates a country listed under more than one continent.
var ErrAmbiguousCountry = errors.New("country listed under more than one continent")

//go:embed continents.yaml
var defaultTable []byte

// Lookup resolves a country to its continent. Implementations must be total:
// every input yields a continent, falling back to Unknown.
type Lookup interface {
	ContinentOf(country string) string
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(country string) string

// ContinentOf implements Lookup.
func (f LookupFunc) ContinentOf(country string) string {
	return f(country)
}

// Table is an immutable country to continent mapping. Lookups try the exact
// name first, then the trimmed, case-folded name.
type Table struct {
	exact  map[string]string
	folded map[string]string
}

// NewTable builds a table from a country to continent map. Blank countries
// and continents are skipped.
func NewTable(entries map[string]string) *Table {
	t := &Table{
		exact:  make(map[string]string, len(entries)),
		folded: make(map[string]string, len(entries)),
	}

	for country, continent := range entries {
		t.set(country, continent)
	}

	return t
}

func (t *Table) set(country, continent string) {
	country = strings.TrimSpace(country)
	continent = strings.TrimSpace(continent)

	if country == "" || continent == "" {
		return
	}

	t.exact[country] = continent
	t.folded[fold(country)] = continent
}

func (t *Table) drop(country string) {
	key := fold(country)

	for name := range t.exact {
		if fold(name) == key {
			delete(t.exact, name)
		}
	}

	delete(t.folded, key)
}

// ContinentOf implements Lookup.
func (t *Table) ContinentOf(country string) string {
	if t == nil {
		return Unknown
	}

	if continent, ok := t.exact[country]; ok {
		return continent
	}

	if continent, ok := t.folded[fold(country)]; ok {
		return continent
	}

	return Unknown
}

// Len returns the number of countries in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}

	return len(t.exact)
}

// Entries returns a copy of the country to continent mapping.
func (t *Table) Entries() map[string]string {
	if t == nil {
		return map[string]string{}
	}

	return maps.Clone(t.exact)
}

// Continents returns the sorted distinct continents named by the table.
func (t *Table) Continents() []string {
	seen := make(map[string]struct{})

	for _, continent := range t.Entries() {
		seen[continent] = struct{}{}
	}

	return slices.Sorted(maps.Keys(seen))
}

// Merge returns a new table with overlay entries replacing base entries.
// An overlay country replaces every base spelling that folds to the same name.
func Merge(base, overlay *Table) *Table {
	merged := NewTable(base.Entries())

	for country, continent := range overlay.Entries() {
		merged.drop(country)
		merged.set(country, continent)
	}

	return merged
}

var loadDefault = sync.OnceValue(func() *Table {
	table, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("geo: embedded continent table is invalid: %v", err))
	}

	return table
})

// Default returns the embedded reference table. The table is shared and
// must not be modified.
func Default() *Table {
	return loadDefault()
}

func fold(country string) string {
	return strings.ToLower(strings.Join(strings.Fields(country), " "))
}
