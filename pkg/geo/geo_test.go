package geo_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/carbonstats/pkg/geo"
)

func TestDefault_KnownCountries(t *testing.T) {
	t.Parallel()

	table := geo.Default()

	tests := map[string]string{
		"Brazil":        "South America",
		"Kenya":         "Africa",
		"Indonesia":     "Asia",
		"Germany":       "Europe",
		"United States": "North America",
		"USA":           "North America",
		"Australia":     "Oceania",
	}

	for country, want := range tests {
		assert.Equal(t, want, table.ContinentOf(country), country)
	}

	assert.Greater(t, table.Len(), 150)
	assert.Equal(t,
		[]string{"Africa", "Asia", "Europe", "North America", "Oceania", "South America"},
		table.Continents())
}

func TestDefault_UnknownFallback(t *testing.T) {
	t.Parallel()

	table := geo.Default()

	assert.Equal(t, geo.Unknown, table.ContinentOf("Mars"))
	assert.Equal(t, geo.Unknown, table.ContinentOf(""))
	assert.Equal(t, geo.Unknown, table.ContinentOf("   "))
}

func TestTable_FoldedMatch(t *testing.T) {
	t.Parallel()

	table := geo.NewTable(map[string]string{"New Zealand": "Oceania"})

	assert.Equal(t, "Oceania", table.ContinentOf("New Zealand"))
	assert.Equal(t, "Oceania", table.ContinentOf("new zealand"))
	assert.Equal(t, "Oceania", table.ContinentOf("  New   Zealand "))
	assert.Equal(t, geo.Unknown, table.ContinentOf("Zealand"))
}

func TestTable_NilIsTotal(t *testing.T) {
	t.Parallel()

	var table *geo.Table

	assert.Equal(t, geo.Unknown, table.ContinentOf("Brazil"))
	assert.Zero(t, table.Len())
	assert.Empty(t, table.Entries())
}

func TestLookupFunc(t *testing.T) {
	t.Parallel()

	var lookup geo.Lookup = geo.LookupFunc(func(string) string { return "Everywhere" })

	assert.Equal(t, "Everywhere", lookup.ContinentOf("Chad"))
}

func TestParse_Valid(t *testing.T) {
	t.Parallel()

	table, err := geo.Parse([]byte(`
continents:
  Antarctica:
    - Ross Dependency
  Europe:
    - Atlantis
`))
	require.NoError(t, err)

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, "Antarctica", table.ContinentOf("Ross Dependency"))
	assert.Equal(t, "Europe", table.ContinentOf("Atlantis"))
}

func TestParse_AcceptsJSON(t *testing.T) {
	t.Parallel()

	table, err := geo.Parse([]byte(`{"continents": {"Asia": ["Nepal"]}}`))
	require.NoError(t, err)
	assert.Equal(t, "Asia", table.ContinentOf("Nepal"))
}

func TestParse_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"empty document":    ``,
		"missing key":       `regions: {}`,
		"no continents":     `continents: {}`,
		"country not list":  `continents: {Asia: Nepal}`,
		"blank country":     `continents: {Asia: [""]}`,
		"duplicate country": `continents: {Asia: [Nepal, Nepal]}`,
		"unknown top key":   "continents: {Asia: [Nepal]}\nextra: 1",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := geo.Parse([]byte(doc))
			require.ErrorIs(t, err, geo.ErrInvalidTable)
		})
	}
}

func TestParse_AmbiguousCountry(t *testing.T) {
	t.Parallel()

	_, err := geo.Parse([]byte(`
continents:
  Europe: [Turkey]
  Asia: [turkey]
`))
	require.ErrorIs(t, err, geo.ErrAmbiguousCountry)
}

func TestParse_MalformedYAML(t *testing.T) {
	t.Parallel()

	_, err := geo.Parse([]byte("continents: [unclosed"))
	require.Error(t, err)
}

func TestLoad_ExtendsDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
continents:
  Antarctica: [Mars]
  Asia: [Russia]
`), 0o600))

	table, err := geo.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Antarctica", table.ContinentOf("Mars"))
	assert.Equal(t, "Asia", table.ContinentOf("Russia"), "file entries override defaults")
	assert.Equal(t, "South America", table.ContinentOf("Brazil"), "defaults are kept")

	assert.Equal(t, "Europe", geo.Default().ContinentOf("Russia"), "default table is untouched")
}

func TestMerge_OverlayReplacesFoldedSpellings(t *testing.T) {
	t.Parallel()

	merged := geo.Merge(geo.Default(), geo.NewTable(map[string]string{"brazil": "Europe"}))

	assert.Equal(t, "Europe", merged.ContinentOf("Brazil"))
	assert.Equal(t, "Europe", merged.ContinentOf("brazil"))
	assert.Equal(t, "Europe", merged.ContinentOf(" BRAZIL "))
	assert.Equal(t, geo.Default().Len(), merged.Len())
	assert.Equal(t, "South America", geo.Default().ContinentOf("Brazil"), "base table is untouched")
}

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	t.Parallel()

	table, err := geo.Load("")
	require.NoError(t, err)
	assert.Same(t, geo.Default(), table)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := geo.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSuggest(t *testing.T) {
	t.Parallel()

	table := geo.Default()

	tests := map[string]string{
		"Brasil":     "Brazil",
		"kenia":      "Kenya",
		"Indonesa":   "Indonesia",
		"Brazil":     "",
		"brazil":     "",
		"":           "",
		"Xyzzyplugh": "",
	}

	for query, want := range tests {
		assert.Equal(t, want, table.Suggest(query), query)
	}

	var empty *geo.Table
	assert.Empty(t, empty.Suggest("Brasil"))
}
