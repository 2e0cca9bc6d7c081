package render_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/carbonstats/internal/render"
	"github.com/Sumatoshi-tech/carbonstats/pkg/carbon"
)

func scenario() *carbon.Result {
	result := carbon.NewResult()
	result.TotalProjects = 3
	result.ForestProjects = 2
	result.Countries = 2
	result.Continents = 2
	result.TotalCredits = 12500
	result.CountryStats = map[string]int{"Brazil": 2, "": 1}
	result.ContinentStats = map[string]int{"South America": 2, "Unknown": 1}
	result.CategoryStats = map[string]int{"forest": 2, "energy": 1}
	result.CreditsByCountry = map[string]int64{"Brazil": 12500}
	result.VintageStats = map[string]int64{"2024": 2500, "2023": 10000}

	return result
}

func TestText_Sections(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, render.Write(&buf, scenario(), render.Options{NoColor: true}))

	out := buf.String()

	for _, want := range []string{
		"Carbon project statistics",
		"Countries", "Continents", "Categories", "Credits by country", "Credits by vintage",
		"Brazil", "South America", "(none)",
		"12,500", "10,000", "66.7%", "100%",
	} {
		assert.Contains(t, out, want)
	}

	assert.NotContains(t, out, "\x1b[", "no escape codes without color")
	assert.Less(t, strings.Index(out, "2023"), strings.Index(out, "2024"), "vintages are chronological")
}

func TestText_TopLimitsBreakdowns(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, render.Write(&buf, scenario(), render.Options{Format: render.FormatText, Top: 1, NoColor: true}))

	out := buf.String()
	assert.Contains(t, out, "forest")
	assert.NotContains(t, out, "energy")
	assert.Contains(t, out, "2024", "vintages are never cut")
}

func TestText_EmptyResult(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, render.Text(&buf, carbon.NewResult(), render.Options{NoColor: true}))
	assert.Contains(t, buf.String(), "Projects")
	assert.NotContains(t, buf.String(), "NaN")
}

func TestJSON_UsesAPIFieldNames(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, render.Write(&buf, scenario(), render.Options{Format: render.FormatJSON}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.InDelta(t, 3, decoded["totalProjects"], 0)
	assert.InDelta(t, 12500, decoded["totalCredits"], 0)
	assert.Contains(t, decoded, "continentStats")
	assert.Contains(t, decoded, "vintageStats")
}

func TestWrite_UnknownFormat(t *testing.T) {
	t.Parallel()

	err := render.Write(&bytes.Buffer{}, scenario(), render.Options{Format: "xml"})
	require.ErrorIs(t, err, render.ErrUnknownFormat)
}
