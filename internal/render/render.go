// Package render prints dashboard statistics for terminals and scripts.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/carbonstats/pkg/carbon"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrUnknownFormat indicates an output format other than text or json.
var ErrUnknownFormat = errors.New("unknown output format")

// emptyKey labels projects with no country or category.
const emptyKey = "(none)"

const percent = 100

// Options controls text output.
type Options struct {
	Format string

	// Top keeps that many rows per breakdown. Zero keeps all.
	Top int

	NoColor bool
}

// Write renders result to w in the requested format.
func Write(w io.Writer, result *carbon.Result, opts Options) error {
	switch opts.Format {
	case FormatJSON:
		return JSON(w, result)
	case FormatText, "":
		return Text(w, result, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}

// JSON writes the result with the same field names as the HTTP API.
func JSON(w io.Writer, result *carbon.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(result)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}

	return nil
}

// Text writes a summary followed by one table per breakdown.
func Text(w io.Writer, result *carbon.Result, opts Options) error {
	heading := color.New(color.FgCyan, color.Bold)
	if opts.NoColor {
		heading.DisableColor()
	}

	var sb strings.Builder

	heading.Fprintln(&sb, "Carbon project statistics")
	sb.WriteString(summary(result))
	sb.WriteString("\n")

	sections := []struct {
		title string
		unit  string
		total int64
		rows  []row
	}{
		{"Countries", "Projects", int64(result.TotalProjects), rows(carbon.Ranked(result.CountryStats, opts.Top))},
		{"Continents", "Projects", int64(result.TotalProjects), rows(carbon.Ranked(result.ContinentStats, opts.Top))},
		{"Categories", "Projects", int64(result.TotalProjects), rows(carbon.Ranked(result.CategoryStats, opts.Top))},
		{"Credits by country", "Credits", result.TotalCredits, rows(carbon.Ranked(result.CreditsByCountry, opts.Top))},
		{"Credits by vintage", "Credits", result.TotalCredits, rows(result.Chronological())},
	}

	for _, section := range sections {
		sb.WriteString("\n")
		heading.Fprintln(&sb, section.title)
		sb.WriteString(breakdown(section.unit, section.total, section.rows))
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	if err != nil {
		return fmt.Errorf("write stats: %w", err)
	}

	return nil
}

type row struct {
	key   string
	value int64
}

func rows[V int | int64](entries []carbon.Entry[V]) []row {
	out := make([]row, 0, len(entries))

	for _, e := range entries {
		out = append(out, row{key: e.Key, value: int64(e.Value)})
	}

	return out
}

func summary(result *carbon.Result) string {
	tbl := newTable()

	tbl.AppendRows([]table.Row{
		{"Projects", humanize.Comma(int64(result.TotalProjects))},
		{"Forest projects", humanize.Comma(int64(result.ForestProjects))},
		{"Countries", humanize.Comma(int64(result.Countries))},
		{"Continents", humanize.Comma(int64(result.Continents))},
		{"Credits", humanize.Comma(result.TotalCredits)},
	})

	return tbl.Render()
}

func breakdown(unit string, total int64, entries []row) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"", unit, "Share"})

	for _, e := range entries {
		key := e.key
		if key == "" {
			key = emptyKey
		}

		tbl.AppendRow(table.Row{key, humanize.Comma(e.value), share(e.value, total)})
	}

	return tbl.Render()
}

func share(value, total int64) string {
	if total == 0 {
		return "-"
	}

	return humanize.FtoaWithDigits(float64(value)*percent/float64(total), 1) + "%"
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateHeader = true
	tbl.Style().Format.Header = text.FormatDefault
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})

	return tbl
}
