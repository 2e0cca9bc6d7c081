package carbon

import (
	"encoding/json"
	"iter"
	"math"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/carbonstats/pkg/store"
)

// ForestCategory is the category counted by Result.ForestProjects.
const ForestCategory = "forest"

// Column names read by the engine.
const (
	ColumnProjectID = "project_id"
	ColumnCountry   = "country"
	ColumnCategory  = "category"
	ColumnQuantity  = "quantity"
	ColumnVintage   = "vintage"
)

// ProjectColumns is the projection used when scanning projects.
var ProjectColumns = []string{ColumnProjectID, ColumnCountry, ColumnCategory}

// CreditColumns is the projection used when scanning credits.
var CreditColumns = []string{ColumnProjectID, ColumnQuantity, ColumnVintage}

// Project is the part of a carbon project the statistics depend on.
type Project struct {
	ProjectID string `json:"project_id"`
	Country   string `json:"country"`
	Category  string `json:"category"`
}

// Credit is one credit transaction. ProjectID need not resolve to a project.
type Credit struct {
	ProjectID string `json:"project_id"`
	Quantity  int64  `json:"quantity"`
	Vintage   *int   `json:"vintage,omitempty"`
}

// VintageKey returns the vintage year as a map key, or "" when absent.
func (c Credit) VintageKey() string {
	if c.Vintage == nil {
		return ""
	}

	return strconv.Itoa(*c.Vintage)
}

// ProjectFromRow decodes a project. Missing text columns become "".
func ProjectFromRow(row store.Row) Project {
	return Project{
		ProjectID: row.String(ColumnProjectID),
		Country:   row.String(ColumnCountry),
		Category:  row.String(ColumnCategory),
	}
}

// CreditFromRow decodes a credit. A missing or non-numeric quantity is 0;
// a missing, zero, or non-numeric vintage is absent.
func CreditFromRow(row store.Row) Credit {
	credit := Credit{
		ProjectID: row.String(ColumnProjectID),
	}

	if qty, ok := toInt64(row[ColumnQuantity]); ok {
		credit.Quantity = qty
	}

	if year, ok := toInt64(row[ColumnVintage]); ok && year != 0 && year >= math.MinInt32 && year <= math.MaxInt32 {
		vintage := int(year)
		credit.Vintage = &vintage
	}

	return credit
}

// Projects decodes a row sequence into projects, passing errors through.
func Projects(rows iter.Seq2[store.Row, error]) iter.Seq2[Project, error] {
	return decode(rows, ProjectFromRow)
}

// Credits decodes a row sequence into credits, passing errors through.
func Credits(rows iter.Seq2[store.Row, error]) iter.Seq2[Credit, error] {
	return decode(rows, CreditFromRow)
}

func decode[T any](rows iter.Seq2[store.Row, error], fn func(store.Row) T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for row, err := range rows {
			var zero T

			if err != nil {
				yield(zero, err)

				return
			}

			if !yield(fn(row), nil) {
				return
			}
		}
	}
}

// toInt64 converts the numeric shapes backends produce. Fractions truncate.
func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint32:
		return int64(v), true
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}

		f, err := v.Float64()
		if err != nil {
			return 0, false
		}

		return floatToInt64(f)
	case string:
		return parseNumeric(v)
	case []byte:
		return parseNumeric(string(v))
	default:
		return 0, false
	}
}

func parseNumeric(s string) (int64, bool) {
	s = strings.TrimSpace(s)

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}

	return floatToInt64(f)
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}

	return int64(f), true
}
