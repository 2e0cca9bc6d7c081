package carbon

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/carbonstats/pkg/alg/mapx"
)

// ErrInconsistentResult indicates aggregates that contradict each other.
var ErrInconsistentResult = errors.New("inconsistent aggregate result")

// Result holds the dashboard statistics computed over both full collections.
// JSON field names are part of the HTTP API.
type Result struct {
	TotalProjects    int              `json:"totalProjects"`
	ForestProjects   int              `json:"forestProjects"`
	Countries        int              `json:"countries"`
	Continents       int              `json:"continents"`
	TotalCredits     int64            `json:"totalCredits"`
	CountryStats     map[string]int   `json:"countryStats"`
	ContinentStats   map[string]int   `json:"continentStats"`
	CategoryStats    map[string]int   `json:"categoryStats"`
	CreditsByCountry map[string]int64 `json:"creditsByCountry"`
	VintageStats     map[string]int64 `json:"vintageStats"`
}

// NewResult returns an empty result with every map allocated.
func NewResult() *Result {
	return &Result{
		CountryStats:     make(map[string]int),
		ContinentStats:   make(map[string]int),
		CategoryStats:    make(map[string]int),
		CreditsByCountry: make(map[string]int64),
		VintageStats:     make(map[string]int64),
	}
}

// Validate checks the invariants every complete result satisfies.
func (r *Result) Validate() error {
	if r.ForestProjects > r.TotalProjects {
		return fmt.Errorf("%w: forestProjects %d > totalProjects %d", ErrInconsistentResult, r.ForestProjects, r.TotalProjects)
	}

	for name, dim := range map[string]map[string]int{
		"countryStats":   r.CountryStats,
		"continentStats": r.ContinentStats,
		"categoryStats":  r.CategoryStats,
	} {
		if sum := mapx.SumValues(dim); sum != r.TotalProjects {
			return fmt.Errorf("%w: %s sums to %d, totalProjects is %d", ErrInconsistentResult, name, sum, r.TotalProjects)
		}
	}

	if r.Countries != len(r.CountryStats) {
		return fmt.Errorf("%w: countries %d != %d distinct", ErrInconsistentResult, r.Countries, len(r.CountryStats))
	}

	if r.Continents != len(r.ContinentStats) {
		return fmt.Errorf("%w: continents %d != %d distinct", ErrInconsistentResult, r.Continents, len(r.ContinentStats))
	}

	return nil
}

// Clone returns a deep copy, so cached results can be handed out safely.
func (r *Result) Clone() *Result {
	out := *r
	out.CountryStats = mapx.Clone(r.CountryStats)
	out.ContinentStats = mapx.Clone(r.ContinentStats)
	out.CategoryStats = mapx.Clone(r.CategoryStats)
	out.CreditsByCountry = mapx.Clone(r.CreditsByCountry)
	out.VintageStats = mapx.Clone(r.VintageStats)

	return &out
}

// Entry is one key of a statistics map with its value.
type Entry[V int | int64] struct {
	Key   string `json:"key"`
	Value V      `json:"value"`
}

// Ranked returns the entries of m ordered by value descending, then key.
// A positive limit keeps only the first limit entries.
func Ranked[V int | int64](m map[string]V, limit int) []Entry[V] {
	entries := make([]Entry[V], 0, len(m))

	for k, v := range m {
		entries = append(entries, Entry[V]{Key: k, Value: v})
	}

	slices.SortFunc(entries, func(a, b Entry[V]) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}

		return cmp.Compare(a.Key, b.Key)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries
}

// Chronological returns vintage entries ordered by year key.
func (r *Result) Chronological() []Entry[int64] {
	keys := mapx.SortedKeys(r.VintageStats)
	entries := make([]Entry[int64], 0, len(keys))

	for _, k := range keys {
		entries = append(entries, Entry[int64]{Key: k, Value: r.VintageStats[k]})
	}

	return entries
}
