package carbon

import (
	"context"
	"fmt"
	"iter"

	"github.com/Sumatoshi-tech/carbonstats/pkg/geo"
)

// Aggregate computes statistics in two passes: projects first, building the
// project to country join, then credits. Credits whose project is unknown
// count toward totals and vintages only. A nil lookup uses geo.Default.
//
// Any error from either sequence aborts the aggregation; no partial result
// is returned.
func Aggregate(
	ctx context.Context,
	projects iter.Seq2[Project, error],
	credits iter.Seq2[Credit, error],
	lookup geo.Lookup,
) (*Result, error) {
	if lookup == nil {
		lookup = geo.Default()
	}

	result := NewResult()

	countryOf, err := aggregateProjects(projects, lookup, result)
	if err != nil {
		return nil, fmt.Errorf("aggregate projects: %w", err)
	}

	err = ctx.Err()
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	err = aggregateCredits(credits, countryOf, result)
	if err != nil {
		return nil, fmt.Errorf("aggregate credits: %w", err)
	}

	err = result.Validate()
	if err != nil {
		return nil, err
	}

	return result, nil
}

func aggregateProjects(projects iter.Seq2[Project, error], lookup geo.Lookup, result *Result) (map[string]string, error) {
	countryOf := make(map[string]string)

	for project, err := range projects {
		if err != nil {
			return nil, err
		}

		result.TotalProjects++

		if project.Category == ForestCategory {
			result.ForestProjects++
		}

		result.CountryStats[project.Country]++
		result.ContinentStats[lookup.ContinentOf(project.Country)]++
		result.CategoryStats[project.Category]++

		// Later duplicates overwrite earlier ones.
		countryOf[project.ProjectID] = project.Country
	}

	result.Countries = len(result.CountryStats)
	result.Continents = len(result.ContinentStats)

	return countryOf, nil
}

func aggregateCredits(credits iter.Seq2[Credit, error], countryOf map[string]string, result *Result) error {
	for credit, err := range credits {
		if err != nil {
			return err
		}

		result.TotalCredits += credit.Quantity

		if country, ok := countryOf[credit.ProjectID]; ok {
			result.CreditsByCountry[country] += credit.Quantity
		}

		if credit.Vintage != nil {
			result.VintageStats[credit.VintageKey()] += credit.Quantity
		}
	}

	return nil
}
