package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/carbonstats/pkg/carbon"
)

// StatsOutput is the carbon_stats payload: totals plus ranked breakdowns.
type StatsOutput struct {
	TotalProjects    int                   `json:"totalProjects"`
	ForestProjects   int                   `json:"forestProjects"`
	Countries        int                   `json:"countries"`
	Continents       int                   `json:"continents"`
	TotalCredits     int64                 `json:"totalCredits"`
	TopCountries     []carbon.Entry[int]   `json:"topCountries"`
	ContinentStats   []carbon.Entry[int]   `json:"continentStats"`
	CategoryStats    []carbon.Entry[int]   `json:"categoryStats"`
	CreditsByCountry []carbon.Entry[int64] `json:"creditsByCountry"`
	VintageStats     []carbon.Entry[int64] `json:"vintageStats"`
}

// handleStats processes carbon_stats tool calls.
func (s *Server) handleStats(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input StatsInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Top < 0 {
		return errorResult(fmt.Errorf("%w: %d", ErrNegativeTop, input.Top))
	}

	if s.deps.Stats == nil {
		return errorResult(fmt.Errorf("%w: %s", ErrNoSource, ToolNameStats))
	}

	top := input.Top
	if top == 0 {
		top = DefaultTop
	}

	result, err := s.deps.Stats.Stats(ctx)
	if err != nil {
		return errorResult(fmt.Errorf("compute stats: %w", err))
	}

	return jsonResult(summarize(result, top))
}

// summarize ranks every breakdown and keeps the top entries. Vintages stay
// in year order and are never cut.
func summarize(result *carbon.Result, top int) StatsOutput {
	return StatsOutput{
		TotalProjects:    result.TotalProjects,
		ForestProjects:   result.ForestProjects,
		Countries:        result.Countries,
		Continents:       result.Continents,
		TotalCredits:     result.TotalCredits,
		TopCountries:     carbon.Ranked(result.CountryStats, top),
		ContinentStats:   carbon.Ranked(result.ContinentStats, top),
		CategoryStats:    carbon.Ranked(result.CategoryStats, top),
		CreditsByCountry: carbon.Ranked(result.CreditsByCountry, top),
		VintageStats:     result.Chronological(),
	}
}
