package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/carbonstats/pkg/store"
)

// ProjectsOutput is the carbon_projects payload.
type ProjectsOutput struct {
	Projects []store.Row `json:"projects"`
	Total    int         `json:"total"`
	Limit    int         `json:"limit"`
	Offset   int         `json:"offset"`
}

// handleProjects processes carbon_projects tool calls.
func (s *Server) handleProjects(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input ProjectsInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	query, err := s.projectQuery(input)
	if err != nil {
		return errorResult(err)
	}

	if s.deps.Projects == nil {
		return errorResult(fmt.Errorf("%w: %s", ErrNoSource, ToolNameProjects))
	}

	out := ProjectsOutput{Limit: query.Range.Limit, Offset: query.Range.Offset}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, listErr := s.deps.Projects.List(gctx, s.deps.ProjectsCollection, query)
		if listErr != nil {
			return fmt.Errorf("list projects: %w", listErr)
		}

		out.Projects = rows

		return nil
	})

	g.Go(func() error {
		total, countErr := s.deps.Projects.Count(gctx, s.deps.ProjectsCollection, query.Filter)
		if countErr != nil {
			return fmt.Errorf("count projects: %w", countErr)
		}

		out.Total = total

		return nil
	})

	err = g.Wait()
	if err != nil {
		return errorResult(err)
	}

	if out.Projects == nil {
		out.Projects = []store.Row{}
	}

	return jsonResult(out)
}

// projectQuery validates input and applies the page defaults.
func (s *Server) projectQuery(input ProjectsInput) (store.ListQuery, error) {
	if input.Limit < 0 {
		return store.ListQuery{}, fmt.Errorf("%w: %d", ErrNegativeLimit, input.Limit)
	}

	if input.Offset < 0 {
		return store.ListQuery{}, fmt.Errorf("%w: %d", ErrNegativeOffset, input.Offset)
	}

	limit := input.Limit
	if limit == 0 {
		limit = s.deps.DefaultLimit
	}

	return store.ListQuery{
		Filter: store.Filter{
			Country:  strings.TrimSpace(input.Country),
			Category: strings.TrimSpace(input.Category),
			Search:   strings.TrimSpace(input.Search),
		},
		Range: store.Range{Offset: input.Offset, Limit: min(limit, s.deps.MaxLimit)},
	}, nil
}
