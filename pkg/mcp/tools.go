package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool name constants.
const (
	ToolNameStats    = "carbon_stats"
	ToolNameProjects = "carbon_projects"
)

// Input limits.
const (
	// DefaultTop is the number of entries kept per breakdown when top is unset.
	DefaultTop = 10
	// DefaultProjectLimit is the carbon_projects page size when limit is unset.
	DefaultProjectLimit = 50
	// MaxProjectLimit bounds carbon_projects pages.
	MaxProjectLimit = 500
)

// Sentinel errors for tool input validation.
var (
	// ErrNegativeTop indicates a negative top parameter.
	ErrNegativeTop = errors.New("top must not be negative")
	// ErrNegativeLimit indicates a negative limit parameter.
	ErrNegativeLimit = errors.New("limit must not be negative")
	// ErrNegativeOffset indicates a negative offset parameter.
	ErrNegativeOffset = errors.New("offset must not be negative")
	// ErrNoSource indicates the server was built without the backing source.
	ErrNoSource = errors.New("tool has no data source configured")
)

// Input types (auto-generate JSON schemas via struct tags).

// StatsInput is the input schema for the carbon_stats tool.
type StatsInput struct {
	Top int `json:"top,omitempty" jsonschema:"entries kept per breakdown (default: 10)"`
}

// ProjectsInput is the input schema for the carbon_projects tool.
type ProjectsInput struct {
	Category string `json:"category,omitempty" jsonschema:"exact project category (e.g. forest)"`
	Country  string `json:"country,omitempty"  jsonschema:"exact project country (e.g. Brazil)"`
	Limit    int    `json:"limit,omitempty"    jsonschema:"page size (default: 50, max: 500)"`
	Offset   int    `json:"offset,omitempty"   jsonschema:"rows to skip"`
	Search   string `json:"search,omitempty"   jsonschema:"case-insensitive substring of project name or id"`
}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
