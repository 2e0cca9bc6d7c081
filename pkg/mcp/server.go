// Package mcp implements a Model Context Protocol server exposing carbon
// project statistics and listings as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/carbonstats/pkg/carbon"
	"github.com/Sumatoshi-tech/carbonstats/pkg/observability"
	"github.com/Sumatoshi-tech/carbonstats/pkg/store"
)

const (
	// serverName is the MCP server implementation name.
	serverName = "carbonstats"

	// toolCount is the expected number of registered tools.
	toolCount = 2
)

// StatsSource supplies statistics over the full collections.
type StatsSource interface {
	Stats(ctx context.Context) (*carbon.Result, error)
}

// ProjectSource lists and counts filtered projects.
type ProjectSource interface {
	store.Lister
	Count(ctx context.Context, collection string, filter store.Filter) (int, error)
}

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value optional fields use production defaults.
type ServerDeps struct {
	Stats    StatsSource
	Projects ProjectSource

	// ProjectsCollection defaults to store.DefaultProjectsCollection.
	ProjectsCollection string

	// DefaultLimit and MaxLimit bound carbon_projects pages.
	DefaultLimit int
	MaxLimit     int

	// Version is reported as the server implementation version.
	Version string

	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Metrics is an optional RED metrics recorder. Nil disables per-tool metrics.
	Metrics *observability.REDMetrics

	// Tracer is an optional OTel tracer for per-tool-call spans. Nil disables tracing.
	Tracer trace.Tracer
}

// Server wraps the MCP SDK server with carbonstats tool registrations.
type Server struct {
	inner   *mcpsdk.Server
	deps    ServerDeps
	mu      sync.RWMutex
	tools   []string
	metrics *observability.REDMetrics
	tracer  trace.Tracer
}

// NewServer creates a new MCP server with all carbonstats tools registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	if deps.Version == "" {
		deps.Version = "dev"
	}

	if deps.ProjectsCollection == "" {
		deps.ProjectsCollection = store.DefaultProjectsCollection
	}

	if deps.DefaultLimit <= 0 {
		deps.DefaultLimit = DefaultProjectLimit
	}

	if deps.MaxLimit < deps.DefaultLimit {
		deps.MaxLimit = max(MaxProjectLimit, deps.DefaultLimit)
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: deps.Version,
		},
		opts,
	)

	srv := &Server{
		inner:   inner,
		deps:    deps,
		tools:   make([]string, 0, toolCount),
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport starts the MCP server on the given transport. It blocks
// until the context is canceled or the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// registerTools adds all carbonstats MCP tools to the server.
func (s *Server) registerTools() {
	s.registerStatsTool()
	s.registerProjectsTool()
}

func (s *Server) registerStatsTool() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameStats,
		Description: statsToolDescription,
	}, withMetrics(s.metrics, ToolNameStats, withTracing(s.tracer, ToolNameStats, s.handleStats)))

	s.trackTool(ToolNameStats)
}

func (s *Server) registerProjectsTool() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameProjects,
		Description: projectsToolDescription,
	}, withMetrics(s.metrics, ToolNameProjects, withTracing(s.tracer, ToolNameProjects, s.handleProjects)))

	s.trackTool(ToolNameProjects)
}

// mcpSpanPrefix is the prefix for MCP tool span names.
const mcpSpanPrefix = "mcp."

// traceIDMetaKey is the metadata key for trace_id in MCP tool responses.
const traceIDMetaKey = "trace_id"

// withTracing wraps an MCP tool handler to create an OTel span per invocation
// and include trace_id in the response content when sampled.
func withTracing[Input any](
	tracer trace.Tracer,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			traceContent := &mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String())}
			result.Content = append(result.Content, traceContent)
		}

		return result, output, err
	}
}

// withMetrics wraps an MCP tool handler to record RED metrics per invocation.
func withMetrics[Input any](
	metrics *observability.REDMetrics,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()
		op := mcpSpanPrefix + toolName

		decInflight := metrics.TrackInflight(ctx, op)
		defer decInflight()

		result, output, err := handler(ctx, req, input)

		status := observability.StatusOK
		if err != nil || (result != nil && result.IsError) {
			status = observability.StatusError
		}

		metrics.RecordRequest(ctx, op, status, time.Since(start))

		return result, output, err
	}
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

// Tool description constants.
const (
	statsToolDescription = "Compute carbon project dashboard statistics over the full collections: " +
		"project and credit totals plus per-country, per-continent, per-category and per-vintage breakdowns. " +
		"Breakdowns are ranked and limited to the top N entries."

	projectsToolDescription = "List carbon projects filtered by exact country or category and by a " +
		"case-insensitive search over name and project id. Returns one page plus the filtered total."
)
