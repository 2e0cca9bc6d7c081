package mcp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/carbonstats/pkg/mcp"
)

func TestNewServer_ReturnsNonNil(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})
	require.NotNil(t, srv)
}

func TestNewServer_ToolsRegistered(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{Version: "1.2.3"})

	assert.Equal(t, []string{mcp.ToolNameProjects, mcp.ToolNameStats}, srv.ListToolNames())
}

func TestListToolNames_ReturnsCopy(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})

	names := srv.ListToolNames()
	names[0] = "mutated"

	assert.NotContains(t, srv.ListToolNames(), "mutated")
}
