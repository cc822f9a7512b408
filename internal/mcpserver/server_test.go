package mcpserver

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/monfs/api"
	"github.com/agentic-research/monfs/internal/store"
	"github.com/agentic-research/monfs/internal/vfs"
)

func newTools(t *testing.T) *Tools {
	t.Helper()
	s := store.NewMemoryStore()
	rec := api.NewRecord("host")
	rec.ID = "h1"
	rec.Set("host_name", "test1")
	_, err := s.Insert(context.Background(), rec)
	require.NoError(t, err)
	return NewTools(vfs.New(s, nil), s, nil)
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestListDirectory(t *testing.T) {
	tools := newTools(t)

	res, err := tools.ListDirectory(context.Background(), call(map[string]any{"path": "/host"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "h1.cfg\n", text(t, res))

	res, err = tools.ListDirectory(context.Background(), call(map[string]any{"path": "/"}))
	require.NoError(t, err)
	assert.Contains(t, text(t, res), "hostTemplates/\n")

	res, err = tools.ListDirectory(context.Background(), call(map[string]any{"path": "/nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "not found")
}

func TestReadObject(t *testing.T) {
	tools := newTools(t)

	res, err := tools.ReadObject(context.Background(), call(map[string]any{"path": "/host/h1.cfg"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), "define host{\n")

	res, err = tools.ReadObject(context.Background(), call(map[string]any{"path": "/host"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = tools.ReadObject(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestFindObjects(t *testing.T) {
	tools := newTools(t)

	res, err := tools.FindObjects(context.Background(), call(map[string]any{"expr": "$[?(@.host_name == 'test1')]"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), "/host/h1.cfg")

	res, err = tools.FindObjects(context.Background(), call(map[string]any{"expr": "$[?("}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestNew(t *testing.T) {
	assert.NotNil(t, New(newTools(t), "test"))
}
