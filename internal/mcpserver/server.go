// Package mcpserver exposes the filesystem to agents as read-only MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/agentic-research/monfs/internal/query"
	"github.com/agentic-research/monfs/internal/store"
	"github.com/agentic-research/monfs/internal/vfs"
)

// Tools holds the handlers behind the MCP tools.
type Tools struct {
	adapter *vfs.Adapter
	store   store.Store
	log     *zap.Logger
}

func NewTools(a *vfs.Adapter, s store.Store, log *zap.Logger) *Tools {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tools{adapter: a, store: s, log: log}
}

// New builds an MCP server with list_directory, read_object and
// find_objects registered.
func New(t *Tools, version string) *server.MCPServer {
	s := server.NewMCPServer("monfs", version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("list_directory",
		mcp.WithDescription("List a monfs directory. \"/\" lists the object type directories; "+
			"a type directory lists one <id>.cfg entry per object (.cfg.disabled when disabled)."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Directory path, e.g. / or /host")),
	), t.ListDirectory)

	s.AddTool(mcp.NewTool("read_object",
		mcp.WithDescription("Read one object definition, rendered as a define block."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Entry path, e.g. /host/<id>.cfg")),
	), t.ReadObject)

	s.AddTool(mcp.NewTool("find_objects",
		mcp.WithDescription("Evaluate a JSONPath expression over all object documents "+
			"({_id, _monfs:{type,enabled}, fields...}) and return the matches as JSON."),
		mcp.WithString("expr", mcp.Required(), mcp.Description("JSONPath, e.g. $[?(@._monfs.type == 'host')]")),
	), t.FindObjects)

	return s
}

// ServeStdio runs the server over stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func (t *Tools) ListDirectory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries, err := t.adapter.Enumerate(ctx, p)
	if err != nil {
		return t.toolError("list_directory", p, err), nil
	}
	var b strings.Builder
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		b.WriteString(e.Name)
		if e.Attr.IsDir() {
			b.WriteByte('/')
		}
		b.WriteByte('\n')
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (t *Tools) ReadObject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := t.adapter.Content(ctx, p)
	if err != nil {
		return t.toolError("read_object", p, err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (t *Tools) FindObjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := req.RequireString("expr")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	matches, err := query.Records(ctx, t.store, expr)
	if err != nil {
		return t.toolError("find_objects", expr, err), nil
	}
	return mcp.NewToolResultText(query.JSON(matches)), nil
}

func (t *Tools) toolError(tool, arg string, err error) *mcp.CallToolResult {
	t.log.Debug("tool failed", zap.String("tool", tool), zap.String("arg", arg), zap.Error(err))
	switch {
	case errors.Is(err, vfs.ErrNotFound):
		return mcp.NewToolResultError("not found: " + arg)
	case errors.Is(err, vfs.ErrNotDir):
		return mcp.NewToolResultError("not a directory: " + arg)
	case errors.Is(err, vfs.ErrIsDir):
		return mcp.NewToolResultError("is a directory: " + arg)
	}
	return mcp.NewToolResultError(err.Error())
}
