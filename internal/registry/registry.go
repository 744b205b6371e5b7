// Package registry wraps an MCP server with startup-time registration checks
// and a panic guard at the tool handler boundary.
package registry

import (
	"context"
	"fmt"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Registry owns an MCP server and the set of tool names registered on it.
// The tool set is fixed at startup: registration is declarative and total,
// and a duplicate or unnamed tool is an error, not a silent replace.
type Registry struct {
	server *mcp.Server
	names  map[string]struct{}
}

// New creates a registry backed by a fresh MCP server.
func New(name, version string) *Registry {
	return &Registry{
		server: mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		names:  make(map[string]struct{}),
	}
}

// Server exposes the underlying MCP server for running a transport.
func (r *Registry) Server() *mcp.Server {
	return r.server
}

// Names returns the registered tool names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.names))
	for name := range r.names {
		out = append(out, name)
	}
	return out
}

// Register adds a tool and its handler to the server. The handler is wrapped
// so a panic inside it becomes a Failure result for that invocation instead
// of taking down the process.
func (r *Registry) Register(tool *mcp.Tool, handler mcp.ToolHandler) error {
	if tool == nil || handler == nil {
		return fmt.Errorf("register tool: tool and handler are required")
	}
	if tool.Name == "" {
		return fmt.Errorf("register tool: name is empty")
	}
	if _, exists := r.names[tool.Name]; exists {
		return fmt.Errorf("register tool: duplicate name %q", tool.Name)
	}
	if tool.InputSchema == nil {
		return fmt.Errorf("register tool %q: input schema is required", tool.Name)
	}
	r.names[tool.Name] = struct{}{}
	r.server.AddTool(tool, guard(tool.Name, handler))
	return nil
}

func guard(name string, handler mcp.ToolHandler) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[registry] tool %s panicked: %v", name, rec)
				res = Failure("tool %s failed: %v", name, rec)
				err = nil
			}
		}()
		return handler(ctx, req)
	}
}
