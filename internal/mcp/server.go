package mcp

import (
	"context"
	"fmt"

	mcpTypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/pokedexai/pokedex-agents/internal/tools"
)

// ServerWrapper exposes an agent's tool registry over the MCP streamable
// HTTP transport so MCP clients can call the same tools the reasoning loop
// uses.
type ServerWrapper struct {
	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
	logger     *logrus.Logger
}

func NewServerWrapper(name, version string, logger *logrus.Logger) *ServerWrapper {
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(true),
	)
	return &ServerWrapper{
		mcpServer: s,
		logger:    logger,
	}
}

// RegisterAll mirrors every tool in the registry onto the MCP server.
// Handlers delegate back to Registry.Invoke so validation, logging and
// monitor events stay in one place.
func (w *ServerWrapper) RegisterAll(registry *tools.Registry) {
	for _, def := range registry.List() {
		opts := []mcpTypes.ToolOption{
			mcpTypes.WithDescription(def.Description),
		}
		for _, p := range def.Params {
			paramOpts := []mcpTypes.PropertyOption{
				mcpTypes.Description(p.Description),
			}
			if p.Required {
				paramOpts = append(paramOpts, mcpTypes.Required())
			}
			switch p.Type {
			case "number", "integer":
				opts = append(opts, mcpTypes.WithNumber(p.Name, paramOpts...))
			case "boolean":
				opts = append(opts, mcpTypes.WithBoolean(p.Name, paramOpts...))
			case "array":
				paramOpts = append(paramOpts, mcpTypes.Items(map[string]any{"type": "string"}))
				opts = append(opts, mcpTypes.WithArray(p.Name, paramOpts...))
			default:
				opts = append(opts, mcpTypes.WithString(p.Name, paramOpts...))
			}
		}

		toolSpec := mcpTypes.NewTool(def.Name, opts...)
		w.mcpServer.AddTool(toolSpec, w.makeHandler(registry, def.Name))
		w.logger.Infof("Registered MCP tool: %s", def.Name)
	}
}

func (w *ServerWrapper) makeHandler(registry *tools.Registry, toolName string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcpTypes.CallToolRequest) (*mcpTypes.CallToolResult, error) {
		result, err := registry.Invoke(ctx, "", toolName, req.GetArguments())
		if err != nil {
			return mcpTypes.NewToolResultError(err.Error()), nil
		}
		return mcpTypes.NewToolResultText(result), nil
	}
}

// Start serves MCP over streamable HTTP on addr. Blocks until Shutdown.
func (w *ServerWrapper) Start(addr string) error {
	w.httpServer = server.NewStreamableHTTPServer(w.mcpServer)
	w.logger.Infof("MCP server listening on %s", addr)
	if err := w.httpServer.Start(addr); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

func (w *ServerWrapper) Shutdown(ctx context.Context) error {
	if w.httpServer == nil {
		return nil
	}
	return w.httpServer.Shutdown(ctx)
}
