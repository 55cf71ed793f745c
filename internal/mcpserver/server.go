// Package mcpserver publishes the task tools over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/colonyops/taskman/internal/tools"
)

// ServerName is reported to clients during initialization.
const ServerName = "taskman"

// Invoker is the dispatcher surface the server needs.
type Invoker interface {
	Tools() []tools.Info
	Invoke(ctx context.Context, name string, args map[string]any) tools.Result
}

// Server adapts an Invoker to an MCP server.
type Server struct {
	mcp *server.MCPServer
	log zerolog.Logger
}

// New registers every tool published by inv on a new MCP server.
func New(inv Invoker, version string, logger zerolog.Logger) *Server {
	s := &Server{
		mcp: server.NewMCPServer(ServerName, version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		log: logger,
	}

	for _, info := range inv.Tools() {
		s.mcp.AddTool(
			mcp.NewToolWithRawSchema(info.Name, info.Description, info.InputSchema),
			handler(inv, info.Name),
		)
	}

	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Serve speaks MCP over the given streams until ctx is cancelled or the
// input is exhausted.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(s.log, "", 0))

	s.log.Info().Msg("serving tools over stdio")
	return stdio.Listen(ctx, in, out)
}

// handler returns the tool result as JSON text. Failed results are flagged
// with isError so clients see the error kind and detail.
func handler(inv Invoker, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := inv.Invoke(ctx, name, req.GetArguments())

		payload, err := json.Marshal(res)
		if err != nil {
			return nil, err
		}

		var out *mcp.CallToolResult
		if res.OK {
			out = mcp.NewToolResultText(string(payload))
		} else {
			out = mcp.NewToolResultError(string(payload))
		}
		out.StructuredContent = res
		return out, nil
	}
}
