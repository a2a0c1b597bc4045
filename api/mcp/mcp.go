// Package mcp provides an MCP (Model Context Protocol) server exposing the
// assistant tasks as tools.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Josn-deng/lux-xiaokai/pkg/assistant"
	"github.com/Josn-deng/lux-xiaokai/pkg/utils"
)

type Config struct {
	// Service returns the assistant service to run tools against. It is
	// called per tool call so a reloaded service is picked up.
	Service func() *assistant.Service

	// Logger is the configured logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the translate, polish and ask
// tools.
func NewServer(c Config) (*Server, error) {
	if c.Service == nil {
		return nil, errors.New("assistant service is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "xiaokai",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        translateToolName,
		Description: translateDescription,
	}, s.handleTranslate)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        polishToolName,
		Description: polishDescription,
	}, s.handlePolish)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        askToolName,
		Description: askDescription,
	}, s.handleAsk)

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying SDK server, e.g. to run it over another
// transport.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}
