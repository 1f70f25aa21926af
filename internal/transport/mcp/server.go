package mcp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// DefaultName is the implementation name announced to clients.
const DefaultName = "censusdex"

// Server is the MCP server for the Census tools.
type Server struct {
	ports  *Ports
	server *mcp.Server
	logger *zap.Logger
}

// NewServer creates an MCP server with every tool, prompt and resource registered.
func NewServer(ports *Ports, name, version string, logger *zap.Logger) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	if name == "" {
		name = DefaultName
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		logger: logger,
	}

	s.registerTools()
	s.registerPrompts()
	s.registerResources()

	return s, nil
}

// Run serves MCP over stdio until the context is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}

// Handler returns the streamable HTTP transport, for mounting on the REST router.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// Connect attaches the server to an arbitrary transport.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	session, err := s.server.Connect(ctx, t, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp connect: %w", err)
	}
	return session, nil
}
