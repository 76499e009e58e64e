package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/HelixDB/codebase-index/internal/index"
	"github.com/HelixDB/codebase-index/internal/indexer"
)

const (
	// ServerName is the MCP server name
	ServerName = "codeindex"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// counter is implemented by index backends that can report their own size
type counter interface {
	Counts(ctx context.Context) (*index.Counts, error)
}

var _ counter = (*index.SQLiteIndex)(nil)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	indexer *indexer.Indexer
	logger  *slog.Logger
}

// NewServer creates a new MCP server exposing ix through its tools
func NewServer(ix *indexer.Indexer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcp:     server.NewMCPServer(ServerName, ServerVersion),
		indexer: ix,
		logger:  logger.With("component", "mcp"),
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until the client disconnects.
// Logs must go to stderr; stdout carries the protocol.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("serving MCP on stdio", slog.String("server", ServerName))
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(ingestCodebaseTool(), s.handleIngestCodebase)
	s.mcp.AddTool(updateCodebaseTool(), s.handleUpdateCodebase)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
