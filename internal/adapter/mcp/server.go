// Package mcp exposes a read-only slice of the pipeline over the Model
// Context Protocol so review agents and editor integrations can inspect
// batches without going through the dashboard API.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/playforge/levelboard/internal/domain/batch"
	"github.com/playforge/levelboard/internal/domain/level"
	"github.com/playforge/levelboard/internal/domain/triage"
	"github.com/playforge/levelboard/internal/domain/workscope"
)

// BatchReader lists and fetches level batches.
type BatchReader interface {
	List(ctx context.Context) ([]batch.Batch, error)
	Get(ctx context.Context, id string) (*batch.Batch, error)
}

// LevelReader lists the levels of a batch, optionally filtered by status.
type LevelReader interface {
	List(ctx context.Context, batchID string, status level.Status) ([]level.Level, error)
}

// WorkscopeReader reports scoped batch statistics and the preset table.
type WorkscopeReader interface {
	ActiveStats(ctx context.Context, batchID string) (workscope.Stats, error)
	Presets() []workscope.Preset
}

// TriagePreviewer classifies a batch's pending pool without writing.
type TriagePreviewer interface {
	Preview(ctx context.Context, batchID string, req *triage.Criteria) (*triage.Buckets, error)
}

// ServerDeps carries the read-only service surface exposed over MCP.
// A nil field disables the tools that depend on it.
type ServerDeps struct {
	BatchReader     BatchReader
	LevelReader     LevelReader
	WorkscopeReader WorkscopeReader
	TriagePreviewer TriagePreviewer
}

// ServerConfig holds the MCP server settings. An empty APIKey leaves the
// endpoint unauthenticated.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
	APIKey  string
}

// Server hosts the MCP tools and resources over SSE.
type Server struct {
	cfg        ServerConfig
	deps       ServerDeps
	mcpServer  *mcpserver.MCPServer
	httpServer *http.Server
}

// NewServer builds the MCP server and registers all tools and resources.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying protocol server for transports and tests.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Start binds cfg.Addr and serves the MCP endpoint over SSE in the
// background until Stop is called. A bind failure is returned synchronously.
func (s *Server) Start() error {
	sse := mcpserver.NewSSEServer(s.mcpServer)
	s.httpServer = &http.Server{
		Handler:           AuthMiddleware(s.cfg.APIKey, sse),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mcp server error", "error", err)
		}
	}()
	slog.Info("mcp server listening", "addr", ln.Addr().String())
	return nil
}

// Stop gracefully shuts down the MCP endpoint.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// toolResultJSON wraps an already-marshaled JSON payload as a tool result.
func toolResultJSON(data string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(data)
}
