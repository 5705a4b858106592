package mcp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/kwatts/codescout/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "codescout"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultSnapshotDir is the default location for index snapshots
	DefaultSnapshotDir = "~/.codescout/indices"
)

// Server wraps the MCP server with application dependencies. Each
// indexed project root gets its own session holding that project's
// indices, query engine and analyzer.
type Server struct {
	mcp         *server.MCPServer
	snapshotDir string
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// NewServer creates a new MCP server instance. snapshotDir is where
// index snapshots are written; empty means DefaultSnapshotDir.
func NewServer(snapshotDir string, logger *slog.Logger) (*Server, error) {
	if snapshotDir == "" || snapshotDir == DefaultSnapshotDir {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		snapshotDir = filepath.Join(home, ".codescout", "indices")
	}

	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:         mcpServer,
		snapshotDir: snapshotDir,
		logger:      logger,
		sessions:    make(map[string]*session),
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until ctx is
// cancelled or stdin closes. Snapshots are flushed on the way out;
// ctx is already done by then, so the saves run on a fresh context.
func (s *Server) Serve(ctx context.Context) error {
	defer s.saveAll(context.Background())
	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// saveAll persists every indexed session's snapshot on shutdown.
func (s *Server) saveAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for root, sess := range s.sessions {
		if !sess.ready.Load() {
			continue
		}
		if err := sess.indexer.Save(ctx); err != nil {
			s.logger.Warn("snapshot save failed", "root", root, "error", err)
		}
	}
}

// snapshotPath derives where a project's snapshot lives. One file per
// root; the name is a digest so saves for different roots never
// collide.
func (s *Server) snapshotPath(root string) string {
	sum := sha256.Sum256([]byte(root))
	name := hex.EncodeToString(sum[:8]) + storage.SnapshotExt
	return filepath.Join(s.snapshotDir, name)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexCodebaseTool(), s.handleIndexCodebase)
	s.mcp.AddTool(updateIndexTool(), s.handleUpdateIndex)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(searchGroupTool(), s.handleSearchGroup)
	s.mcp.AddTool(findReferencesTool(), s.handleFindReferences)
	s.mcp.AddTool(analyzeImpactTool(), s.handleAnalyzeImpact)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
