package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/rashee1997/memgraph-mcp/internal/ai"
	"github.com/rashee1997/memgraph-mcp/internal/graph"
	"github.com/rashee1997/memgraph-mcp/internal/ingest"
	"github.com/rashee1997/memgraph-mcp/internal/parser"
	"github.com/rashee1997/memgraph-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "memgraph-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the database
	DefaultDBPath = "~/.memgraph/memgraph.db"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	store    storage.Store
	manager  *graph.Manager
	ingestor *ingest.Ingestor
	ai       ai.Service
}

// NewServer creates a new MCP server instance
func NewServer(dbPath string) (*Server, error) {
	// Expand home directory if needed
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".memgraph", "memgraph.db")
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Initialize storage
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Create AI service; nil when GEMINI_API_KEY is unset, in which case
	// AI-backed tools run their deterministic fallbacks
	svc, err := ai.NewFromEnv(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AI service: %w", err)
	}

	// Create graph manager
	opts := []graph.Option{graph.WithLogger(log.Default())}
	if svc != nil {
		opts = append(opts, graph.WithAI(svc))
	}
	mgr := graph.NewManager(store, opts...)

	// Create the parse pipeline shared by both ingestion tools
	cache, err := parser.NewRistrettoCache()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize parse cache: %w", err)
	}
	parsers := parser.NewCachedParser(parser.NewRegistry(), cache, parser.DefaultOptions())

	// Create ingestor
	ing := ingest.NewIngestor(mgr, parsers, log.Default())

	// Create MCP server
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		store:    store,
		manager:  mgr,
		ingestor: ing,
		ai:       svc,
	}

	// Register tools
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	// Graph mutation tools
	s.mcp.AddTool(createEntitiesTool(), s.handleCreateEntities)
	s.mcp.AddTool(createRelationsTool(), s.handleCreateRelations)
	s.mcp.AddTool(addObservationsTool(), s.handleAddObservations)
	s.mcp.AddTool(deleteObservationsTool(), s.handleDeleteObservations)
	s.mcp.AddTool(deleteEntitiesTool(), s.handleDeleteEntities)
	s.mcp.AddTool(deleteRelationsTool(), s.handleDeleteRelations)

	// Graph read tools
	s.mcp.AddTool(readGraphTool(), s.handleReadGraph)
	s.mcp.AddTool(searchNodesTool(), s.handleSearchNodes)
	s.mcp.AddTool(traverseGraphTool(), s.handleTraverseGraph)

	// AI-assisted tools
	s.mcp.AddTool(queryNaturalLanguageTool(), s.handleQueryNaturalLanguage)
	s.mcp.AddTool(inferRelationsTool(), s.handleInferRelations)
	s.mcp.AddTool(generateMermaidGraphTool(), s.handleGenerateMermaidGraph)

	// Ingestion tools
	s.mcp.AddTool(ingestCodebaseStructureTool(), s.handleIngestCodebaseStructure)
	s.mcp.AddTool(ingestFileEntitiesTool(), s.handleIngestFileEntities)

	return nil
}
