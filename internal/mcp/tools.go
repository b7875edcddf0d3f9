package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rashee1997/memgraph-mcp/internal/ai"
	"github.com/rashee1997/memgraph-mcp/internal/graph"
	"github.com/rashee1997/memgraph-mcp/internal/ingest"
	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeAgentRequired = -32001 // Missing or empty agent_id
	ErrorCodeAIUnavailable = -32002 // No AI service configured
	ErrorCodePathInvalid   = -32003 // Ingestion path missing or unreadable
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

// handleCreateEntities handles the create_entities tool invocation
func (s *Server) handleCreateEntities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, agentID, err := requestArgs(request)
	if err != nil {
		return nil, err
	}

	var entities []graph.EntityInput
	if err := decodeArg(args, "entities", &entities); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid entities parameter", map[string]interface{}{
			"param":  "entities",
			"reason": err.Error(),
		})
	}
	if len(entities) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "entities must be a non-empty array", map[string]interface{}{
			"param": "entities",
		})
	}

	results, err := s.manager.CreateEntities(ctx, agentID, entities)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "create entities failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results": results,
	})), nil
}

// handleCreateRelations handles the create_relations tool invocation
func (s *Server) handleCreateRelations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, agentID, err := requestArgs(request)
	if err != nil {
		return nil, err
	}

	relations, err := relationArgs(args, "relations")
	if err != nil {
		return nil, err
	}

	results, err := s.manager.CreateRelations(ctx, agentID, relations)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "create relations failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results": results,
	})), nil
}

// handleAddObservations handles the add_observations tool invocation
func (s *Server) handleAddObservations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleObservationMutation(ctx, request, s.manager.AddObservations)
}

// handleDeleteObservations handles the delete_observations tool invocation
func (s *Server) handleDeleteObservations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleObservationMutation(ctx, request, s.manager.DeleteObservations)
}

func (s *Server) handleObservationMutation(ctx context.Context, request mcp.CallToolRequest, mutate func(context.Context, string, []graph.ObservationInput) ([]types.OperationResult, error)) (*mcp.CallToolResult, error) {
	args, agentID, err := requestArgs(request)
	if err != nil {
		return nil, err
	}

	var inputs []graph.ObservationInput
	if err := decodeArg(args, "observations", &inputs); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid observations parameter", map[string]interface{}{
			"param":  "observations",
			"reason": err.Error(),
		})
	}
	if len(inputs) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "observations must be a non-empty array", map[string]interface{}{
			"param": "observations",
		})
	}

	results, err := mutate(ctx, agentID, inputs)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "observation update failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results": results,
	})), nil
}

// handleDeleteEntities handles the delete_entities tool invocation
func (s *Server) handleDeleteEntities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, agentID, err := requestArgs(request)
	if err != nil {
		return nil, err
	}

	names := getStringSlice(args, "names")
	if len(names) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "names must be a non-empty array of strings", map[string]interface{}{
			"param": "names",
		})
	}

	results, err := s.manager.DeleteEntities(ctx, agentID, names)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "delete entities failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results": results,
	})), nil
}

// handleDeleteRelations handles the delete_relations tool invocation
func (s *Server) handleDeleteRelations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, agentID, err := requestArgs(request)
	if err != nil {
		return nil, err
	}

	relations, err := relationArgs(args, "relations")
	if err != nil {
		return nil, err
	}

	results, err := s.manager.DeleteRelations(ctx, agentID, relations)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "delete relations failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results": results,
	})), nil
}

// handleReadGraph handles the read_graph tool invocation
func (s *Server) handleReadGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, agentID, err := requestArgs(request)
	if err != nil {
		return nil, err
	}

	view, err := s.manager.ReadGraph(ctx, agentID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "read graph failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"nodes":     view.Nodes,
		"relations": view.Relations,
	})), nil
}

// handleSearchNodes handles the search_nodes tool invocation
func (s *Server) handleSearchNodes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, agentID, err := requestArgs(request)
	if err != nil {
		return nil, err
	}

	// An empty query deliberately returns the whole graph
	query := getStringDefault(args, "query", "")

	nodes, err := s.manager.SearchNodes(ctx, agentID, query)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"nodes": nodes,
		"count": len(nodes),
	})), nil
}

// handleTraverseGraph handles the traverse_graph tool invocation
func (s *Server) handleTraverseGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, agentID, err := requestArgs(request)
	if err != nil {
		return nil, err
	}

	startName, ok := args["start_name"].(string)
	if !ok || startName == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "start_name parameter is required", map[string]interface{}{
			"param":  "start_name",
			"reason": "missing or empty",
		})
	}

	relationTypes := getStringSlice(args, "relation_types")
	maxDepth := getIntDefault(args, "max_depth", 2)
	if maxDepth < 0 || maxDepth > 10 {
		return nil, newMCPError(ErrorCodeInvalidParams, "max_depth must be between 0 and 10", map[string]interface{}{
			"param": "max_depth",
			"value": maxDepth,
		})
	}

	result, err := s.manager.TraverseGraph(ctx, agentID, startName, relationTypes, maxDepth)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "traversal failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"nodes":     result.Nodes,
		"relations": result.Relations,
	})), nil
}

// handleQueryNaturalLanguage handles the query_natural_language tool invocation
func (s *Server) handleQueryNaturalLanguage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, agentID, err := requestArgs(request)
	if err != nil {
		return nil, err
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	result, err := s.manager.QueryNaturalLanguage(ctx, agentID, query)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "query failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results":  result.Results,
		"metadata": result.Metadata,
	})), nil
}

// handleInferRelations handles the infer_relations tool invocation
func (s *Server) handleInferRelations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, agentID, err := requestArgs(request)
	if err != nil {
		return nil, err
	}

	names := getStringSlice(args, "entity_names")
	hint := getStringDefault(args, "context", "")

	inferred, err := s.manager.InferRelations(ctx, agentID, names, hint)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return nil, newMCPError(ErrorCodeAIUnavailable, "no AI service configured", map[string]interface{}{
				"reason": "set GEMINI_API_KEY to enable relation inference",
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "relation inference failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	created := 0
	for _, rel := range inferred {
		if rel.Status == "created" {
			created++
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"relations": inferred,
		"created":   created,
		"proposed":  len(inferred) - created,
	})), nil
}

// handleGenerateMermaidGraph handles the generate_mermaid_graph tool invocation
func (s *Server) handleGenerateMermaidGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, agentID, err := requestArgs(request)
	if err != nil {
		return nil, err
	}

	direction := getStringDefault(args, "direction", "TD")
	if direction != "TD" && direction != "LR" && direction != "BT" && direction != "RL" {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid direction", map[string]interface{}{
			"param":   "direction",
			"value":   direction,
			"allowed": []string{"TD", "LR", "BT", "RL"},
		})
	}

	opts := graph.MermaidOptions{
		Query:                getStringDefault(args, "query", ""),
		NaturalLanguage:      getBoolDefault(args, "natural_language", false),
		Direction:            direction,
		MaxNodes:             getIntDefault(args, "max_nodes", 0),
		MaxEdges:             getIntDefault(args, "max_edges", 0),
		ExcludeRelationTypes: getStringSlice(args, "exclude_relation_types"),
		ExcludeImports:       getBoolDefault(args, "exclude_imports", false),
		IncludeLegend:        getBoolDefault(args, "include_legend", false),
	}

	diagram, err := s.manager.GenerateMermaidGraph(ctx, agentID, opts)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "diagram generation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// The diagram is Mermaid source, not JSON
	return mcp.NewToolResultText(diagram), nil
}

// handleIngestCodebaseStructure handles the ingest_codebase_structure tool invocation
func (s *Server) handleIngestCodebaseStructure(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, agentID, err := requestArgs(request)
	if err != nil {
		return nil, err
	}

	rootPath, ok := args["root_path"].(string)
	if !ok || rootPath == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "root_path parameter is required", map[string]interface{}{
			"param":  "root_path",
			"reason": "missing or empty",
		})
	}
	if err := validateDir(rootPath); err != nil {
		return nil, newMCPError(ErrorCodePathInvalid, "invalid root_path", map[string]interface{}{
			"param":  "root_path",
			"reason": err.Error(),
		})
	}

	parseImports := getBoolDefault(args, "parse_imports", true)

	report, err := s.ingestor.IngestCodebaseStructure(ctx, agentID, rootPath, ingest.StructureOptions{
		ParseImports: parseImports,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "ingestion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(ingestReport(report))), nil
}

// handleIngestFileEntities handles the ingest_file_entities tool invocation
func (s *Server) handleIngestFileEntities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, agentID, err := requestArgs(request)
	if err != nil {
		return nil, err
	}

	filePath, ok := args["file_path"].(string)
	if !ok || filePath == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "file_path parameter is required", map[string]interface{}{
			"param":  "file_path",
			"reason": "missing or empty",
		})
	}
	if err := validateFile(filePath); err != nil {
		return nil, newMCPError(ErrorCodePathInvalid, "invalid file_path", map[string]interface{}{
			"param":  "file_path",
			"reason": err.Error(),
		})
	}

	rootPath, ok := args["root_path"].(string)
	if !ok || rootPath == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "root_path parameter is required", map[string]interface{}{
			"param":  "root_path",
			"reason": "missing or empty",
		})
	}
	if err := validateDir(rootPath); err != nil {
		return nil, newMCPError(ErrorCodePathInvalid, "invalid root_path", map[string]interface{}{
			"param":  "root_path",
			"reason": err.Error(),
		})
	}

	report, err := s.ingestor.IngestFileEntities(ctx, agentID, filePath, rootPath)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "file ingestion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(ingestReport(report))), nil
}

// Helper functions

// requestArgs extracts the argument map and the mandatory agent_id
func requestArgs(request mcp.CallToolRequest) (map[string]interface{}, string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	agentID, ok := args["agent_id"].(string)
	if !ok || agentID == "" {
		return nil, "", newMCPError(ErrorCodeAgentRequired, "agent_id parameter is required", map[string]interface{}{
			"param":  "agent_id",
			"reason": "missing or empty",
		})
	}

	return args, agentID, nil
}

// relationArgs decodes a non-empty relations array parameter
func relationArgs(args map[string]interface{}, key string) ([]graph.RelationInput, error) {
	var relations []graph.RelationInput
	if err := decodeArg(args, key, &relations); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid relations parameter", map[string]interface{}{
			"param":  key,
			"reason": err.Error(),
		})
	}
	if len(relations) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "relations must be a non-empty array", map[string]interface{}{
			"param": key,
		})
	}
	return relations, nil
}

// decodeArg re-marshals one argument into a typed destination
func decodeArg(args map[string]interface{}, key string, dst interface{}) error {
	raw, ok := args[key]
	if !ok {
		return fmt.Errorf("%s parameter is required", key)
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%s parameter is not encodable: %w", key, err)
	}
	if err := json.Unmarshal(buf, dst); err != nil {
		return fmt.Errorf("%s parameter has the wrong shape: %w", key, err)
	}
	return nil
}

// ingestReport formats an ingestion report for tool output
func ingestReport(report *ingest.Report) map[string]interface{} {
	response := map[string]interface{}{
		"nodes_created":     report.NodesCreated,
		"relations_created": report.RelationsCreated,
		"files_parsed":      report.FilesParsed,
	}
	if len(report.FilesSkipped) > 0 {
		response["files_skipped"] = report.FilesSkipped
	}
	return response
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validateDir checks that a path exists and is a readable directory
func validateDir(path string) error {
	info, err := statPath(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// validateFile checks that a path exists and is a regular file
func validateFile(path string) error {
	info, err := statPath(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return ErrNotFile
	}
	return nil
}

func statPath(path string) (os.FileInfo, error) {
	if path == "" {
		return nil, ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return nil, ErrPathNotAbsolute
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, ErrPathNotFound
	}
	if err != nil {
		return nil, ErrPathNotReadable
	}
	return info, nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter, dropping non-strings
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
	ErrNotFile         = errors.New("path is not a regular file")
)
