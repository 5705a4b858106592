package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kwatts/codescout/internal/indexer"
	"github.com/kwatts/codescout/internal/query"
	"github.com/kwatts/codescout/internal/scan"
	"github.com/kwatts/codescout/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeRootNotFound       = -32001 // Project root missing or not a directory
	ErrorCodeIndexingInProgress = -32002 // Another indexing pass is already running
	ErrorCodeNotIndexed         = -32003 // Project not indexed
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
	ErrorCodeInvalidQuery       = -32005 // Query expression does not parse
)

// handleIndexCodebase handles the index_codebase tool invocation
func (s *Server) handleIndexCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, path, err := requireRoot(request)
	if err != nil {
		return nil, err
	}

	force := getBoolDefault(args, "force_reindex", false)

	sess, err := s.getSession(path)
	if err != nil {
		return nil, sessionError(err)
	}

	stats, err := sess.index(ctx, force)
	if err != nil {
		return nil, passError(err, "indexing failed")
	}

	response := statsResponse(stats)
	if getBoolDefault(args, "watch", false) {
		if err := sess.startWatch(s.logger); err != nil {
			response["watch_error"] = err.Error()
		} else {
			response["watching"] = true
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleUpdateIndex handles the update_index tool invocation
func (s *Server) handleUpdateIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, path, err := requireRoot(request)
	if err != nil {
		return nil, err
	}

	sess, err := s.indexedSession(path)
	if err != nil {
		return nil, err
	}

	stats, err := sess.index(ctx, false)
	if err != nil {
		return nil, passError(err, "incremental update failed")
	}

	response := statsResponse(stats)
	if len(stats.ChangedFiles) > 0 {
		response["changed_files"] = stats.ChangedFiles
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchCode handles the search_code tool invocation
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, path, err := requireRoot(request)
	if err != nil {
		return nil, err
	}

	q, ok := args["query"].(string)
	if !ok || q == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	opts, err := parseOptions(args)
	if err != nil {
		return nil, err
	}

	sess, err := s.indexedSession(path)
	if err != nil {
		return nil, err
	}

	results, err := sess.engine.Search(q, opts)
	if err != nil {
		return nil, queryError(err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":   q,
		"total":   len(results),
		"results": results,
	})), nil
}

// handleSearchGroup handles the search_group tool invocation
func (s *Server) handleSearchGroup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, path, err := requireRoot(request)
	if err != nil {
		return nil, err
	}

	terms := getStringSlice(args, "terms")
	if len(terms) == 0 {
		return nil, newMCPError(ErrorCodeEmptyQuery, "terms parameter is required and cannot be empty", map[string]interface{}{
			"param":  "terms",
			"reason": "missing or empty",
		})
	}

	opts, err := parseOptions(args)
	if err != nil {
		return nil, err
	}

	sess, err := s.indexedSession(path)
	if err != nil {
		return nil, err
	}

	results, err := sess.engine.SearchUnion(terms, opts)
	if err != nil {
		return nil, queryError(err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"terms":   terms,
		"total":   len(results),
		"results": results,
	})), nil
}

// handleFindReferences handles the find_references tool invocation
func (s *Server) handleFindReferences(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, path, err := requireRoot(request)
	if err != nil {
		return nil, err
	}

	term, ok := args["term"].(string)
	if !ok || term == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "term parameter is required and cannot be empty", map[string]interface{}{
			"param":  "term",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", query.DefaultMaxResults)
	if limit < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be positive", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	sess, err := s.indexedSession(path)
	if err != nil {
		return nil, err
	}

	refs := sess.refs.ReferencesTo(term)
	total := len(refs)
	if len(refs) > limit {
		refs = refs[:limit]
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"term":       term,
		"total":      total,
		"references": refs,
	})), nil
}

// handleAnalyzeImpact handles the analyze_impact tool invocation
func (s *Server) handleAnalyzeImpact(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, path, err := requireRoot(request)
	if err != nil {
		return nil, err
	}

	sess, err := s.indexedSession(path)
	if err != nil {
		return nil, err
	}

	changes, err := sess.changedFiles()
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "cannot determine change set", map[string]interface{}{
			"reason": err.Error(),
		})
	}

	report, err := sess.analyzer.Analyze(changes)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "impact analysis failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to encode report", nil)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, path, err := requireRoot(request)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	sess, ok := s.sessions[path]
	s.mu.Unlock()

	if !ok || !sess.ready.Load() {
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"indexed": false,
			"path":    path,
			"message": "Project not indexed. Use index_codebase tool to index this project.",
		})), nil
	}

	response := map[string]interface{}{
		"indexed": true,
		"path":    path,
		"statistics": map[string]interface{}{
			"files_count":       len(sess.defs.Files()),
			"definitions_count": sess.defs.Len(),
			"references_count":  sess.refs.Len(),
		},
		"snapshot": map[string]interface{}{
			"path": s.snapshotPath(path),
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// requireRoot extracts and validates the path parameter every tool
// shares.
func requireRoot(request mcp.CallToolRequest) (map[string]interface{}, string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	return args, filepath.Clean(path), nil
}

// parseOptions builds query options from the shared optional
// parameters of the search tools.
func parseOptions(args map[string]interface{}) (query.Options, error) {
	opts := query.Options{
		Exact:        getBoolDefault(args, "exact", false),
		FilePatterns: getStringSlice(args, "file_patterns"),
	}

	limit := getIntDefault(args, "limit", query.DefaultMaxResults)
	if limit < 1 {
		return opts, newMCPError(ErrorCodeInvalidParams, "limit must be positive", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	opts.MaxResults = limit

	sortBy := getStringDefault(args, "sort", string(query.SortRelevance))
	switch query.SortKey(sortBy) {
	case query.SortRelevance, query.SortUsage, query.SortName, query.SortFile:
		opts.Sort = query.SortKey(sortBy)
	default:
		return opts, newMCPError(ErrorCodeInvalidParams, "invalid sort", map[string]interface{}{
			"param":   "sort",
			"value":   sortBy,
			"allowed": []query.SortKey{query.SortRelevance, query.SortUsage, query.SortName, query.SortFile},
		})
	}

	for _, raw := range getStringSlice(args, "kinds") {
		kind := types.DefinitionKind(raw)
		valid := false
		for _, k := range types.AllKinds {
			if kind == k {
				valid = true
				break
			}
		}
		if !valid {
			return opts, newMCPError(ErrorCodeInvalidParams, "invalid kind", map[string]interface{}{
				"param":   "kinds",
				"value":   raw,
				"allowed": types.AllKinds,
			})
		}
		opts.Kinds = append(opts.Kinds, kind)
	}

	return opts, nil
}

func statsResponse(stats *indexer.Statistics) map[string]interface{} {
	response := map[string]interface{}{
		"indexed":       true,
		"files_indexed": stats.FilesIndexed,
		"files_removed": stats.FilesRemoved,
		"files_failed":  stats.FilesFailed,
		"definitions":   stats.Definitions,
		"references":    stats.References,
		"fallbacks":     stats.Fallbacks,
		"duration_ms":   stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		errorCount := len(stats.ErrorMessages)
		if errorCount > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}
	return response
}

// sessionError maps walker construction failures to MCP errors.
func sessionError(err error) error {
	if errors.Is(err, scan.ErrRootNotFound) {
		return newMCPError(ErrorCodeRootNotFound, "project root not found", map[string]interface{}{
			"reason": err.Error(),
		})
	}
	return newMCPError(ErrorCodeInternalError, "failed to open project", map[string]interface{}{
		"error": err.Error(),
	})
}

// passError maps index pass failures to MCP errors.
func passError(err error, message string) error {
	switch {
	case errors.Is(err, indexer.ErrPassInProgress):
		return newMCPError(ErrorCodeIndexingInProgress, "an indexing pass is already running", nil)
	case errors.Is(err, scan.ErrRootNotFound):
		return newMCPError(ErrorCodeRootNotFound, "project root not found", map[string]interface{}{
			"reason": err.Error(),
		})
	default:
		return newMCPError(ErrorCodeInternalError, message, map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// queryError maps query evaluation failures to MCP errors.
func queryError(err error) error {
	if errors.Is(err, query.ErrInvalidQuery) {
		return newMCPError(ErrorCodeInvalidQuery, "query expression does not parse", map[string]interface{}{
			"reason": err.Error(),
		})
	}
	return newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
		"error": err.Error(),
	})
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

// validatePath checks if a path exists and is accessible
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
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

// getStringSlice extracts a string array parameter; anything that is
// not a string array yields nil.
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
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
)
