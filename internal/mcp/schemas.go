package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// pathProperty is the shared project-root parameter.
func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the project root",
	}
}

// searchProperties are the optional parameters shared by the search tools.
func searchProperties() map[string]interface{} {
	return map[string]interface{}{
		"exact": map[string]interface{}{
			"type":        "boolean",
			"description": "If true, only exact term matches are returned (no partial-token matching)",
			"default":     false,
		},
		"kinds": map[string]interface{}{
			"type":        "array",
			"description": "Filter by definition kind",
			"items": map[string]interface{}{
				"type": "string",
				"enum": []string{"function", "class", "variable", "constant", "string", "comment", "import", "interface", "module"},
			},
		},
		"file_patterns": map[string]interface{}{
			"type":        "array",
			"description": "Glob patterns for file paths (e.g., 'internal/**', '*.py')",
			"items": map[string]interface{}{
				"type": "string",
			},
		},
		"sort": map[string]interface{}{
			"type":        "string",
			"description": "Result ordering: relevance (score), usage (reference count), name, or file",
			"enum":        []string{"relevance", "usage", "name", "file"},
			"default":     "relevance",
		},
		"limit": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum number of results to return",
			"default":     100,
			"minimum":     1,
		},
	}
}

// indexCodebaseTool returns the tool definition for index_codebase
func indexCodebaseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_codebase",
		Description: "Index a codebase to make it searchable across languages",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
				"force_reindex": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, discard the existing index and rebuild from scratch",
					"default":     false,
				},
				"watch": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, watch the root and apply incremental updates automatically",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// updateIndexTool returns the tool definition for update_index
func updateIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_index",
		Description: "Incrementally update the index, re-extracting only files whose content changed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
			},
			Required: []string{"path"},
		},
	}
}

// searchCodeTool returns the tool definition for search_code
func searchCodeTool() mcp.Tool {
	props := map[string]interface{}{
		"path": pathProperty(),
		"query": map[string]interface{}{
			"type":        "string",
			"description": "Search expression: plain term, /regex/, OR with |, AND with &, NOT with !",
		},
	}
	for k, v := range searchProperties() {
		props[k] = v
	}
	return mcp.Tool{
		Name:        "search_code",
		Description: "Search indexed definitions with a boolean query expression",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: props,
			Required:   []string{"path", "query"},
		},
	}
}

// searchGroupTool returns the tool definition for search_group
func searchGroupTool() mcp.Tool {
	props := map[string]interface{}{
		"path": pathProperty(),
		"terms": map[string]interface{}{
			"type":        "array",
			"description": "Related terms searched together; results are the ranked union",
			"items": map[string]interface{}{
				"type": "string",
			},
		},
	}
	for k, v := range searchProperties() {
		props[k] = v
	}
	return mcp.Tool{
		Name:        "search_group",
		Description: "Search several related terms at once and merge the results (e.g. auth, login, session)",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: props,
			Required:   []string{"path", "terms"},
		},
	}
}

// findReferencesTool returns the tool definition for find_references
func findReferencesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "find_references",
		Description: "List every recorded usage site of a symbol (calls, instantiations, imports, type references)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
				"term": map[string]interface{}{
					"type":        "string",
					"description": "Symbol name to look up (case-insensitive)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of references to return",
					"default":     100,
					"minimum":     1,
				},
			},
			Required: []string{"path", "term"},
		},
	}
}

// analyzeImpactTool returns the tool definition for analyze_impact
func analyzeImpactTool() mcp.Tool {
	return mcp.Tool{
		Name:        "analyze_impact",
		Description: "Analyze uncommitted git changes: which symbols changed, who references them, and how risky the change set is",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query indexing status and statistics for a project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
			},
			Required: []string{"path"},
		},
	}
}
