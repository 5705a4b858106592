// Package mcp implements the Model Context Protocol (MCP) server for CodeScout.
//
// The MCP server exposes seven tools to AI coding assistants:
//   - index_codebase: Build (or force-rebuild) the index for a project root
//   - update_index: Incremental pass re-extracting only changed files
//   - search_code: Boolean query over indexed definitions
//   - search_group: Ranked union search over several related terms
//   - find_references: Usage sites of one symbol
//   - analyze_impact: Risk report for uncommitted git changes
//   - get_status: Indexing status and statistics
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server communicates with MCP clients via standard input/output,
// making it simple to integrate with any MCP-compatible client.
//
// # Sessions
//
// Every tool takes an absolute "path" naming a project root. The first
// tool call for a root creates a session: that root's walker, extractor
// registry, indices, query engine and impact analyzer. Sessions live
// for the process; snapshots persist them across restarts, keyed by a
// digest of the root path so different projects never collide.
//
// # Tool: search_code
//
// Query syntax, loosest to tightest binding: a plain term is fuzzy
// (exact plus partial-token matches), "a|b" is OR, "a&b" is AND, "!a"
// negates, and "/pattern/" is a regular expression over terms and
// their source lines.
//
//	Request:
//	{
//	  "name": "search_code",
//	  "arguments": {
//	    "path": "/path/to/project",
//	    "query": "auth&!test",
//	    "kinds": ["function", "class"],
//	    "file_patterns": ["internal/**"],
//	    "sort": "usage",
//	    "limit": 25
//	  }
//	}
//
// Results carry the definition, a 1-based rank, a score (1.0 for exact
// matches), the usage count from the cross-reference index and up to
// three sample usage sites.
//
// # Error Handling
//
// The MCP server returns standard JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "Invalid params",
//	    "data": {
//	      "param": "path",
//	      "reason": "path does not exist"
//	    }
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (filesystem, snapshot, etc.)
//   - -32001: Project root missing or not a directory
//   - -32002: Indexing pass already in progress
//   - -32003: Project not indexed
//   - -32004: Empty query/terms parameter
//   - -32005: Query expression does not parse
//
// # Logging
//
// The server logs to stderr; stdout is reserved for MCP protocol.
package mcp
