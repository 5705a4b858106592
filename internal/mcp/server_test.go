package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(filepath.Join(t.TempDir(), "snapshots"),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	write := func(rel, content string) {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	write("auth/login.go", `package auth

func LoginUser(name string) error {
	return checkPassword(name)
}
`)
	write("auth/handler.go", `package auth

func handleRequest(name string) {
	LoginUser(name)
}
`)
	write("store/session.py", `class SessionStore:
    def save(self, session):
        return persist(session)
`)
	return root
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) {
	t.Helper()
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, code, mcpErr.Code)
}

func indexProject(t *testing.T, s *Server, root string) map[string]interface{} {
	t.Helper()
	result, err := s.handleIndexCodebase(context.Background(),
		callRequest("index_codebase", map[string]interface{}{"path": root}))
	require.NoError(t, err)
	return resultJSON(t, result)
}

func TestIndexCodebase(t *testing.T) {
	s := newTestServer(t)
	root := writeProject(t)

	response := indexProject(t, s, root)
	assert.Equal(t, true, response["indexed"])
	assert.Equal(t, float64(3), response["files_indexed"])
	assert.Greater(t, response["definitions"], float64(0))
}

func TestIndexCodebasePathValidation(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleIndexCodebase(ctx, callRequest("index_codebase", map[string]interface{}{}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleIndexCodebase(ctx, callRequest("index_codebase", map[string]interface{}{
		"path": "relative/path",
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleIndexCodebase(ctx, callRequest("index_codebase", map[string]interface{}{
		"path": filepath.Join(t.TempDir(), "does-not-exist"),
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestWatchPassPersistsSnapshot(t *testing.T) {
	s := newTestServer(t)
	root := writeProject(t)
	indexProject(t, s, root)

	s.mu.Lock()
	var sess *session
	for _, v := range s.sessions {
		sess = v
	}
	s.mu.Unlock()
	require.NotNil(t, sess)

	snapshot := s.snapshotPath(sess.root)
	require.NoError(t, os.Remove(snapshot))

	require.NoError(t, os.WriteFile(filepath.Join(root, "auth", "logout.go"),
		[]byte("package auth\n\nfunc LogoutUser(name string) {}\n"), 0o644))

	stats, err := watchUpdater{sess.indexer}.DiffAndUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)

	// A watcher-driven pass must leave a snapshot behind; nothing else
	// saves between filesystem events.
	_, err = os.Stat(snapshot)
	assert.NoError(t, err)
}

func TestGetStatus(t *testing.T) {
	s := newTestServer(t)
	root := writeProject(t)
	ctx := context.Background()

	result, err := s.handleGetStatus(ctx, callRequest("get_status", map[string]interface{}{"path": root}))
	require.NoError(t, err)
	assert.Equal(t, false, resultJSON(t, result)["indexed"])

	indexProject(t, s, root)

	result, err = s.handleGetStatus(ctx, callRequest("get_status", map[string]interface{}{"path": root}))
	require.NoError(t, err)
	response := resultJSON(t, result)
	assert.Equal(t, true, response["indexed"])

	stats, ok := response["statistics"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(3), stats["files_count"])
	assert.Greater(t, stats["definitions_count"], float64(0))
}

func TestSearchCode(t *testing.T) {
	s := newTestServer(t)
	root := writeProject(t)
	indexProject(t, s, root)

	result, err := s.handleSearchCode(context.Background(),
		callRequest("search_code", map[string]interface{}{
			"path":  root,
			"query": "login",
		}))
	require.NoError(t, err)

	response := resultJSON(t, result)
	assert.Equal(t, "login", response["query"])
	assert.Greater(t, response["total"], float64(0))
}

func TestSearchCodeRequiresIndex(t *testing.T) {
	s := newTestServer(t)
	root := writeProject(t)

	_, err := s.handleSearchCode(context.Background(),
		callRequest("search_code", map[string]interface{}{
			"path":  root,
			"query": "login",
		}))
	requireMCPError(t, err, ErrorCodeNotIndexed)
}

func TestSearchCodeEmptyQuery(t *testing.T) {
	s := newTestServer(t)
	root := writeProject(t)
	indexProject(t, s, root)

	_, err := s.handleSearchCode(context.Background(),
		callRequest("search_code", map[string]interface{}{"path": root}))
	requireMCPError(t, err, ErrorCodeEmptyQuery)
}

func TestSearchCodeInvalidRegex(t *testing.T) {
	s := newTestServer(t)
	root := writeProject(t)
	indexProject(t, s, root)

	_, err := s.handleSearchCode(context.Background(),
		callRequest("search_code", map[string]interface{}{
			"path":  root,
			"query": "/[unclosed/",
		}))
	requireMCPError(t, err, ErrorCodeInvalidQuery)
}

func TestSearchCodeInvalidOptions(t *testing.T) {
	s := newTestServer(t)
	root := writeProject(t)
	indexProject(t, s, root)
	ctx := context.Background()

	_, err := s.handleSearchCode(ctx, callRequest("search_code", map[string]interface{}{
		"path":  root,
		"query": "login",
		"sort":  "alphabetical",
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleSearchCode(ctx, callRequest("search_code", map[string]interface{}{
		"path":  root,
		"query": "login",
		"kinds": []interface{}{"gadget"},
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleSearchCode(ctx, callRequest("search_code", map[string]interface{}{
		"path":  root,
		"query": "login",
		"limit": float64(0),
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestSearchGroup(t *testing.T) {
	s := newTestServer(t)
	root := writeProject(t)
	indexProject(t, s, root)

	result, err := s.handleSearchGroup(context.Background(),
		callRequest("search_group", map[string]interface{}{
			"path":  root,
			"terms": []interface{}{"login", "session"},
		}))
	require.NoError(t, err)

	response := resultJSON(t, result)
	assert.Greater(t, response["total"], float64(1), "union of two matching terms")
}

func TestSearchGroupRequiresTerms(t *testing.T) {
	s := newTestServer(t)
	root := writeProject(t)
	indexProject(t, s, root)

	_, err := s.handleSearchGroup(context.Background(),
		callRequest("search_group", map[string]interface{}{"path": root}))
	requireMCPError(t, err, ErrorCodeEmptyQuery)
}

func TestFindReferences(t *testing.T) {
	s := newTestServer(t)
	root := writeProject(t)
	indexProject(t, s, root)

	result, err := s.handleFindReferences(context.Background(),
		callRequest("find_references", map[string]interface{}{
			"path": root,
			"term": "LoginUser",
		}))
	require.NoError(t, err)

	response := resultJSON(t, result)
	assert.Equal(t, "LoginUser", response["term"])
	assert.GreaterOrEqual(t, response["total"], float64(1))
}

func TestUpdateIndexPicksUpNewFile(t *testing.T) {
	s := newTestServer(t)
	root := writeProject(t)
	indexProject(t, s, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "extra.go"),
		[]byte("package extra\n\nfunc Added() {}\n"), 0o644))

	result, err := s.handleUpdateIndex(context.Background(),
		callRequest("update_index", map[string]interface{}{"path": root}))
	require.NoError(t, err)

	response := resultJSON(t, result)
	assert.Equal(t, float64(1), response["files_indexed"])
	assert.Contains(t, response["changed_files"], "extra.go")
}

func TestUpdateIndexRequiresIndex(t *testing.T) {
	s := newTestServer(t)
	root := writeProject(t)

	_, err := s.handleUpdateIndex(context.Background(),
		callRequest("update_index", map[string]interface{}{"path": root}))
	requireMCPError(t, err, ErrorCodeNotIndexed)
}

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	assert.ErrorIs(t, validatePath(""), ErrPathRequired)
	assert.ErrorIs(t, validatePath("relative"), ErrPathNotAbsolute)
	assert.ErrorIs(t, validatePath(filepath.Join(dir, "missing")), ErrPathNotFound)
	assert.ErrorIs(t, validatePath(file), ErrNotDirectory)
	assert.NoError(t, validatePath(dir))
}

func TestSnapshotPathIsStablePerRoot(t *testing.T) {
	s := newTestServer(t)

	a := s.snapshotPath("/work/alpha")
	b := s.snapshotPath("/work/beta")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, s.snapshotPath("/work/alpha"))
	assert.Equal(t, filepath.Ext(a), ".db")
}
