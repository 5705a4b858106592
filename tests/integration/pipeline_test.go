package integration

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/kwatts/codescout/internal/extract"
	"github.com/kwatts/codescout/internal/index"
	"github.com/kwatts/codescout/internal/indexer"
	"github.com/kwatts/codescout/internal/query"
	"github.com/kwatts/codescout/internal/scan"
	"github.com/kwatts/codescout/internal/storage"
	"github.com/kwatts/codescout/pkg/types"
)

// PipelineTestSuite drives the whole stack end to end: walk, extract,
// index, query, incremental update and snapshot restore, over a small
// multi-language project built fresh for every test.
type PipelineTestSuite struct {
	suite.Suite
	ctx          context.Context
	root         string
	snapshotPath string

	registry *extract.Registry
	defs     *index.Semantic
	refs     *index.CrossRef
	indexer  *indexer.Indexer
	engine   *query.Engine
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}

func (s *PipelineTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.root = s.T().TempDir()
	s.snapshotPath = filepath.Join(s.T().TempDir(), "index"+storage.SnapshotExt)

	s.writeFixtures()
	s.buildStack()
}

// buildStack wires fresh indices over the current fixture directory.
func (s *PipelineTestSuite) buildStack() {
	s.registry = extract.DefaultRegistry()
	walker, err := scan.NewWalker(s.root, s.registry.CanHandle)
	s.Require().NoError(err)

	s.defs = index.NewSemantic()
	s.refs = index.NewCrossRef()
	s.indexer = indexer.New(walker, s.registry, s.defs, s.refs, &indexer.Config{
		Workers:      2,
		BatchSize:    4,
		SnapshotPath: s.snapshotPath,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	s.engine = query.New(s.defs, s.refs)
	s.indexer.OnCommit(s.engine.InvalidateCache)
}

func (s *PipelineTestSuite) writeFixtures() {
	fixtures := map[string]string{
		"internal/auth/login.go": `package auth

const MaxAttempts = 3

func LoginUser(name, password string) error {
	return verifyPassword(name, password)
}

func LogoutUser(name string) error {
	return clearSession(name)
}
`,
		"internal/auth/session.go": `package auth

func clearSession(name string) {
	store.Delete(name)
}
`,
		"internal/cart/cart.go": `package cart

func AddItem(id string) {
	items = append(items, id)
}
`,
		"web/app.py": `class SessionStore:
    def save(self, session):
        return persist(session)

    def load(self, key):
        return fetch(key)
`,
		"web/checkout.js": `class Checkout {
  submit(order) {
    return LoginUser(order.user);
  }
}
`,
		"config/server.yaml": `server:
  port: 8080
  timeout: 30
`,
	}

	for rel, content := range fixtures {
		s.writeFile(rel, content)
	}
}

func (s *PipelineTestSuite) writeFile(rel, content string) {
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	s.Require().NoError(os.MkdirAll(filepath.Dir(full), 0o755))
	s.Require().NoError(os.WriteFile(full, []byte(content), 0o644))
}

func (s *PipelineTestSuite) search(q string, opts query.Options) []types.SearchResult {
	results, err := s.engine.Search(q, opts)
	s.Require().NoError(err)
	return results
}

func (s *PipelineTestSuite) terms(results []types.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Definition.Term
	}
	return out
}

func (s *PipelineTestSuite) TestFullIndexing() {
	stats, err := s.indexer.Rebuild(s.ctx)
	s.Require().NoError(err)

	s.Equal(6, stats.FilesIndexed)
	s.Zero(stats.FilesFailed)
	s.Greater(stats.Definitions, 0)
	s.Greater(stats.References, 0)

	s.Len(s.defs.Files(), 6)
	s.Greater(s.defs.Len(), 0)
	s.Greater(s.refs.Len(), 0)
}

func (s *PipelineTestSuite) TestSearchAcrossLanguages() {
	_, err := s.indexer.Rebuild(s.ctx)
	s.Require().NoError(err)

	results := s.search("login", query.Options{})
	s.Contains(s.terms(results), "LoginUser")

	results = s.search("session", query.Options{})
	s.Contains(s.terms(results), "SessionStore")

	results = s.search("checkout", query.Options{})
	s.Contains(s.terms(results), "Checkout")
}

func (s *PipelineTestSuite) TestSearchWithFilters() {
	_, err := s.indexer.Rebuild(s.ctx)
	s.Require().NoError(err)

	results := s.search("login | logout", query.Options{
		Kinds:        []types.DefinitionKind{types.KindFunction},
		FilePatterns: []string{"internal/auth/**"},
	})
	s.Require().NotEmpty(results)
	for _, r := range results {
		s.Equal(types.KindFunction, r.Definition.Kind)
		s.Equal("internal/auth/login.go", r.Definition.Location.File)
	}
}

func (s *PipelineTestSuite) TestConfigKeysAreSearchable() {
	_, err := s.indexer.Rebuild(s.ctx)
	s.Require().NoError(err)

	results := s.search("port", query.Options{})
	s.Require().NotEmpty(results)

	found := false
	for _, r := range results {
		if r.Definition.Location.File == "config/server.yaml" {
			found = true
			s.Equal(types.MetaConfigKey, r.Definition.Metadata.Kind)
		}
	}
	s.True(found, "yaml keys should be indexed")
}

func (s *PipelineTestSuite) TestCrossLanguageReferences() {
	_, err := s.indexer.Rebuild(s.ctx)
	s.Require().NoError(err)

	refs := s.refs.ReferencesTo("LoginUser")
	files := map[string]bool{}
	for _, r := range refs {
		files[r.From.File] = true
	}
	s.True(files["web/checkout.js"], "the JS caller should be linked to the Go definition")
}

func (s *PipelineTestSuite) TestIncrementalUpdate() {
	_, err := s.indexer.Rebuild(s.ctx)
	s.Require().NoError(err)

	s.writeFile("internal/auth/login.go", `package auth

const MaxAttempts = 5

func LoginUser(name, password string) error {
	return verifyPassword(name, password)
}
`)

	stats, err := s.indexer.DiffAndUpdate(s.ctx)
	s.Require().NoError(err)

	s.Equal(1, stats.FilesIndexed)
	s.Equal([]string{"internal/auth/login.go"}, stats.ChangedFiles)

	results := s.search("LogoutUser", query.Options{Exact: true})
	s.Empty(results, "removed definitions must leave the index")
}

func (s *PipelineTestSuite) TestQueryCacheFollowsIndex() {
	_, err := s.indexer.Rebuild(s.ctx)
	s.Require().NoError(err)

	before := s.search("additem", query.Options{})
	s.Require().NotEmpty(before)

	s.Require().NoError(os.Remove(filepath.Join(s.root, "internal", "cart", "cart.go")))
	_, err = s.indexer.DiffAndUpdate(s.ctx)
	s.Require().NoError(err)

	after := s.search("additem", query.Options{})
	s.Empty(after, "the commit hook must purge cached results")
}

func (s *PipelineTestSuite) TestSnapshotRestore() {
	_, err := s.indexer.Rebuild(s.ctx)
	s.Require().NoError(err)
	s.Require().NoError(s.indexer.Save(s.ctx))

	wantDefs := s.defs.Len()
	wantRefs := s.refs.Len()

	// A brand-new stack over the same root restores without touching
	// any source file.
	s.buildStack()
	stats, err := s.indexer.LoadOrRebuild(s.ctx)
	s.Require().NoError(err)

	s.Zero(stats.FilesIndexed)
	s.Equal(wantDefs, s.defs.Len())
	s.Equal(wantRefs, s.refs.Len())

	results := s.search("login", query.Options{})
	s.Contains(s.terms(results), "LoginUser")
}

func (s *PipelineTestSuite) TestSnapshotCatchUp() {
	_, err := s.indexer.Rebuild(s.ctx)
	s.Require().NoError(err)
	s.Require().NoError(s.indexer.Save(s.ctx))

	s.writeFile("internal/billing/invoice.go", `package billing

func IssueInvoice(order string) error {
	return render(order)
}
`)

	s.buildStack()
	stats, err := s.indexer.LoadOrRebuild(s.ctx)
	s.Require().NoError(err)

	s.Equal(1, stats.FilesIndexed)
	results := s.search("invoice", query.Options{})
	s.Contains(s.terms(results), "IssueInvoice")
}
