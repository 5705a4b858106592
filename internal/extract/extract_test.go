package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwatts/codescout/pkg/types"
)

func findDef(defs []types.Definition, term string, kind types.DefinitionKind) *types.Definition {
	for i := range defs {
		if defs[i].Term == term && defs[i].Kind == kind {
			return &defs[i]
		}
	}
	return nil
}

func findRef(refs []types.Reference, target string, kind types.ReferenceKind) *types.Reference {
	for i := range refs {
		if refs[i].TargetTerm == target && refs[i].Kind == kind {
			return &refs[i]
		}
	}
	return nil
}

func TestGoExtraction(t *testing.T) {
	src := `package auth

import "crypto/sha1"

// TODO: remove legacy token path
func LoginUser(name string) string {
	secret := "topsecret"
	return hash(secret + name)
}
`
	reg := DefaultRegistry()
	res := reg.ExtractFile([]byte(src), "internal/auth/login.go")
	require.False(t, res.Fallback)

	mod := findDef(res.Definitions, "auth", types.KindModule)
	require.NotNil(t, mod, "package clause should define a module")
	assert.Equal(t, 1, mod.Location.Line)

	imp := findDef(res.Definitions, "crypto/sha1", types.KindImport)
	require.NotNil(t, imp)

	fn := findDef(res.Definitions, "LoginUser", types.KindFunction)
	require.NotNil(t, fn)
	assert.Equal(t, 6, fn.Location.Line)
	assert.Equal(t, "go", fn.Language)
	assert.Contains(t, fn.Context, "func LoginUser")
	assert.NotEmpty(t, fn.SurroundingLines)

	v := findDef(res.Definitions, "secret", types.KindVariable)
	require.NotNil(t, v, ":= should define a variable")

	lit := findDef(res.Definitions, "topsecret", types.KindString)
	require.NotNil(t, lit, "string literals should be indexed")

	todo := findDef(res.Definitions, "TODO: remove legacy token path", types.KindComment)
	require.NotNil(t, todo)
	assert.Equal(t, types.MetaMarker, todo.Metadata.Kind)
	assert.Equal(t, types.MarkerTODO, todo.Metadata.Marker)

	// The definition line of LoginUser must not count as a usage.
	assert.Nil(t, findRef(res.References, "loginuser", types.RefCall))
	require.NotNil(t, findRef(res.References, "hash", types.RefCall))
	require.NotNil(t, findRef(res.References, "crypto/sha1", types.RefImport))
}

func TestPythonExtraction(t *testing.T) {
	src := `import hashlib

def login_user(name):
    token = hashlib.sha256(name)
    return token

class SessionStore:
    def save(self, token):
        pass
`
	reg := DefaultRegistry()
	res := reg.ExtractFile([]byte(src), "src/auth.py")

	require.NotNil(t, findDef(res.Definitions, "hashlib", types.KindImport))
	require.NotNil(t, findDef(res.Definitions, "login_user", types.KindFunction))

	cls := findDef(res.Definitions, "SessionStore", types.KindClass)
	require.NotNil(t, cls)

	// Methods inside a class are qualified through related terms.
	save := findDef(res.Definitions, "save", types.KindFunction)
	require.NotNil(t, save)
	assert.Contains(t, save.RelatedTerms, "SessionStore.save")

	require.NotNil(t, findRef(res.References, "sha256", types.RefCall))
}

func TestPythonDedentClosesClassScope(t *testing.T) {
	src := `class First:
    def inside(self):
        pass

def outside():
    pass
`
	reg := DefaultRegistry()
	res := reg.ExtractFile([]byte(src), "a.py")

	inside := findDef(res.Definitions, "inside", types.KindFunction)
	require.NotNil(t, inside)
	assert.Contains(t, inside.RelatedTerms, "First.inside")

	outside := findDef(res.Definitions, "outside", types.KindFunction)
	require.NotNil(t, outside)
	assert.NotContains(t, outside.RelatedTerms, "First.outside")
}

func TestJavaScriptExtraction(t *testing.T) {
	src := `import { api } from './api'

class Cart extends Base {
  addItem(item) {
    this.items.push(item)
  }
}

const total = (cart) => cart.items.length
new Cart()
`
	reg := DefaultRegistry()
	res := reg.ExtractFile([]byte(src), "src/cart.js")

	cls := findDef(res.Definitions, "Cart", types.KindClass)
	require.NotNil(t, cls)

	method := findDef(res.Definitions, "addItem", types.KindFunction)
	require.NotNil(t, method)
	assert.Contains(t, method.RelatedTerms, "Cart.addItem")

	require.NotNil(t, findDef(res.Definitions, "total", types.KindFunction), "arrow functions are functions")
	require.NotNil(t, findDef(res.Definitions, "./api", types.KindImport))

	require.NotNil(t, findRef(res.References, "base", types.RefExtends))
	require.NotNil(t, findRef(res.References, "cart", types.RefInstantiation))
}

func TestTypeScriptExtraction(t *testing.T) {
	src := `interface Storable {
  save(): void
}

class Repo implements Storable {
}

type UserID = string
`
	reg := DefaultRegistry()
	res := reg.ExtractFile([]byte(src), "src/repo.ts")

	require.NotNil(t, findDef(res.Definitions, "Storable", types.KindInterface))
	require.NotNil(t, findDef(res.Definitions, "UserID", types.KindClass))
	require.NotNil(t, findRef(res.References, "storable", types.RefImplements))
}

func TestBlockCommentHandling(t *testing.T) {
	src := `/* FIXME: the cache below
   is never invalidated */
var cache = {}
`
	reg := DefaultRegistry()
	res := reg.ExtractFile([]byte(src), "cache.js")

	var markers []types.Definition
	for _, d := range res.Definitions {
		if d.Metadata.Kind == types.MetaMarker {
			markers = append(markers, d)
		}
	}
	require.NotEmpty(t, markers)
	assert.Equal(t, types.MarkerFIXME, markers[0].Metadata.Marker)

	// Lines inside a block comment are comments, not declarations.
	assert.Nil(t, findDef(res.Definitions, "is", types.KindVariable))
	require.NotNil(t, findDef(res.Definitions, "cache", types.KindVariable))
}

func TestStringLiteralsDoNotFakeDeclarations(t *testing.T) {
	src := `msg = "def not_a_function(x):"
`
	reg := DefaultRegistry()
	res := reg.ExtractFile([]byte(src), "a.py")

	assert.Nil(t, findDef(res.Definitions, "not_a_function", types.KindFunction))
	require.NotNil(t, findDef(res.Definitions, "def not_a_function(x):", types.KindString))
}

func TestConfigYAML(t *testing.T) {
	src := `server:
  port: 8080
  handler: processPayment
`
	reg := DefaultRegistry()
	res := reg.ExtractFile([]byte(src), "config/app.yaml")

	port := findDef(res.Definitions, "port", types.KindVariable)
	require.NotNil(t, port)
	assert.Equal(t, types.MetaConfigKey, port.Metadata.Kind)
	assert.Equal(t, "server.port", port.Metadata.KeyPath)

	handler := findDef(res.Definitions, "handler", types.KindVariable)
	require.NotNil(t, handler)
	assert.Equal(t, "server.handler", handler.Metadata.KeyPath)

	// Identifier-shaped values link config to code.
	require.NotNil(t, findRef(res.References, "processpayment", types.RefConfigLink))
}

func TestConfigTOMLTables(t *testing.T) {
	src := `[database]
host = "localhost"
max_conns = 20
`
	reg := DefaultRegistry()
	res := reg.ExtractFile([]byte(src), "settings.toml")

	host := findDef(res.Definitions, "host", types.KindVariable)
	require.NotNil(t, host)
	assert.Equal(t, "database.host", host.Metadata.KeyPath)
}

func TestConfigEnv(t *testing.T) {
	src := `DATABASE_URL=postgres://localhost/app
DEBUG=true
`
	reg := DefaultRegistry()
	res := reg.ExtractFile([]byte(src), ".env")

	url := findDef(res.Definitions, "DATABASE_URL", types.KindVariable)
	require.NotNil(t, url)
	assert.Equal(t, "DATABASE_URL", url.Metadata.KeyPath)

	// Boolean noise values never become link targets.
	assert.Nil(t, findRef(res.References, "true", types.RefConfigLink))
}

func TestFrameworkComponent(t *testing.T) {
	src := `<template>
  <button @click="submit" :disabled="pending" class="btn primary">{{ total }}</button>
</template>

<script>
function submit() {
  return total
}
</script>

<style>
.btn {
  color: red;
}
</style>
`
	reg := DefaultRegistry()
	res := reg.ExtractFile([]byte(src), "src/Checkout.vue")

	// Script declarations keep file-absolute line numbers.
	fn := findDef(res.Definitions, "submit", types.KindFunction)
	require.NotNil(t, fn)
	assert.Equal(t, 6, fn.Location.Line)

	directive := findDef(res.Definitions, "@click", types.KindVariable)
	require.NotNil(t, directive)
	assert.Equal(t, types.MetaDirective, directive.Metadata.Kind)

	bound := findDef(res.Definitions, ":disabled", types.KindVariable)
	require.NotNil(t, bound)
	assert.Equal(t, types.MetaDirective, bound.Metadata.Kind)

	selector := findDef(res.Definitions, "btn", types.KindVariable)
	require.NotNil(t, selector)
	assert.Equal(t, ".btn", selector.Metadata.Selector)

	require.NotNil(t, findRef(res.References, "total", types.RefVariableLink))
	require.NotNil(t, findRef(res.References, "btn", types.RefUsage))
}

func TestGenericFallbackForUnknownFiles(t *testing.T) {
	src := `# deployment checklist
func deploy_all()
`
	reg := DefaultRegistry()

	ext := reg.ForPath("notes.xyz")
	assert.Equal(t, "generic", ext.Name())
	assert.False(t, reg.CanHandle("notes.xyz"))

	res := reg.ExtractFile([]byte(src), "notes.xyz")
	require.NotNil(t, findDef(res.Definitions, "deploy_all", types.KindFunction))
	require.NotNil(t, findDef(res.Definitions, "deployment checklist", types.KindComment))
}

type panicExtractor struct{}

func (panicExtractor) Name() string          { return "panic" }
func (panicExtractor) CanHandle(string) bool { return true }

func (panicExtractor) Extract([]byte, string) types.ExtractResult { panic("boom") }

func TestExtractFileRecoversToFallback(t *testing.T) {
	reg := NewRegistry(panicExtractor{})
	res := reg.ExtractFile([]byte("func ok()\n"), "any.txt")

	assert.True(t, res.Fallback)
	require.NotNil(t, findDef(res.Definitions, "ok", types.KindFunction))
}

func TestSplitIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"getUserName", []string{"get", "user", "name"}},
		{"user_name", []string{"user", "name"}},
		{"HTTPServer", []string{"http", "server"}},
		{"parseJSONBody", []string{"parse", "json", "body"}},
		{"simple", []string{"simple"}},
		{"with spaces here", []string{"with", "spaces", "here"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitIdentifier(tt.in), "input %q", tt.in)
	}
}

func TestStripStrings(t *testing.T) {
	in := `call("func inside()") // tail`
	out := stripStrings(in, []byte{'"'})

	assert.Equal(t, `call("`+strings.Repeat(" ", len("func inside()"))+`") // tail`, out)
	assert.Len(t, out, len(in))
	assert.NotContains(t, out, "inside")
}
