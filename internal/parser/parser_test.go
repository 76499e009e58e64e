package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HelixDB/codebase-index/pkg/types"
)

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()

	g, ok := reg.Lookup("go")
	assert.True(t, ok)
	assert.NotNil(t, g)

	_, ok = reg.Lookup(".GO")
	assert.True(t, ok, "lookup normalizes extensions")

	_, ok = reg.Lookup("txt")
	assert.False(t, ok)

	assert.Contains(t, reg.Extensions(), "go")
	if TreeSitterAvailable {
		assert.Contains(t, reg.Extensions(), "py")
		_, ok = reg.Lookup("jsx")
		assert.True(t, ok, "jsx resolves to the js grammar")
	}
}

func TestRegistryRegister(t *testing.T) {
	reg := NewRegistry()
	reg.Register("txt", goGrammar{})
	_, ok := reg.Lookup("txt")
	assert.True(t, ok)
}

func TestGoGrammar_Parse(t *testing.T) {
	src := []byte(`package demo

import "fmt"

// Hello greets
func Hello() {
	fmt.Println("hi")
}

type Greeter struct{}
`)

	root, err := goGrammar{}.Parse(src)
	require.NoError(t, err)

	assert.Equal(t, "source_file", root.Kind)
	assert.Equal(t, 0, root.StartByte)
	assert.Equal(t, len(src), root.EndByte)

	var kinds []string
	for _, c := range root.Children {
		kinds = append(kinds, c.Kind)
	}
	assert.Equal(t, []string{"ident", "gen_decl", "func_decl", "gen_decl"}, kinds)

	fn := root.Children[2]
	assert.Equal(t, "func Hello() {\n\tfmt.Println(\"hi\")\n}", string(src[fn.StartByte:fn.EndByte]))

	var sawBlock bool
	root.Walk(func(n *types.SyntaxNode) bool {
		assert.LessOrEqual(t, n.StartByte, n.EndByte)
		assert.LessOrEqual(t, n.EndByte, len(src))
		if n.Kind == "block_stmt" {
			sawBlock = true
		}
		return true
	})
	assert.True(t, sawBlock)
}

func TestGoGrammar_SyntaxError(t *testing.T) {
	// Partial AST is still returned
	src := []byte("package demo\n\nfunc Broken( {\n")
	root, err := goGrammar{}.Parse(src)
	require.NoError(t, err)
	assert.Equal(t, len(src), root.EndByte)
}

func TestGoGrammar_Deterministic(t *testing.T) {
	src := []byte("package a\n\nfunc A() {}\n\nfunc B() { A() }\n")
	first, err := goGrammar{}.Parse(src)
	require.NoError(t, err)
	second, err := goGrammar{}.Parse(src)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGoKind(t *testing.T) {
	root, err := goGrammar{}.Parse([]byte("package a\n\nvar x = 1\n"))
	require.NoError(t, err)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "gen_decl", root.Children[1].Kind)
	require.NotEmpty(t, root.Children[1].Children)
	assert.Equal(t, "value_spec", root.Children[1].Children[0].Kind)
}
