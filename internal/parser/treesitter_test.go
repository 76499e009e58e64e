//go:build cgo

package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeSitter_Python(t *testing.T) {
	src := []byte("def greet(name):\n    return name\n\nclass Greeter:\n    pass\n")

	g, ok := NewRegistry().Lookup("py")
	require.True(t, ok)

	root, err := g.Parse(src)
	require.NoError(t, err)

	assert.Equal(t, "module", root.Kind)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "function_definition", root.Children[0].Kind)
	assert.Equal(t, "class_definition", root.Children[1].Kind)

	fn := root.Children[0]
	assert.Equal(t, "def greet(name):\n    return name", string(src[fn.StartByte:fn.EndByte]))

	var kinds []string
	for _, c := range fn.Children {
		kinds = append(kinds, c.Kind)
	}
	assert.Contains(t, kinds, "block")
}

func TestTreeSitter_Rust(t *testing.T) {
	src := []byte("fn main() {}\nstruct Point { x: i32 }\n")

	g, ok := NewRegistry().Lookup("rs")
	require.True(t, ok)

	root, err := g.Parse(src)
	require.NoError(t, err)
	assert.Equal(t, "source_file", root.Kind)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "function_item", root.Children[0].Kind)
	assert.Equal(t, "struct_item", root.Children[1].Kind)
}
