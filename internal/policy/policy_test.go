package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"py", "py"},
		{".PY", "py"},
		{"cc", "cpp"},
		{"cxx", "cpp"},
		{"hpp", "cpp"},
		{"h", "c"},
		{"jsx", "js"},
		{"js", "js"},
		{"", "txt"},
		{"rs", "rs"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestRetains(t *testing.T) {
	p, err := Parse([]byte(`{"py": ["function_definition", "class_definition"], "txt": ["ALL"], "cc": ["function_definition"]}`))
	require.NoError(t, err)

	assert.True(t, p.Retains("py", "function_definition"))
	assert.True(t, p.Retains("py", "class_definition"))
	assert.False(t, p.Retains("py", "expression_statement"))

	assert.True(t, p.Retains("txt", "anything"), "ALL retains every kind")

	assert.True(t, p.Retains("cxx", "function_definition"), "aliases share an entry")
	assert.True(t, p.Has("hpp"))

	assert.False(t, p.Has("go"))
	assert.False(t, p.Retains("go", "func_decl"))

	assert.Equal(t, []string{"cpp", "py", "txt"}, p.Extensions())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.json"))
		assert.ErrorIs(t, err, ErrInvalidPolicy)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"py": "function_definition"`), 0644))
		_, err := Load(path)
		assert.ErrorIs(t, err, ErrInvalidPolicy)
	})

	t.Run("empty kinds", func(t *testing.T) {
		_, err := Parse([]byte(`{"py": []}`))
		assert.ErrorIs(t, err, ErrInvalidPolicy)
	})

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "index-types.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"rs": ["function_item"]}`), 0644))
		p, err := Load(path)
		require.NoError(t, err)
		assert.True(t, p.Retains("rs", "function_item"))
	})
}

func TestFlattenKind(t *testing.T) {
	kind, ok := FlattenKind("py")
	assert.True(t, ok)
	assert.Equal(t, "block", kind)

	_, ok = FlattenKind("rs")
	assert.False(t, ok)
}

func TestLoad_DefaultPolicyFile(t *testing.T) {
	pol, err := Load(filepath.Join("..", "..", "index-types.json"))
	require.NoError(t, err)
	for _, ext := range []string{"go", "py", "rs", "js", "jsx"} {
		assert.True(t, pol.Has(ext), ext)
	}
	assert.False(t, pol.Has("txt"))
}
