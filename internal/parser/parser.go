package parser

import (
	"errors"
	"sort"
	"sync"

	"github.com/HelixDB/codebase-index/internal/policy"
	"github.com/HelixDB/codebase-index/pkg/types"
)

var ErrNoTree = errors.New("parser produced no syntax tree")

// Grammar parses source bytes of one language
type Grammar interface {
	Parse(src []byte) (*types.SyntaxNode, error)
}

// Registry maps normalized extensions to grammars
type Registry struct {
	mu       sync.RWMutex
	grammars map[string]Grammar
}

// NewRegistry creates a registry with every grammar available in this build
func NewRegistry() *Registry {
	r := &Registry{grammars: make(map[string]Grammar)}
	r.Register("go", goGrammar{})
	registerTreeSitter(r)
	return r
}

// Register adds or replaces the grammar for ext
func (r *Registry) Register(ext string, g Grammar) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grammars[policy.Normalize(ext)] = g
}

// Lookup returns the grammar for ext, or false if the extension is unsupported
func (r *Registry) Lookup(ext string) (Grammar, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.grammars[policy.Normalize(ext)]
	return g, ok
}

// Extensions lists the supported extensions, sorted
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.grammars))
	for ext := range r.grammars {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
