//go:build cgo

package parser

import (
	"fmt"
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"github.com/HelixDB/codebase-index/pkg/types"
)

// TreeSitterAvailable reports whether tree-sitter grammars are compiled in
const TreeSitterAvailable = true

func registerTreeSitter(r *Registry) {
	r.Register("py", newTreeSitterGrammar("python", tree_sitter_python.Language()))
	r.Register("rs", newTreeSitterGrammar("rust", tree_sitter_rust.Language()))
	r.Register("js", newTreeSitterGrammar("javascript", tree_sitter_javascript.Language()))
}

// treeSitterGrammar creates a fresh parser per call; tree-sitter parsers are not goroutine safe
type treeSitterGrammar struct {
	name     string
	language *tree_sitter.Language
}

func newTreeSitterGrammar(name string, ptr unsafe.Pointer) *treeSitterGrammar {
	return &treeSitterGrammar{name: name, language: tree_sitter.NewLanguage(ptr)}
}

// Parse parses src and copies the tree into a SyntaxNode
func (g *treeSitterGrammar) Parse(src []byte) (*types.SyntaxNode, error) {
	p := tree_sitter.NewParser()
	defer p.Close()

	if err := p.SetLanguage(g.language); err != nil {
		return nil, fmt.Errorf("%s: set language: %w", g.name, err)
	}

	tree := p.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("%s: %w", g.name, ErrNoTree)
	}
	defer tree.Close()

	return convertTreeSitter(tree.RootNode()), nil
}

func convertTreeSitter(n *tree_sitter.Node) *types.SyntaxNode {
	sn := &types.SyntaxNode{
		Kind:      n.Kind(),
		StartByte: int(n.StartByte()),
		EndByte:   int(n.EndByte()),
	}
	count := n.ChildCount()
	if count > 0 {
		sn.Children = make([]*types.SyntaxNode, 0, count)
	}
	for i := uint(0); i < count; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		sn.Children = append(sn.Children, convertTreeSitter(child))
	}
	return sn
}
