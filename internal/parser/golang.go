package parser

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"unicode"

	"github.com/HelixDB/codebase-index/pkg/types"
)

// goGrammar parses Go source with go/parser
type goGrammar struct{}

// Parse builds a syntax tree from Go source.
// Syntax errors are non-fatal when a partial AST is available.
func (goGrammar) Parse(src []byte) (*types.SyntaxNode, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", src, parser.ParseComments)
	if file == nil {
		if err == nil {
			err = ErrNoTree
		}
		return nil, fmt.Errorf("go parse: %w", err)
	}

	b := &goTreeBuilder{fset: fset, size: len(src)}
	root := b.convert(file, 0)
	root.Kind = "source_file"
	root.StartByte = 0
	root.EndByte = len(src)
	return root, nil
}

type goTreeBuilder struct {
	fset *token.FileSet
	size int
}

func (b *goTreeBuilder) offset(pos token.Pos, fallback int) int {
	if !pos.IsValid() {
		return fallback
	}
	off := b.fset.Position(pos).Offset
	if off < 0 {
		return 0
	}
	if off > b.size {
		return b.size
	}
	return off
}

// convert snapshots n and its direct AST children
func (b *goTreeBuilder) convert(n ast.Node, parentStart int) *types.SyntaxNode {
	start := b.offset(n.Pos(), parentStart)
	end := b.offset(n.End(), start)
	if end < start {
		end = start
	}
	sn := &types.SyntaxNode{
		Kind:      goKind(n),
		StartByte: start,
		EndByte:   end,
	}

	ast.Inspect(n, func(c ast.Node) bool {
		if c == nil {
			return false
		}
		if c == n {
			return true
		}
		sn.Children = append(sn.Children, b.convert(c, start))
		return false
	})
	return sn
}

// goKind converts *ast.FuncDecl to func_decl
func goKind(n ast.Node) string {
	name := strings.TrimPrefix(fmt.Sprintf("%T", n), "*ast.")
	var sb strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
