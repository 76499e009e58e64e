// Package parser turns source bytes into parser-neutral syntax trees.
//
// Grammars are registered per normalized file extension. The Go grammar uses
// the standard library (go/parser, go/ast, go/token); Python, Rust and
// JavaScript use tree-sitter and are only available in cgo builds.
//
// # Basic Usage
//
//	reg := parser.NewRegistry()
//	g, ok := reg.Lookup("py")
//	if !ok {
//	    // unsupported: index the file as an opaque blob
//	}
//	root, err := g.Parse(src)
//
// # Node Kinds
//
// Tree-sitter grammars report their own node kinds (function_definition,
// class_definition, block, ...). The Go grammar reports snake-cased go/ast
// type names: *ast.FuncDecl becomes func_decl, *ast.BlockStmt becomes
// block_stmt. The root of every tree spans the whole source.
//
// # Error Handling
//
// Syntax errors are non-fatal whenever the underlying parser recovers a
// partial tree. Parse returns an error only when no tree is available.
package parser
