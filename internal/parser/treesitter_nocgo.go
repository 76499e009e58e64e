//go:build !cgo

package parser

// TreeSitterAvailable reports whether tree-sitter grammars are compiled in
const TreeSitterAvailable = false

// Tree-sitter grammars need cgo; only the Go grammar is registered.
func registerTreeSitter(*Registry) {}
