// Package types provides shared type definitions for codebase-index.
//
// This package defines the records the indexer writes to a code index and the
// syntax tree shape the parsers hand to the extractor.
//
// # Hierarchy
//
// A Root is one indexed directory tree. Folders and Files hang off the root or
// off other folders; both carry an IsSuper flag that is true only for direct
// children of the root:
//
//	root
//	├── internal/        (Folder, IsSuper=true)
//	│   └── parser/      (Folder, IsSuper=false)
//	└── main.go          (File,   IsSuper=true)
//
// Entities are syntax nodes kept by the retention policy. The retained direct
// children of a file's root node are super entities; only super entities are
// chunked and embedded:
//
//	entity := &types.Entity{
//	    Kind:      "function_definition",
//	    StartByte: 0,
//	    EndByte:   42,
//	    Order:     1,
//	    IsSuper:   true,
//	}
//
// Sibling entities carry a 1-based Order that is contiguous within the group.
//
// # Syntax Trees
//
// SyntaxNode is a parser-neutral snapshot of a concrete syntax tree: a kind,
// a half-open byte span and ordered children.
package types
