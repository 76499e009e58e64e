package types

// SyntaxNode is a parser-neutral concrete syntax tree node.
// StartByte and EndByte form a half-open span into the parsed source.
type SyntaxNode struct {
	Kind      string
	StartByte int
	EndByte   int
	Children  []*SyntaxNode
}

// Walk visits n and its descendants depth-first, stopping descent when fn returns false
func (n *SyntaxNode) Walk(fn func(*SyntaxNode) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
