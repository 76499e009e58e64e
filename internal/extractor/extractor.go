// Package extractor turns a parsed syntax tree into the ordered entity
// hierarchy stored in the index.
//
// Only node kinds retained by the policy become entities; a node that is not
// retained is dropped together with its whole subtree. Entities directly under
// the tree root are super entities, everything below them is a sub entity.
// Sibling orders are 1..N in source order among the retained siblings.
package extractor

import (
	"github.com/HelixDB/codebase-index/internal/policy"
	"github.com/HelixDB/codebase-index/pkg/types"
)

// Extract returns the super entities of root for a file with extension ext.
// The result is deterministic for a given tree, source and policy. A nil tree
// or an extension without a policy entry yields no entities.
func Extract(root *types.SyntaxNode, src []byte, ext string, pol *policy.Policy) []*types.Entity {
	if root == nil || pol == nil || !pol.Has(ext) {
		return nil
	}
	x := &extraction{src: src, ext: policy.Normalize(ext), pol: pol}
	x.flatten, _ = policy.FlattenKind(ext)
	return x.entities(root, true)
}

type extraction struct {
	src     []byte
	ext     string
	pol     *policy.Policy
	flatten string
}

// entities materializes the retained children of n
func (x *extraction) entities(n *types.SyntaxNode, super bool) []*types.Entity {
	var out []*types.Entity
	for _, c := range x.siblings(n.Children, nil) {
		if !x.pol.Retains(x.ext, c.Kind) {
			continue
		}
		start, end := x.clamp(c.StartByte, c.EndByte)
		e := &types.Entity{
			Kind:      c.Kind,
			StartByte: start,
			EndByte:   end,
			Order:     len(out) + 1,
			Text:      string(x.src[start:end]),
			IsSuper:   super,
		}
		e.Children = x.entities(c, false)
		out = append(out, e)
	}
	return out
}

// siblings splices the children of flattened blocks into their parent's
// child list, recursively, preserving order.
func (x *extraction) siblings(children, out []*types.SyntaxNode) []*types.SyntaxNode {
	for _, c := range children {
		if c == nil {
			continue
		}
		if x.flatten != "" && c.Kind == x.flatten && len(c.Children) > 0 {
			out = x.siblings(c.Children, out)
			continue
		}
		out = append(out, c)
	}
	return out
}

func (x *extraction) clamp(start, end int) (int, int) {
	n := len(x.src)
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	if end < start {
		end = start
	}
	if end > n {
		end = n
	}
	return start, end
}

// Count returns the number of entities in the forest, descendants included
func Count(entities []*types.Entity) int {
	n := 0
	for _, e := range entities {
		n += e.Count()
	}
	return n
}
