// Package thread builds depth-bounded discussion trees from a flat snapshot of
// comments. Nothing here performs I/O: callers fetch the snapshot and hand it
// over unchanged.
package thread

import (
	"forumline/internal/model"
)

// Node is one comment placed in a rendered tree.
type Node struct {
	Comment  model.Comment
	Depth    int
	Children []*Node
	// Truncated is set on nodes at the maximum depth. Their replies, if any,
	// are not expanded in this render.
	Truncated bool
	// ContinueFrom is the anchor the truncated node was rendered under. It is
	// nil when the anchor was the publication itself.
	ContinueFrom *string
	// Hidden counts the direct replies a truncated node did not expand.
	Hidden int
	// Leaf marks the visual end of a branch: truncated, or no replies at all.
	Leaf bool
}

// ChildrenOf returns the comments whose parent equals parentID, in input
// order. A nil parentID selects the top-level comments. The result is never
// nil.
func ChildrenOf(comments []model.Comment, parentID *string) []model.Comment {
	out := make([]model.Comment, 0)
	for _, c := range comments {
		if sameParent(c.ParentID, parentID) {
			out = append(out, c)
		}
	}
	return out
}

// Render builds the tree below anchorID, expanding replies until maxDepth.
// A nil anchorID starts from the publication root.
func Render(comments []model.Comment, anchorID *string, maxDepth int) []*Node {
	return RenderAt(comments, anchorID, maxDepth, 0)
}

// RenderAt is Render starting at currentDepth. Each recursive descent
// increments currentDepth by one; nodes at maxDepth are truncated.
func RenderAt(comments []model.Comment, anchorID *string, maxDepth, currentDepth int) []*Node {
	return NewIndex(comments).RenderAt(anchorID, maxDepth, currentDepth)
}

// Walk visits nodes depth-first in pre-order. Returning false from fn skips
// the node's children.
func Walk(nodes []*Node, fn func(n *Node) bool) {
	for _, n := range nodes {
		if fn(n) {
			Walk(n.Children, fn)
		}
	}
}

// Count returns the number of nodes in the rendered forest.
func Count(nodes []*Node) int {
	total := 0
	Walk(nodes, func(*Node) bool {
		total++
		return true
	})
	return total
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
