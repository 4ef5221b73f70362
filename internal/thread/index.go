package thread

import (
	"errors"

	"forumline/internal/model"
)

var (
	// ErrCycle is returned when following parent references revisits a comment.
	ErrCycle = errors.New("thread: parent chain contains a cycle")
	// ErrUnknownComment is returned for ids absent from the snapshot.
	ErrUnknownComment = errors.New("thread: comment not in snapshot")
)

// Index is an adjacency list over one snapshot, built in a single pass.
// It keeps positions into the snapshot, so sibling order is input order.
type Index struct {
	comments []model.Comment
	roots    []int
	children map[string][]int
	byID     map[string]int
}

// NewIndex indexes comments. The slice is read, never modified; callers must
// not mutate it while the index is in use.
func NewIndex(comments []model.Comment) *Index {
	ix := &Index{
		comments: comments,
		roots:    make([]int, 0),
		children: make(map[string][]int, len(comments)),
		byID:     make(map[string]int, len(comments)),
	}
	for i, c := range comments {
		if _, dup := ix.byID[c.ID]; !dup {
			ix.byID[c.ID] = i
		}
		if c.ParentID == nil {
			ix.roots = append(ix.roots, i)
			continue
		}
		ix.children[*c.ParentID] = append(ix.children[*c.ParentID], i)
	}
	return ix
}

// Len is the number of comments in the snapshot.
func (ix *Index) Len() int {
	return len(ix.comments)
}

// Lookup returns the comment with the given id.
func (ix *Index) Lookup(id string) (model.Comment, bool) {
	i, ok := ix.byID[id]
	if !ok {
		return model.Comment{}, false
	}
	return ix.comments[i], true
}

// Children is ChildrenOf answered from the index.
func (ix *Index) Children(parentID *string) []model.Comment {
	pos := ix.positions(parentID)
	out := make([]model.Comment, 0, len(pos))
	for _, i := range pos {
		out = append(out, ix.comments[i])
	}
	return out
}

// HasChildren reports whether any comment in the snapshot replies to id.
func (ix *Index) HasChildren(id string) bool {
	return len(ix.children[id]) > 0
}

// Render is the package-level Render over a prebuilt index.
func (ix *Index) Render(anchorID *string, maxDepth int) []*Node {
	return ix.RenderAt(anchorID, maxDepth, 0)
}

// RenderAt is the package-level RenderAt over a prebuilt index. An anchor
// absent from the snapshot yields an empty tree, so replies to it stay hidden.
func (ix *Index) RenderAt(anchorID *string, maxDepth, currentDepth int) []*Node {
	if anchorID != nil {
		if _, ok := ix.byID[*anchorID]; !ok {
			return []*Node{}
		}
	}
	pos := ix.positions(anchorID)
	nodes := make([]*Node, 0, len(pos))
	for _, i := range pos {
		c := ix.comments[i]
		n := &Node{Comment: c, Depth: currentDepth}
		if currentDepth < maxDepth {
			n.Children = ix.RenderAt(&c.ID, maxDepth, currentDepth+1)
			n.Leaf = len(n.Children) == 0
		} else {
			n.Children = []*Node{}
			n.Truncated = true
			n.ContinueFrom = copyID(anchorID)
			n.Hidden = len(ix.children[c.ID])
			n.Leaf = true
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// Ancestors returns the parent chain of id, nearest first. The chain ends at a
// top-level comment or at a parent missing from the snapshot. A revisited id
// stops the walk with ErrCycle and the chain gathered so far.
func (ix *Index) Ancestors(id string) ([]model.Comment, error) {
	c, ok := ix.Lookup(id)
	if !ok {
		return nil, ErrUnknownComment
	}
	seen := map[string]struct{}{c.ID: {}}
	chain := make([]model.Comment, 0)
	for c.ParentID != nil {
		parent, ok := ix.Lookup(*c.ParentID)
		if !ok {
			break
		}
		if _, loop := seen[parent.ID]; loop {
			return chain, ErrCycle
		}
		seen[parent.ID] = struct{}{}
		chain = append(chain, parent)
		c = parent
	}
	return chain, nil
}

func (ix *Index) positions(parentID *string) []int {
	if parentID == nil {
		return ix.roots
	}
	return ix.children[*parentID]
}

func copyID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
