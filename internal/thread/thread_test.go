package thread

import (
	"errors"
	"reflect"
	"testing"

	"forumline/internal/model"
)

func ptr(s string) *string { return &s }

func comment(id string, parent *string) model.Comment {
	return model.Comment{ID: id, PublicationID: "p1", Content: "c-" + id, ParentID: parent}
}

// a, c are top-level; b, d reply to a.
func sample() []model.Comment {
	return []model.Comment{
		comment("a", nil),
		comment("b", ptr("a")),
		comment("c", nil),
		comment("d", ptr("a")),
	}
}

func ids(cs []model.Comment) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func nodeIDs(ns []*Node) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Comment.ID)
	}
	return out
}

func TestChildrenOf(t *testing.T) {
	c := sample()
	cases := []struct {
		name   string
		parent *string
		want   []string
	}{
		{"top-level", nil, []string{"a", "c"}},
		{"replies to a", ptr("a"), []string{"b", "d"}},
		{"no replies", ptr("b"), []string{}},
		{"unknown parent", ptr("zz"), []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ChildrenOf(c, tc.parent)
			if got == nil {
				t.Fatalf("ChildrenOf returned nil")
			}
			if !reflect.DeepEqual(ids(got), tc.want) {
				t.Fatalf("got %v, want %v", ids(got), tc.want)
			}
			// the index must agree with the linear filter
			if ixGot := NewIndex(c).Children(tc.parent); !reflect.DeepEqual(ids(ixGot), tc.want) {
				t.Fatalf("index got %v, want %v", ids(ixGot), tc.want)
			}
		})
	}
}

func TestRenderDepthZeroTruncatesEverything(t *testing.T) {
	nodes := Render(sample(), nil, 0)
	if got := nodeIDs(nodes); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("got %v, want [a c]", got)
	}
	for _, n := range nodes {
		if !n.Truncated || !n.Leaf {
			t.Errorf("node %s: truncated=%v leaf=%v, want both true", n.Comment.ID, n.Truncated, n.Leaf)
		}
		if len(n.Children) != 0 {
			t.Errorf("node %s: expected no children, got %d", n.Comment.ID, len(n.Children))
		}
		if n.ContinueFrom != nil {
			t.Errorf("node %s: expected continue anchor nil (publication root)", n.Comment.ID)
		}
		if n.Depth != 0 {
			t.Errorf("node %s: depth %d, want 0", n.Comment.ID, n.Depth)
		}
	}
}

func TestRenderDepthOne(t *testing.T) {
	nodes := Render(sample(), nil, 1)
	if len(nodes) != 2 {
		t.Fatalf("expected 2 top-level nodes, got %d", len(nodes))
	}
	a, c := nodes[0], nodes[1]
	if a.Truncated {
		t.Fatalf("a should be expanded at depth 0")
	}
	if got := nodeIDs(a.Children); !reflect.DeepEqual(got, []string{"b", "d"}) {
		t.Fatalf("a children = %v, want [b d]", got)
	}
	for _, n := range a.Children {
		if n.Depth != 1 || !n.Truncated {
			t.Errorf("node %s: depth=%d truncated=%v, want 1/true", n.Comment.ID, n.Depth, n.Truncated)
		}
		if n.ContinueFrom == nil || *n.ContinueFrom != "a" {
			t.Errorf("node %s: continue anchor should be a", n.Comment.ID)
		}
	}
	if c.Truncated || !c.Leaf || len(c.Children) != 0 {
		t.Fatalf("c: truncated=%v leaf=%v children=%d", c.Truncated, c.Leaf, len(c.Children))
	}
}

func TestRenderDepthBoundAndCompleteness(t *testing.T) {
	// chain r -> x1 -> x2 -> x3 -> x4 plus a sibling branch
	cs := []model.Comment{
		comment("r", nil),
		comment("x1", ptr("r")),
		comment("x2", ptr("x1")),
		comment("s1", ptr("r")),
		comment("x3", ptr("x2")),
		comment("x4", ptr("x3")),
	}
	for maxDepth := 0; maxDepth <= 5; maxDepth++ {
		nodes := Render(cs, nil, maxDepth)
		seen := map[string]int{}
		Walk(nodes, func(n *Node) bool {
			if n.Depth > maxDepth {
				t.Fatalf("maxDepth=%d: node %s at depth %d", maxDepth, n.Comment.ID, n.Depth)
			}
			seen[n.Comment.ID]++
			return true
		})
		// hops from the root anchor: r=0, x1/s1=1, x2=2, x3=3, x4=4
		hops := map[string]int{"r": 0, "x1": 1, "s1": 1, "x2": 2, "x3": 3, "x4": 4}
		for id, h := range hops {
			want := 0
			if h <= maxDepth {
				want = 1
			}
			if seen[id] != want {
				t.Errorf("maxDepth=%d: %s seen %d times, want %d", maxDepth, id, seen[id], want)
			}
		}
	}
}

func TestRenderContinueThread(t *testing.T) {
	cs := []model.Comment{
		comment("r", nil),
		comment("x1", ptr("r")),
		comment("x2", ptr("x1")),
		comment("x3", ptr("x2")),
	}
	nodes := Render(cs, nil, 1)
	var truncated *Node
	Walk(nodes, func(n *Node) bool {
		if n.Truncated && truncated == nil {
			truncated = n
		}
		return true
	})
	if truncated == nil || truncated.Comment.ID != "x1" {
		t.Fatalf("expected x1 to be truncated")
	}
	if truncated.Hidden != 1 || truncated.ContinueFrom == nil || *truncated.ContinueFrom != "r" {
		t.Fatalf("x1 hidden=%d continue=%v", truncated.Hidden, truncated.ContinueFrom)
	}
	// re-root at the truncated node with depth reset
	deeper := Render(cs, &truncated.Comment.ID, 1)
	if got := nodeIDs(deeper); !reflect.DeepEqual(got, []string{"x2"}) {
		t.Fatalf("continued thread = %v, want [x2]", got)
	}
	if deeper[0].Depth != 0 {
		t.Fatalf("continued thread should restart at depth 0")
	}
	if got := nodeIDs(deeper[0].Children); !reflect.DeepEqual(got, []string{"x3"}) {
		t.Fatalf("x2 children = %v, want [x3]", got)
	}
}

func TestRenderIsIdempotentAndDoesNotMutate(t *testing.T) {
	cs := sample()
	before := append([]model.Comment(nil), cs...)
	first := Render(cs, nil, 3)
	second := Render(cs, nil, 3)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("renders differ for the same snapshot")
	}
	if !reflect.DeepEqual(cs, before) {
		t.Fatalf("input snapshot was mutated")
	}
}

func TestRenderOrphanIsSilentlyOmitted(t *testing.T) {
	cs := append(sample(), comment("orphan", ptr("deleted-parent")))
	if got := ids(ChildrenOf(cs, nil)); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("top-level = %v, want [a c]", got)
	}
	nodes := Render(cs, nil, 10)
	Walk(nodes, func(n *Node) bool {
		if n.Comment.ID == "orphan" {
			t.Fatalf("orphan surfaced in tree")
		}
		return true
	})
	if Count(nodes) != 4 {
		t.Fatalf("expected 4 nodes, got %d", Count(nodes))
	}
}

func TestRenderEmpty(t *testing.T) {
	nodes := Render(nil, nil, 3)
	if nodes == nil {
		t.Fatalf("expected empty, non-nil result")
	}
	if len(nodes) != 0 {
		t.Fatalf("expected no nodes, got %d", len(nodes))
	}
	if got := Render(sample(), ptr("missing"), 3); len(got) != 0 {
		t.Fatalf("absent anchor should give an empty tree, got %d nodes", len(got))
	}
	withOrphan := append(sample(), comment("orphan", ptr("deleted-parent")))
	got := Render(withOrphan, ptr("deleted-parent"), 3)
	if got == nil || len(got) != 0 {
		t.Fatalf("anchor at a deleted parent rendered %v, want empty", nodeIDs(got))
	}
	if got := NewIndex(withOrphan).Render(ptr("deleted-parent"), 3); len(got) != 0 {
		t.Fatalf("index render surfaced %v", nodeIDs(got))
	}
}

func TestRenderSelfReferenceIsBounded(t *testing.T) {
	cs := []model.Comment{comment("loop", ptr("loop"))}
	nodes := Render(cs, ptr("loop"), 2)
	if Count(nodes) != 3 {
		t.Fatalf("expected depth-bounded repetition of 3 nodes, got %d", Count(nodes))
	}
	if len(Render(cs, nil, 2)) != 0 {
		t.Fatalf("self-referencing comment must not appear at top level")
	}
}

func TestAncestors(t *testing.T) {
	cs := []model.Comment{
		comment("r", nil),
		comment("x1", ptr("r")),
		comment("x2", ptr("x1")),
		comment("o", ptr("gone")),
	}
	ix := NewIndex(cs)

	chain, err := ix.Ancestors("x2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ids(chain); !reflect.DeepEqual(got, []string{"x1", "r"}) {
		t.Fatalf("ancestors = %v, want [x1 r]", got)
	}

	chain, err = ix.Ancestors("o")
	if err != nil || len(chain) != 0 {
		t.Fatalf("dangling parent: chain=%v err=%v", ids(chain), err)
	}

	if _, err := ix.Ancestors("nope"); !errors.Is(err, ErrUnknownComment) {
		t.Fatalf("expected ErrUnknownComment, got %v", err)
	}
}

func TestAncestorsDetectsCycle(t *testing.T) {
	cs := []model.Comment{
		comment("p", ptr("q")),
		comment("q", ptr("p")),
	}
	chain, err := NewIndex(cs).Ancestors("p")
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	if got := ids(chain); !reflect.DeepEqual(got, []string{"q"}) {
		t.Fatalf("partial chain = %v, want [q]", got)
	}
}
