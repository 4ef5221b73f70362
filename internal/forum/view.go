package forum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"forumline/internal/metrics"
	"forumline/internal/model"
	"forumline/internal/storage"
	"forumline/internal/thread"
)

// ThreadView is a rendered discussion rooted at the publication or at one
// of its comments.
type ThreadView struct {
	Subforum    model.Subforum
	Publication model.Publication
	Anchor      *model.Comment
	Ancestors   []model.Comment // nearest first, excluding Anchor
	Nodes       []*thread.Node
	MaxDepth    int
	Total       int  // comments in the snapshot
	Stale       bool // refetch failed; showing the previous snapshot
}

// Parent is the comment the anchor replies to, if any.
func (v *ThreadView) Parent() *model.Comment {
	if len(v.Ancestors) == 0 {
		return nil
	}
	return &v.Ancestors[0]
}

// Thread builds the view of a publication's discussion from its cached
// snapshot. anchorID re-roots the tree at that comment.
func (s *Service) Thread(ctx context.Context, pubID string, anchorID *string, maxDepth int) (*ThreadView, error) {
	if maxDepth < 0 {
		maxDepth = 0
	}
	pub, err := s.store.Publication(ctx, pubID)
	if err != nil {
		return nil, fmt.Errorf("publication %s: %w", pubID, err)
	}
	sub, err := s.store.Subforum(ctx, pub.SubforumID)
	if err != nil {
		return nil, fmt.Errorf("subforum %s: %w", pub.SubforumID, err)
	}

	view := &ThreadView{Subforum: *sub, Publication: *pub, MaxDepth: maxDepth}
	comments, err := s.cache.Get(ctx, pubID)
	if err != nil {
		prev, ok := s.cache.Peek(pubID)
		if !ok {
			return nil, err
		}
		slog.Warn("forum: refetch failed, showing previous snapshot", "pub", pubID, "error", err)
		comments = prev
		view.Stale = true
	}

	ix := thread.NewIndex(comments)
	if anchorID != nil {
		anchor, ok := ix.Lookup(*anchorID)
		if !ok && !view.Stale {
			// the anchor may be newer than the snapshot
			if fresh, err := s.cache.Refresh(ctx, pubID); err == nil {
				ix = thread.NewIndex(fresh)
				anchor, ok = ix.Lookup(*anchorID)
			}
		}
		if !ok {
			return nil, fmt.Errorf("comment %s: %w", *anchorID, storage.ErrNotFound)
		}
		view.Anchor = &anchor
		chain, err := ix.Ancestors(*anchorID)
		if errors.Is(err, thread.ErrCycle) {
			slog.Warn("forum: cyclic parent chain", "pub", pubID, "comment", *anchorID)
		}
		view.Ancestors = chain
	}
	view.Nodes = ix.Render(anchorID, maxDepth)
	view.Total = ix.Len()
	metrics.TreeBuilds.Inc()
	return view, nil
}
