package worker

import (
	"context"
	"log/slog"
	"time"

	"forumline/internal/forum"
	"forumline/internal/metrics"
)

// ThreadWatcher periodically refreshes the comment snapshots of publications
// in the actor's followed subforums and reports new comments.
type ThreadWatcher struct {
	Forum    *forum.Service
	Interval time.Duration
	Limit    int // publications per run, newest first

	counts map[string]int
}

func (w *ThreadWatcher) Name() string { return "thread-watcher" }

func (w *ThreadWatcher) Start(ctx context.Context) error {
	if w.Interval <= 0 {
		w.Interval = 2 * time.Minute
	}
	if w.Limit <= 0 {
		w.Limit = 20
	}

	// initial run
	w.runOnce(ctx)

	t := time.NewTicker(w.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			w.runOnce(ctx)
		}
	}
}

// runOnce returns the number of comments that appeared since the previous run.
func (w *ThreadWatcher) runOnce(ctx context.Context) int {
	if w.counts == nil {
		w.counts = map[string]int{}
	}
	feed, err := w.Forum.FollowedFeed(ctx)
	if err != nil {
		slog.Error("watch: fetch feed error", "error", err)
		return 0
	}
	if len(feed) > w.Limit && w.Limit > 0 {
		feed = feed[:w.Limit]
	}
	fresh := 0
	for _, it := range feed {
		pubID := it.Publication.ID
		comments, err := w.Forum.Refresh(ctx, pubID)
		if err != nil {
			slog.Error("watch: refresh error", "pub", pubID, "error", err)
			continue
		}
		n := len(comments)
		metrics.WatchComments.WithLabelValues(pubID).Set(float64(n))
		if prev, seen := w.counts[pubID]; seen && n > prev {
			slog.Info("watch: new comments", "pub", pubID, "title", it.Publication.Title, "new", n-prev, "total", n)
			fresh += n - prev
		}
		w.counts[pubID] = n
	}
	slog.Info("watch: completed", "publications", len(feed), "new_comments", fresh)
	return fresh
}
