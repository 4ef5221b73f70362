// Package threadcache holds the flat comment snapshot of each publication.
//
// Every fetch takes a ticket from a per-publication counter and its result is
// installed only when no newer ticket has been installed and no invalidation
// happened since the ticket was issued. Readers therefore never see an older
// snapshot replace a newer one, whatever order the fetches complete in.
package threadcache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"forumline/internal/metrics"
	"forumline/internal/model"
)

// FetchFunc loads the flat snapshot for a publication.
type FetchFunc func(ctx context.Context, pubID string) ([]model.Comment, error)

// SnapshotStore is an optional second tier shared between processes.
type SnapshotStore interface {
	Load(ctx context.Context, pubID string) ([]model.Comment, time.Time, bool, error)
	Save(ctx context.Context, pubID string, comments []model.Comment, fetchedAt time.Time) error
	Drop(ctx context.Context, pubID string) error
}

type entry struct {
	comments  []model.Comment
	fetchedAt time.Time
	loaded    bool
	issued    uint64 // last ticket handed out
	installed uint64 // ticket of the snapshot in comments
	floor     uint64 // tickets at or below this predate an invalidation
}

// Cache is safe for concurrent use.
type Cache struct {
	fetch  FetchFunc
	tier   SnapshotStore
	maxAge time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// New builds a cache over fetch. tier may be nil. A zero maxAge keeps
// snapshots until they are invalidated.
func New(fetch FetchFunc, tier SnapshotStore, maxAge time.Duration) *Cache {
	return &Cache{
		fetch:   fetch,
		tier:    tier,
		maxAge:  maxAge,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

func (c *Cache) entry(pubID string) *entry {
	e, ok := c.entries[pubID]
	if !ok {
		e = &entry{}
		c.entries[pubID] = e
	}
	return e
}

func (c *Cache) fresh(e *entry) bool {
	if !e.loaded {
		return false
	}
	return c.maxAge <= 0 || c.now().Sub(e.fetchedAt) < c.maxAge
}

// Get returns the current snapshot, fetching it when absent or expired.
func (c *Cache) Get(ctx context.Context, pubID string) ([]model.Comment, error) {
	c.mu.Lock()
	e := c.entry(pubID)
	if c.fresh(e) {
		out := clone(e.comments)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	if c.tier != nil {
		if out, ok := c.loadTier(ctx, pubID); ok {
			return out, nil
		}
	}
	return c.Refresh(ctx, pubID)
}

// loadTier installs a snapshot from the second tier when the memory tier is
// still empty for pubID.
func (c *Cache) loadTier(ctx context.Context, pubID string) ([]model.Comment, bool) {
	c.mu.Lock()
	e := c.entry(pubID)
	e.issued++
	ticket := e.issued
	c.mu.Unlock()

	comments, fetchedAt, ok, err := c.tier.Load(ctx, pubID)
	if err != nil {
		slog.Warn("threadcache: snapshot tier load failed", "pub", pubID, "error", err)
		return nil, false
	}
	if !ok || (c.maxAge > 0 && c.now().Sub(fetchedAt) >= c.maxAge) {
		return nil, false
	}
	metrics.SnapshotFetches.WithLabelValues("redis").Inc()
	out, installed := c.install(pubID, ticket, comments, fetchedAt)
	return out, installed
}

// Refresh fetches a new snapshot regardless of what is cached. A failed
// fetch leaves the previous snapshot in place.
func (c *Cache) Refresh(ctx context.Context, pubID string) ([]model.Comment, error) {
	c.mu.Lock()
	e := c.entry(pubID)
	e.issued++
	ticket := e.issued
	c.mu.Unlock()

	comments, err := c.fetch(ctx, pubID)
	if err != nil {
		metrics.SnapshotFetches.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.SnapshotFetches.WithLabelValues("ok").Inc()
	if comments == nil {
		comments = []model.Comment{}
	}
	fetchedAt := c.now()
	out, installed := c.install(pubID, ticket, comments, fetchedAt)
	if installed && c.tier != nil {
		if err := c.tier.Save(ctx, pubID, comments, fetchedAt); err != nil {
			slog.Warn("threadcache: snapshot tier save failed", "pub", pubID, "error", err)
		}
	}
	return out, nil
}

// install stores comments under ticket if it is still the newest. When it
// is not, the newer installed snapshot is returned instead, or the fetched
// data uncached if an invalidation left nothing installed.
func (c *Cache) install(pubID string, ticket uint64, comments []model.Comment, fetchedAt time.Time) ([]model.Comment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(pubID)
	if ticket <= e.installed || ticket <= e.floor {
		metrics.StaleSnapshots.Inc()
		slog.Debug("threadcache: discarding stale snapshot", "pub", pubID, "ticket", ticket, "installed", e.installed)
		if e.loaded {
			return clone(e.comments), false
		}
		return clone(comments), false
	}
	e.comments = clone(comments)
	e.fetchedAt = fetchedAt
	e.installed = ticket
	e.loaded = true
	return clone(comments), true
}

// Peek returns the last installed snapshot without fetching.
func (c *Cache) Peek(pubID string) ([]model.Comment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[pubID]
	if !ok || !e.loaded {
		return nil, false
	}
	return clone(e.comments), true
}

// Invalidate drops the snapshot. Fetches already in flight cannot install
// their result afterwards.
func (c *Cache) Invalidate(ctx context.Context, pubID string) {
	c.mu.Lock()
	e := c.entry(pubID)
	e.issued++
	e.floor = e.issued
	e.comments = nil
	e.loaded = false
	c.mu.Unlock()

	if c.tier != nil {
		if err := c.tier.Drop(ctx, pubID); err != nil {
			slog.Warn("threadcache: snapshot tier drop failed", "pub", pubID, "error", err)
		}
	}
}

func clone(in []model.Comment) []model.Comment {
	out := make([]model.Comment, len(in))
	copy(out, in)
	return out
}
