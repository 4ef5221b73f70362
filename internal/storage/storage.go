// Package storage provides the relational store behind the forum (PostgreSQL
// or SQLite) and the Redis snapshot tier used by the thread cache.
package storage

import (
	"context"
	"errors"
	"fmt"

	"forumline/internal/model"
	"forumline/internal/vote"
)

var (
	// ErrNotFound is returned when a single-row lookup matches nothing.
	ErrNotFound = errors.New("storage: not found")
	// ErrUnknownDriver is returned by Open for unsupported database drivers.
	ErrUnknownDriver = errors.New("storage: unknown database driver")
)

// Target names the tables involved in voting on one kind of item.
type Target struct {
	Name      string // used in logs and metrics
	Table     string
	VoteTable string
	Column    string // item column in VoteTable
}

var (
	CommentTarget     = Target{Name: "comment", Table: "comments", VoteTable: "comment_votes", Column: "comment_id"}
	PublicationTarget = Target{Name: "publication", Table: "publications", VoteTable: "publication_votes", Column: "pub_id"}
)

// VoteResult is the outcome of an applied vote.
type VoteResult struct {
	Previous vote.State
	Current  vote.State
	Score    int
}

// Store is every data-access operation the forum needs. Implementations must
// be safe for concurrent use.
type Store interface {
	UserName(ctx context.Context, id string) (string, error)
	UpsertUser(ctx context.Context, u model.User) error

	Subforums(ctx context.Context) ([]model.Subforum, error)
	Subforum(ctx context.Context, id string) (*model.Subforum, error)
	CreateSubforum(ctx context.Context, s model.Subforum) error
	DeleteSubforum(ctx context.Context, id string) error
	Moderators(ctx context.Context, subID string) ([]string, error)
	AddModerator(ctx context.Context, subID, userID string) error
	Follow(ctx context.Context, userID, subID string) error
	Unfollow(ctx context.Context, userID, subID string) error
	FollowedSubforums(ctx context.Context, userID string) ([]string, error)

	Publications(ctx context.Context, subID string) ([]model.Publication, error)
	Publication(ctx context.Context, id string) (*model.Publication, error)
	FollowedFeed(ctx context.Context, userID string) ([]model.FeedItem, error)
	CreatePublication(ctx context.Context, p model.Publication) error
	// DeletePublication removes the publication's comments, then the publication.
	DeletePublication(ctx context.Context, id string) error

	// Comments returns the flat snapshot for a publication. A non-nil parentID
	// restricts it to direct replies of that comment.
	Comments(ctx context.Context, pubID string, parentID *string, order model.CommentOrder) ([]model.Comment, error)
	Comment(ctx context.Context, id string) (*model.Comment, error)
	CreateComment(ctx context.Context, c model.Comment) error
	// DeleteCommentTree removes a comment and every descendant, returning the
	// number of rows deleted.
	DeleteCommentTree(ctx context.Context, id string) (int64, error)

	VoteState(ctx context.Context, t Target, userID, itemID string) (vote.State, error)
	// ApplyVote reads the user's vote and the item score, applies the cast and
	// persists both in one transaction.
	ApplyVote(ctx context.Context, t Target, userID, itemID string, cast vote.Direction) (VoteResult, error)

	Close() error
}

// Open returns the store for driver ("postgres" or "sqlite").
func Open(ctx context.Context, driver, dsn string, maxConns int) (Store, error) {
	switch driver {
	case "postgres":
		return NewPostgres(ctx, dsn, maxConns)
	case "sqlite":
		return NewSQLite(dsn)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComment(r rowScanner) (model.Comment, error) {
	var c model.Comment
	err := r.Scan(&c.ID, &c.PublicationID, &c.AuthorID, &c.Content, &c.CreatedAt, &c.Score, &c.ParentID)
	return c, err
}

func scanPublication(r rowScanner) (model.Publication, error) {
	var p model.Publication
	var img *string
	err := r.Scan(&p.ID, &p.SubforumID, &p.AuthorID, &p.Title, &p.Content, &p.Score, &img, &p.CreatedAt)
	if img != nil {
		p.ImageURL = *img
	}
	return p, err
}

func scanSubforum(r rowScanner) (model.Subforum, error) {
	var s model.Subforum
	err := r.Scan(&s.ID, &s.Name, &s.Description, &s.Accent, &s.CreatedAt)
	return s, err
}

func commentOrderClause(order model.CommentOrder) string {
	if order == model.OrderByRecent {
		return "ORDER BY created_at DESC, id ASC"
	}
	return "ORDER BY score DESC, created_at ASC, id ASC"
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
