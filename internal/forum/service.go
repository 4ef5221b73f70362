// Package forum implements the forum operations on top of a storage.Store,
// keeping each publication's comment snapshot in a thread cache.
package forum

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"forumline/internal/metrics"
	"forumline/internal/model"
	"forumline/internal/storage"
	"forumline/internal/threadcache"
	"forumline/internal/vote"

	"github.com/google/uuid"
)

var (
	ErrForbidden      = errors.New("forum: not allowed for this user")
	ErrEmptyContent   = errors.New("forum: content is empty")
	ErrParentNotFound = errors.New("forum: parent comment not found in publication")
	ErrNoActor        = errors.New("forum: no acting user configured")
)

// ImageUploader stores a publication image and returns its public URL.
type ImageUploader interface {
	UploadImage(ctx context.Context, name string, r io.Reader) (string, error)
}

// Options configures a Service.
type Options struct {
	Actor          string // acting user id; identity is not verified
	Order          model.CommentOrder
	Snapshots      threadcache.SnapshotStore // optional second cache tier
	SnapshotMaxAge time.Duration
	Images         ImageUploader // optional
}

type Service struct {
	store  storage.Store
	cache  *threadcache.Cache
	images ImageUploader
	actor  string
	order  model.CommentOrder
	now    func() time.Time
	newID  func() string
}

func NewService(store storage.Store, opts Options) *Service {
	s := &Service{
		store:  store,
		images: opts.Images,
		actor:  strings.TrimSpace(opts.Actor),
		order:  opts.Order,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
	}
	if s.order == "" {
		s.order = model.OrderByScore
	}
	s.cache = threadcache.New(s.fetchSnapshot, opts.Snapshots, opts.SnapshotMaxAge)
	return s
}

func (s *Service) fetchSnapshot(ctx context.Context, pubID string) ([]model.Comment, error) {
	return s.store.Comments(ctx, pubID, nil, s.order)
}

// Actor returns the configured acting user id.
func (s *Service) Actor() string { return s.actor }

func (s *Service) requireActor() error {
	if s.actor == "" {
		return ErrNoActor
	}
	return nil
}

// isModerator reports whether the actor moderates subID.
func (s *Service) isModerator(ctx context.Context, subID string) (bool, error) {
	mods, err := s.store.Moderators(ctx, subID)
	if err != nil {
		return false, err
	}
	for _, m := range mods {
		if m == s.actor {
			return true, nil
		}
	}
	return false, nil
}

// mayRemove allows the author and the subforum's moderators.
func (s *Service) mayRemove(ctx context.Context, authorID, subID string) error {
	if err := s.requireActor(); err != nil {
		return err
	}
	if authorID == s.actor {
		return nil
	}
	ok, err := s.isModerator(ctx, subID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// Users

func (s *Service) UserName(ctx context.Context, id string) (string, error) {
	return s.store.UserName(ctx, id)
}

// SaveProfile records the actor's display name.
func (s *Service) SaveProfile(ctx context.Context, username, email string) error {
	if err := s.requireActor(); err != nil {
		return err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrEmptyContent
	}
	return s.store.UpsertUser(ctx, model.User{
		ID:        s.actor,
		Username:  username,
		Email:     strings.TrimSpace(email),
		CreatedAt: s.now(),
	})
}

// NameResolver returns a lookup that maps user ids to usernames, remembering
// answers. Unknown ids resolve to "".
func (s *Service) NameResolver(ctx context.Context) func(id string) string {
	seen := map[string]string{}
	return func(id string) string {
		if name, ok := seen[id]; ok {
			return name
		}
		name, err := s.store.UserName(ctx, id)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			slog.Debug("forum: username lookup failed", "id", id, "error", err)
		}
		seen[id] = name
		return name
	}
}

// Subforums

func (s *Service) Subforums(ctx context.Context) ([]model.Subforum, error) {
	return s.store.Subforums(ctx)
}

func (s *Service) Subforum(ctx context.Context, id string) (*model.Subforum, error) {
	return s.store.Subforum(ctx, id)
}

// CreateSubforum creates a subforum moderated by the actor.
func (s *Service) CreateSubforum(ctx context.Context, name, description, accent string) (*model.Subforum, error) {
	if err := s.requireActor(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyContent
	}
	sub := model.Subforum{
		ID:          s.newID(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Accent:      strings.TrimSpace(accent),
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateSubforum(ctx, sub); err != nil {
		return nil, err
	}
	if err := s.store.AddModerator(ctx, sub.ID, s.actor); err != nil {
		return nil, err
	}
	slog.Info("forum: subforum created", "id", sub.ID, "name", sub.Name)
	return &sub, nil
}

// DeleteSubforum removes a subforum; only its moderators may do so.
func (s *Service) DeleteSubforum(ctx context.Context, id string) error {
	if err := s.requireActor(); err != nil {
		return err
	}
	ok, err := s.isModerator(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return s.store.DeleteSubforum(ctx, id)
}

func (s *Service) Moderators(ctx context.Context, subID string) ([]string, error) {
	return s.store.Moderators(ctx, subID)
}

func (s *Service) Follow(ctx context.Context, subID string) error {
	if err := s.requireActor(); err != nil {
		return err
	}
	if _, err := s.store.Subforum(ctx, subID); err != nil {
		return err
	}
	return s.store.Follow(ctx, s.actor, subID)
}

func (s *Service) Unfollow(ctx context.Context, subID string) error {
	if err := s.requireActor(); err != nil {
		return err
	}
	return s.store.Unfollow(ctx, s.actor, subID)
}

func (s *Service) FollowedSubforums(ctx context.Context) ([]string, error) {
	if err := s.requireActor(); err != nil {
		return nil, err
	}
	return s.store.FollowedSubforums(ctx, s.actor)
}

// Publications

func (s *Service) Publications(ctx context.Context, subID string) ([]model.Publication, error) {
	return s.store.Publications(ctx, subID)
}

func (s *Service) Publication(ctx context.Context, id string) (*model.Publication, error) {
	return s.store.Publication(ctx, id)
}

// FollowedFeed lists publications of the actor's followed subforums, newest first.
func (s *Service) FollowedFeed(ctx context.Context) ([]model.FeedItem, error) {
	if err := s.requireActor(); err != nil {
		return nil, err
	}
	return s.store.FollowedFeed(ctx, s.actor)
}

// PublicationInput is a publication about to be submitted.
type PublicationInput struct {
	SubforumID string
	Title      string
	Content    string
	ImageURL   string    // already hosted image
	Image      io.Reader // uploaded first when set
	ImageName  string
}

// SubmitPublication uploads the optional image, then stores the publication.
func (s *Service) SubmitPublication(ctx context.Context, in PublicationInput) (*model.Publication, error) {
	if err := s.requireActor(); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("title: %w", ErrEmptyContent)
	}
	if _, err := s.store.Subforum(ctx, in.SubforumID); err != nil {
		return nil, fmt.Errorf("subforum %s: %w", in.SubforumID, err)
	}
	imgURL := strings.TrimSpace(in.ImageURL)
	if in.Image != nil {
		if s.images == nil {
			return nil, errors.New("forum: image upload is not configured")
		}
		url, err := s.images.UploadImage(ctx, in.ImageName, in.Image)
		if err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		imgURL = url
	}
	pub := model.Publication{
		ID:         s.newID(),
		SubforumID: in.SubforumID,
		AuthorID:   s.actor,
		Title:      title,
		Content:    in.Content,
		ImageURL:   imgURL,
		CreatedAt:  s.now(),
	}
	if err := s.store.CreatePublication(ctx, pub); err != nil {
		return nil, err
	}
	return &pub, nil
}

// DeletePublication removes a publication and its discussion. Allowed for
// the author and the subforum's moderators.
func (s *Service) DeletePublication(ctx context.Context, id string) error {
	pub, err := s.store.Publication(ctx, id)
	if err != nil {
		return err
	}
	if err := s.mayRemove(ctx, pub.AuthorID, pub.SubforumID); err != nil {
		return err
	}
	if err := s.store.DeletePublication(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)
	return nil
}

// ImportDiscussion stores a publication together with an already-built
// comment set, parents before replies.
func (s *Service) ImportDiscussion(ctx context.Context, pub model.Publication, comments []model.Comment) error {
	if _, err := s.store.Subforum(ctx, pub.SubforumID); err != nil {
		return fmt.Errorf("subforum %s: %w", pub.SubforumID, err)
	}
	if err := s.store.CreatePublication(ctx, pub); err != nil {
		return err
	}
	for _, c := range comments {
		c.PublicationID = pub.ID
		if err := s.store.CreateComment(ctx, c); err != nil {
			return fmt.Errorf("import comment %s: %w", c.ID, err)
		}
	}
	s.cache.Invalidate(ctx, pub.ID)
	slog.Info("forum: discussion imported", "pub", pub.ID, "comments", len(comments))
	return nil
}

// Comments

// FetchComments reads a publication's comments straight from the store. A
// non-nil parentID restricts the result to direct replies.
func (s *Service) FetchComments(ctx context.Context, pubID string, parentID *string, order model.CommentOrder) ([]model.Comment, error) {
	return s.store.Comments(ctx, pubID, parentID, order)
}

func (s *Service) Comment(ctx context.Context, id string) (*model.Comment, error) {
	return s.store.Comment(ctx, id)
}

// SubmitComment stores a comment and invalidates the publication's snapshot.
func (s *Service) SubmitComment(ctx context.Context, pubID, content string, parentID *string) (*model.Comment, error) {
	if err := s.requireActor(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if _, err := s.store.Publication(ctx, pubID); err != nil {
		return nil, fmt.Errorf("publication %s: %w", pubID, err)
	}
	if parentID != nil {
		parent, err := s.store.Comment(ctx, *parentID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrParentNotFound
		}
		if err != nil {
			return nil, err
		}
		if parent.PublicationID != pubID {
			return nil, ErrParentNotFound
		}
	}
	c := model.Comment{
		ID:            s.newID(),
		PublicationID: pubID,
		AuthorID:      s.actor,
		Content:       content,
		CreatedAt:     s.now(),
		ParentID:      parentID,
	}
	if err := s.store.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	metrics.CommentsSubmitted.Inc()
	s.cache.Invalidate(ctx, pubID)
	return &c, nil
}

// DeleteComment removes a comment with all of its replies, returning how
// many comments were deleted.
func (s *Service) DeleteComment(ctx context.Context, id string) (int64, error) {
	c, err := s.store.Comment(ctx, id)
	if err != nil {
		return 0, err
	}
	pub, err := s.store.Publication(ctx, c.PublicationID)
	if err != nil {
		return 0, err
	}
	if err := s.mayRemove(ctx, c.AuthorID, pub.SubforumID); err != nil {
		return 0, err
	}
	n, err := s.store.DeleteCommentTree(ctx, id)
	if err != nil {
		return 0, err
	}
	s.cache.Invalidate(ctx, c.PublicationID)
	slog.Info("forum: comment deleted", "id", id, "pub", c.PublicationID, "removed", n)
	return n, nil
}

// Votes

// VoteComment applies the actor's vote on a comment and returns the outcome.
func (s *Service) VoteComment(ctx context.Context, id string, dir vote.Direction) (storage.VoteResult, error) {
	if err := s.requireActor(); err != nil {
		return storage.VoteResult{}, err
	}
	c, err := s.store.Comment(ctx, id)
	if err != nil {
		return storage.VoteResult{}, err
	}
	res, err := s.store.ApplyVote(ctx, storage.CommentTarget, s.actor, id, dir)
	if err != nil {
		return res, err
	}
	metrics.Votes.WithLabelValues(storage.CommentTarget.Name).Inc()
	s.cache.Invalidate(ctx, c.PublicationID)
	return res, nil
}

// VotePublication applies the actor's vote on a publication.
func (s *Service) VotePublication(ctx context.Context, id string, dir vote.Direction) (storage.VoteResult, error) {
	if err := s.requireActor(); err != nil {
		return storage.VoteResult{}, err
	}
	res, err := s.store.ApplyVote(ctx, storage.PublicationTarget, s.actor, id, dir)
	if err != nil {
		return res, err
	}
	metrics.Votes.WithLabelValues(storage.PublicationTarget.Name).Inc()
	return res, nil
}

func (s *Service) CommentVote(ctx context.Context, id string) (vote.State, error) {
	if err := s.requireActor(); err != nil {
		return vote.None, err
	}
	return s.store.VoteState(ctx, storage.CommentTarget, s.actor, id)
}

func (s *Service) PublicationVote(ctx context.Context, id string) (vote.State, error) {
	if err := s.requireActor(); err != nil {
		return vote.None, err
	}
	return s.store.VoteState(ctx, storage.PublicationTarget, s.actor, id)
}

// Snapshots

// Snapshot returns the cached flat comment set for a publication.
func (s *Service) Snapshot(ctx context.Context, pubID string) ([]model.Comment, error) {
	return s.cache.Get(ctx, pubID)
}

// Refresh refetches a publication's snapshot.
func (s *Service) Refresh(ctx context.Context, pubID string) ([]model.Comment, error) {
	return s.cache.Refresh(ctx, pubID)
}

// LastSnapshot returns the last installed snapshot without fetching.
func (s *Service) LastSnapshot(pubID string) ([]model.Comment, bool) {
	return s.cache.Peek(pubID)
}
