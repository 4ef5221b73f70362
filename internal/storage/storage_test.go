package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"forumline/internal/model"
	"forumline/internal/vote"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := Migrate(s.DB(), "sqlite", "../../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func seedPublication(t *testing.T, s *SQLite) {
	t.Helper()
	ctx := context.Background()
	if err := s.CreateSubforum(ctx, model.Subforum{ID: "s1", Name: "go", Accent: "#00add8", CreatedAt: base}); err != nil {
		t.Fatalf("create subforum: %v", err)
	}
	if err := s.CreatePublication(ctx, model.Publication{ID: "p1", SubforumID: "s1", AuthorID: "u1", Title: "hello", CreatedAt: base}); err != nil {
		t.Fatalf("create publication: %v", err)
	}
}

func addComment(t *testing.T, s *SQLite, id, parent string, score int, at time.Time) {
	t.Helper()
	c := model.Comment{ID: id, PublicationID: "p1", AuthorID: "u1", Content: "c " + id, CreatedAt: at, Score: score, ParentID: model.StringPtr(parent)}
	if err := s.CreateComment(context.Background(), c); err != nil {
		t.Fatalf("create comment %s: %v", id, err)
	}
}

func ids(cs []model.Comment) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCommentsOrderAndFilter(t *testing.T) {
	s := newTestStore(t)
	seedPublication(t, s)
	addComment(t, s, "a", "", 1, base)
	addComment(t, s, "b", "", 5, base.Add(time.Minute))
	addComment(t, s, "c", "a", 3, base.Add(2*time.Minute))
	ctx := context.Background()

	got, err := s.Comments(ctx, "p1", nil, model.OrderByScore)
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	if want := []string{"b", "c", "a"}; !equal(ids(got), want) {
		t.Fatalf("by score = %v, want %v", ids(got), want)
	}

	got, err = s.Comments(ctx, "p1", nil, model.OrderByRecent)
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	if want := []string{"c", "b", "a"}; !equal(ids(got), want) {
		t.Fatalf("by recent = %v, want %v", ids(got), want)
	}

	parent := "a"
	got, err = s.Comments(ctx, "p1", &parent, model.OrderByScore)
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c" || got[0].ParentID == nil || *got[0].ParentID != "a" {
		t.Fatalf("replies of a = %+v", got)
	}

	got, err = s.Comments(ctx, "missing", nil, model.OrderByScore)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("unknown publication: %v %v", got, err)
	}
}

func TestDeleteCommentTreeRemovesAllDescendants(t *testing.T) {
	s := newTestStore(t)
	seedPublication(t, s)
	addComment(t, s, "root", "", 0, base)
	addComment(t, s, "child", "root", 0, base)
	addComment(t, s, "grandchild", "child", 0, base)
	addComment(t, s, "other", "", 0, base)
	ctx := context.Background()

	n, err := s.DeleteCommentTree(ctx, "root")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 3 {
		t.Fatalf("deleted %d rows, want 3", n)
	}
	left, _ := s.Comments(ctx, "p1", nil, model.OrderByScore)
	if want := []string{"other"}; !equal(ids(left), want) {
		t.Fatalf("remaining = %v", ids(left))
	}
	if _, err := s.DeleteCommentTree(ctx, "root"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestDeletePublicationRemovesComments(t *testing.T) {
	s := newTestStore(t)
	seedPublication(t, s)
	addComment(t, s, "a", "", 0, base)
	ctx := context.Background()
	if err := s.DeletePublication(ctx, "p1"); err != nil {
		t.Fatalf("delete publication: %v", err)
	}
	if _, err := s.Comment(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("comment survived: %v", err)
	}
	if err := s.DeletePublication(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestApplyVote(t *testing.T) {
	s := newTestStore(t)
	seedPublication(t, s)
	addComment(t, s, "a", "", 10, base)
	ctx := context.Background()

	steps := []struct {
		cast  vote.Direction
		state vote.State
		score int
	}{
		{vote.Upvote, vote.Up, 11},
		{vote.Downvote, vote.Down, 9},
		{vote.Downvote, vote.None, 10},
		{vote.Downvote, vote.Down, 9},
	}
	for i, st := range steps {
		res, err := s.ApplyVote(ctx, CommentTarget, "u2", "a", st.cast)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if res.Current != st.state || res.Score != st.score {
			t.Fatalf("step %d: got %+v, want state %v score %d", i, res, st.state, st.score)
		}
		stored, err := s.VoteState(ctx, CommentTarget, "u2", "a")
		if err != nil || stored != st.state {
			t.Fatalf("step %d: stored state %v (%v)", i, stored, err)
		}
		c, _ := s.Comment(ctx, "a")
		if c.Score != st.score {
			t.Fatalf("step %d: stored score %d", i, c.Score)
		}
	}

	if _, err := s.ApplyVote(ctx, PublicationTarget, "u2", "nope", vote.Upvote); !errors.Is(err, ErrNotFound) {
		t.Fatalf("vote on missing item err = %v", err)
	}
	res, err := s.ApplyVote(ctx, PublicationTarget, "u2", "p1", vote.Upvote)
	if err != nil || res.Score != 1 {
		t.Fatalf("publication vote = %+v, %v", res, err)
	}
}

func TestFollowedFeed(t *testing.T) {
	s := newTestStore(t)
	seedPublication(t, s)
	ctx := context.Background()
	if err := s.CreateSubforum(ctx, model.Subforum{ID: "s2", Name: "rust", CreatedAt: base}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePublication(ctx, model.Publication{ID: "p2", SubforumID: "s2", AuthorID: "u1", Title: "other", CreatedAt: base}); err != nil {
		t.Fatal(err)
	}
	if err := s.Follow(ctx, "u9", "s1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Follow(ctx, "u9", "s1"); err != nil {
		t.Fatalf("repeat follow: %v", err)
	}
	feed, err := s.FollowedFeed(ctx, "u9")
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(feed) != 1 || feed[0].Publication.ID != "p1" || feed[0].Accent != "#00add8" {
		t.Fatalf("feed = %+v", feed)
	}
	if err := s.Unfollow(ctx, "u9", "s1"); err != nil {
		t.Fatal(err)
	}
	feed, _ = s.FollowedFeed(ctx, "u9")
	if len(feed) != 0 {
		t.Fatalf("feed after unfollow = %+v", feed)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "x", 1); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("err = %v", err)
	}
}
