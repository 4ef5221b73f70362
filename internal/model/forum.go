package model

import "time"

// User is the public profile of a forum member.
type User struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	ProfilePic string    `json:"profile_pic"`
	CreatedAt  time.Time `json:"created_at"`
}

// Subforum groups publications under a topic.
type Subforum struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Accent      string    `json:"accent"` // hex colour, e.g. "#3498db"
	CreatedAt   time.Time `json:"created_at"`
}

// Publication is a top-level post within a subforum.
type Publication struct {
	ID         string    `json:"id"`
	SubforumID string    `json:"sub_id"`
	AuthorID   string    `json:"user_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Score      int       `json:"score"`
	ImageURL   string    `json:"img_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// FeedItem is a publication decorated with its subforum accent.
type FeedItem struct {
	Publication Publication `json:"pub"`
	Accent      string      `json:"accent"`
}

// Comment is one row of a publication's discussion. ParentID is nil for
// comments attached directly to the publication.
type Comment struct {
	ID            string    `json:"id"`
	PublicationID string    `json:"pub_id"`
	AuthorID      string    `json:"user_id"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
	Score         int       `json:"score"`
	ParentID      *string   `json:"parent_comment,omitempty"`
}

// IsTopLevel reports whether the comment hangs directly off the publication.
func (c Comment) IsTopLevel() bool {
	return c.ParentID == nil
}

// CommentOrder selects the ordering the store applies to a fetched snapshot.
type CommentOrder string

const (
	OrderByScore  CommentOrder = "score"
	OrderByRecent CommentOrder = "recent"
)

// ParseCommentOrder maps user input to a CommentOrder, defaulting to score.
func ParseCommentOrder(s string) CommentOrder {
	switch CommentOrder(s) {
	case OrderByRecent, "new", "created_at":
		return OrderByRecent
	default:
		return OrderByScore
	}
}

// StringPtr returns a pointer to s, or nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
