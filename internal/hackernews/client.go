package hackernews

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"forumline/internal/model"

	"github.com/sourcegraph/conc/iter"
)

// Client is a minimal Hacker News API client.
// Docs: https://github.com/HackerNews/API
type Client struct {
	baseAPI string
	client  *http.Client
	workers int
}

// NewClient creates a new Hacker News client. baseAPI should be something like
// "https://hacker-news.firebaseio.com/v0". If empty, it defaults to the v0 endpoint.
func NewClient(baseAPI string) *Client {
	if strings.TrimSpace(baseAPI) == "" {
		baseAPI = "https://hacker-news.firebaseio.com/v0"
	}
	return &Client{
		baseAPI: strings.TrimRight(baseAPI, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		workers: 8,
	}
}

// hnItem mirrors the subset of HN item fields we care about.
type hnItem struct {
	ID      int    `json:"id"`
	Type    string `json:"type"` // story, comment, job, poll, ...
	By      string `json:"by"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Text    string `json:"text"`
	Time    int64  `json:"time"`
	Kids    []int  `json:"kids"`
	Parent  int    `json:"parent"`
	Score   int    `json:"score"`
	Deleted bool   `json:"deleted"`
	Dead    bool   `json:"dead"`
}

// Story is the root of an imported discussion.
type Story struct {
	ID    int
	By    string
	Title string
	URL   string
	Text  string
	Score int
	Time  time.Time
}

// Comment is one reply. Parent is the story id for top-level comments.
type Comment struct {
	ID     int
	Parent int
	By     string
	Text   string
	Time   time.Time
}

// Discussion is a story and its comments, parents before replies and
// siblings in HN's display order.
type Discussion struct {
	Story    Story
	Comments []Comment
}

func (c *Client) item(ctx context.Context, id int) (hnItem, error) {
	var it hnItem
	endpoint := fmt.Sprintf("%s/item/%d.json", c.baseAPI, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return it, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return it, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return it, fmt.Errorf("hackernews: item %d status %d", id, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&it); err != nil {
		return it, err
	}
	if it.ID == 0 {
		return it, fmt.Errorf("hackernews: item %d not found", id)
	}
	return it, nil
}

// Discussion fetches a story and walks its comment tree level by level,
// stopping once maxComments comments are collected (0 means no limit).
// Deleted, dead and unreachable comments are skipped with their replies.
func (c *Client) Discussion(ctx context.Context, storyID, maxComments int) (*Discussion, error) {
	root, err := c.item(ctx, storyID)
	if err != nil {
		return nil, err
	}
	d := &Discussion{Story: Story{
		ID:    root.ID,
		By:    root.By,
		Title: root.Title,
		URL:   strings.TrimSpace(root.URL),
		Text:  stripHTML(root.Text),
		Score: root.Score,
		Time:  time.Unix(root.Time, 0).UTC(),
	}}

	level := root.Kids
	for depth := 0; len(level) > 0; depth++ {
		if maxComments > 0 {
			if left := maxComments - len(d.Comments); left <= 0 {
				break
			} else if len(level) > left {
				level = level[:left]
			}
		}
		items := c.items(ctx, level)
		var next []int
		kept := 0
		for _, it := range items {
			if it == nil || it.Deleted || it.Dead {
				continue
			}
			d.Comments = append(d.Comments, Comment{
				ID:     it.ID,
				Parent: it.Parent,
				By:     it.By,
				Text:   stripHTML(it.Text),
				Time:   time.Unix(it.Time, 0).UTC(),
			})
			next = append(next, it.Kids...)
			kept++
		}
		slog.Info("hackernews: discussion level fetched", "story", storyID, "depth", depth, "requested", len(level), "kept", kept)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		level = next
	}
	return d, nil
}

// items resolves ids concurrently, preserving order. Failed lookups are nil.
func (c *Client) items(ctx context.Context, ids []int) []*hnItem {
	mapper := iter.Mapper[int, *hnItem]{MaxGoroutines: c.workers}
	return mapper.Map(ids, func(id *int) *hnItem {
		// Per-item timeout to avoid hanging
		ictx, cancel := context.WithTimeout(ctx, 8*time.Second)
		defer cancel()
		it, err := c.item(ictx, *id)
		if err != nil {
			slog.Warn("hackernews: item fetch failed", "id", *id, "error", err)
			return nil
		}
		return &it
	})
}

// ToForum maps a discussion onto a publication in subID and its comments.
// Ids are derived from HN ids so repeated imports collide instead of
// duplicating.
func ToForum(d *Discussion, subID string) (model.Publication, []model.Comment) {
	pubID := "hn-" + strconv.Itoa(d.Story.ID)
	content := d.Story.Text
	if d.Story.URL != "" {
		content = strings.TrimSpace(d.Story.URL + "\n\n" + content)
	}
	pub := model.Publication{
		ID:         pubID,
		SubforumID: subID,
		AuthorID:   "hn:" + d.Story.By,
		Title:      d.Story.Title,
		Content:    content,
		Score:      d.Story.Score,
		CreatedAt:  d.Story.Time,
	}
	comments := make([]model.Comment, 0, len(d.Comments))
	for _, hc := range d.Comments {
		c := model.Comment{
			ID:            "hn-" + strconv.Itoa(hc.ID),
			PublicationID: pubID,
			AuthorID:      "hn:" + hc.By,
			Content:       hc.Text,
			CreatedAt:     hc.Time,
		}
		if hc.Parent != d.Story.ID {
			parent := "hn-" + strconv.Itoa(hc.Parent)
			c.ParentID = &parent
		}
		comments = append(comments, c)
	}
	return pub, comments
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`) // best-effort removal

func stripHTML(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	// HN separates paragraphs with <p>.
	s = strings.ReplaceAll(s, "<p>", "\n\n")
	s = htmlTagRe.ReplaceAllString(s, "")
	replacer := strings.NewReplacer(
		"&quot;", "\"",
		"&#x27;", "'",
		"&#x2F;", "/",
		"&apos;", "'",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
	)
	return strings.TrimSpace(replacer.Replace(s))
}
