// Package render writes discussion views as indented text.
package render

import (
	_ "embed"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"forumline/internal/forum"
	"forumline/internal/model"
	"forumline/internal/thread"

	"github.com/charmbracelet/lipgloss"
)

// Options tunes the output.
type Options struct {
	Now time.Time
	// Names maps author ids to display names; ids are shown when nil or empty.
	Names func(id string) string
	// Command prefixes continue hints.
	Command string
}

type comment struct {
	ID     string
	Author string
	Ago    string
	Score  int
	Text   string
}

type line struct {
	C      comment
	Indent string
	Hint   string
}

type page struct {
	Title    string
	Subforum string
	Author   string
	Ago      string
	Score    int
	Content  string
	Stale    bool
	Parent   *comment
	Anchor   *comment
	Lines    []line
}

//go:embed thread.tmpl
var threadTpl string

var compiled = template.Must(template.New("thread").Parse(threadTpl))

// Thread writes v as an indented tree. Truncated nodes with hidden replies
// get a hint naming the command that continues the discussion below them.
func Thread(w io.Writer, v *forum.ThreadView, opts Options) error {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Command == "" {
		opts.Command = "forumline thread"
	}
	p := page{
		Title:    v.Publication.Title,
		Subforum: v.Subforum.Name,
		Author:   opts.name(v.Publication.AuthorID),
		Ago:      RelativeTime(opts.Now, v.Publication.CreatedAt),
		Score:    v.Publication.Score,
		Content:  strings.TrimSpace(v.Publication.Content),
		Stale:    v.Stale,
	}
	if parent := v.Parent(); parent != nil {
		c := opts.comment(*parent, "")
		p.Parent = &c
	}
	if v.Anchor != nil {
		c := opts.comment(*v.Anchor, "> ")
		p.Anchor = &c
	}
	thread.Walk(v.Nodes, func(n *thread.Node) bool {
		indent := strings.Repeat("  ", n.Depth)
		l := line{C: opts.comment(n.Comment, indent+"  "), Indent: indent}
		if n.Truncated && n.Hidden > 0 {
			l.Hint = ContinueHint(opts.Command, v.Publication.ID, n)
		}
		p.Lines = append(p.Lines, l)
		return true
	})
	return compiled.Execute(w, p)
}

// ContinueHint is the command that re-roots the discussion so n's replies
// are shown. Top-level nodes re-root at themselves; their parent is the
// current view's anchor.
func ContinueHint(command, pubID string, n *thread.Node) string {
	from := n.Comment.ID
	if n.ContinueFrom != nil && n.Depth > 0 {
		from = *n.ContinueFrom
	}
	replies := "replies"
	if n.Hidden == 1 {
		replies = "reply"
	}
	return fmt.Sprintf("(%d more %s) continue: %s %s --from %s", n.Hidden, replies, command, pubID, from)
}

func (o Options) name(id string) string {
	if o.Names != nil {
		if n := o.Names(id); n != "" {
			return n
		}
	}
	return id
}

func (o Options) comment(c model.Comment, indent string) comment {
	return comment{
		ID:     c.ID,
		Author: o.name(c.AuthorID),
		Ago:    RelativeTime(o.Now, c.CreatedAt),
		Score:  c.Score,
		Text:   strings.ReplaceAll(strings.TrimSpace(c.Content), "\n", "\n"+indent),
	}
}

// Feed writes one line per feed item, newest first as given.
func Feed(w io.Writer, items []model.FeedItem, now time.Time) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "Nothing from followed subforums yet.")
		return err
	}
	for _, it := range items {
		pub := it.Publication
		if _, err := fmt.Fprintf(w, "%s %s  %s (%d points, %s) [%s]\n",
			accentMark(it.Accent), pub.SubforumID, pub.Title, pub.Score, RelativeTime(now, pub.CreatedAt), pub.ID); err != nil {
			return err
		}
	}
	return nil
}

// accentMark colours the subforum marker with its accent when one is set.
func accentMark(accent string) string {
	if !strings.HasPrefix(accent, "#") {
		return "#"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(accent)).Bold(true).Render("#")
}
