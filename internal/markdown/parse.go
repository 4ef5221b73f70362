// Package markdown reads publication drafts: Markdown with optional YAML
// frontmatter naming the title, the target subforum and an image.
package markdown

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Meta is the frontmatter understood by `pub create --file`.
type Meta struct {
	Title    string `yaml:"title"`
	Subforum string `yaml:"sub"`
	Image    string `yaml:"image"` // local path to upload, or an http(s) URL kept as is
}

// Document is a parsed draft.
type Document struct {
	Meta Meta
	// Extra keeps every frontmatter key, including the ones mapped to Meta.
	Extra map[string]any
	Body  string
}

// HasFrontmatter reports whether the draft started with a frontmatter block.
func (d Document) HasFrontmatter() bool {
	return len(d.Extra) > 0
}

// ParseFile reads a Markdown file from disk.
func ParseFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse splits r into frontmatter and body. Frontmatter sits between two
// lines containing only "---" at the very top of the input.
func Parse(r io.Reader) (Document, error) {
	br := bufio.NewReader(r)
	doc := Document{Extra: map[string]any{}}

	peek, err := br.Peek(3)
	if err != nil && !errors.Is(err, io.EOF) {
		return doc, err
	}
	if string(peek) == "---" {
		fm, err := readFrontmatter(br)
		if err != nil {
			return doc, err
		}
		if err := yaml.Unmarshal([]byte(fm), &doc.Extra); err != nil {
			return doc, fmt.Errorf("frontmatter: %w", err)
		}
		if err := yaml.Unmarshal([]byte(fm), &doc.Meta); err != nil {
			return doc, fmt.Errorf("frontmatter: %w", err)
		}
		if doc.Extra == nil {
			doc.Extra = map[string]any{}
		}
	}

	body, err := io.ReadAll(br)
	if err != nil {
		return doc, err
	}
	doc.Body = string(body)
	if doc.Meta.Title == "" {
		doc.Meta.Title = headingTitle(doc.Body)
	}
	return doc, nil
}

func readFrontmatter(br *bufio.Reader) (string, error) {
	// opening delimiter
	if _, err := br.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	var fm strings.Builder
	for {
		l, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		if strings.TrimSpace(l) == "---" {
			return fm.String(), nil
		}
		fm.WriteString(l)
		if errors.Is(err, io.EOF) {
			return fm.String(), nil
		}
	}
}

// headingTitle returns the text of the first level-one heading, if any.
func headingTitle(body string) string {
	for _, l := range strings.Split(body, "\n") {
		l = strings.TrimSpace(l)
		if strings.HasPrefix(l, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(l, "# "))
		}
	}
	return ""
}
