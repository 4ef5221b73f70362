package markdown

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseWithFrontmatter(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "post.md")
	content := "" +
		"---\n" +
		"title: \"Why generics took so long\"\n" +
		"sub: 4f1c\n" +
		"image: ./cover.png\n" +
		"tags: [go, history]\n" +
		"---\n\n" +
		"## Background\n\nBody paragraph here.\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	doc, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	if !doc.HasFrontmatter() {
		t.Fatalf("expected frontmatter, got empty")
	}
	if doc.Meta.Title != "Why generics took so long" || doc.Meta.Subforum != "4f1c" || doc.Meta.Image != "./cover.png" {
		t.Errorf("meta = %+v", doc.Meta)
	}
	if _, ok := doc.Extra["tags"]; !ok {
		t.Errorf("missing tags in frontmatter")
	}
	if !strings.Contains(doc.Body, "## Background") {
		t.Errorf("body missing heading; got: %q", doc.Body)
	}
	if strings.Contains(doc.Body, "title:") {
		t.Errorf("frontmatter leaked into body: %q", doc.Body)
	}
}

func TestParseWithoutFrontmatter(t *testing.T) {
	body := "# Hello\n\nNo frontmatter here.\n"
	doc, err := Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if doc.HasFrontmatter() {
		t.Fatalf("expected empty frontmatter, got: %+v", doc.Extra)
	}
	if doc.Body != body {
		t.Errorf("body mismatch.\nwant: %q\n got: %q", body, doc.Body)
	}
	if doc.Meta.Title != "Hello" {
		t.Errorf("title from heading = %q", doc.Meta.Title)
	}
}

func TestParseInvalidFrontmatter(t *testing.T) {
	if _, err := Parse(strings.NewReader("---\ntitle: [unclosed\n---\nbody\n")); err == nil {
		t.Fatal("expected yaml error")
	}
}
