package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"forumline/internal/model"
	"forumline/internal/thread"
)

func TestNewOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAI(Config{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}

func TestTranscript(t *testing.T) {
	parent := "a"
	nodes := thread.Render([]model.Comment{
		{ID: "a", AuthorID: "u1", Content: "Generics\nare  fine", Score: 3},
		{ID: "b", AuthorID: "u2", Content: "disagree", Score: -1, ParentID: &parent},
	}, nil, 3)
	got := Transcript(nodes, func(id string) string {
		if id == "u1" {
			return "ada"
		}
		return ""
	})
	want := "- ada (+3): Generics are fine\n  - u2 (-1): disagree\n"
	if got != want {
		t.Fatalf("transcript =\n%q\nwant\n%q", got, want)
	}
}

func TestSummarizeThread(t *testing.T) {
	var gotModel, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		if len(req.Messages) == 2 {
			gotUser = req.Messages[1].Content
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Everyone agrees.  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAI(Config{APIKey: "k", Model: "test-model", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.SummarizeThread(context.Background(), "Generics", "- ada: fine\n", "English")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if out != "Everyone agrees." {
		t.Fatalf("summary = %q", out)
	}
	if gotModel != "test-model" || !strings.Contains(gotUser, "Publication: Generics") {
		t.Fatalf("model=%q user=%q", gotModel, gotUser)
	}

	if out, err := c.SummarizeThread(context.Background(), "Empty", "  ", ""); err != nil || out != "" {
		t.Fatalf("empty transcript = %q %v", out, err)
	}
}
