package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"forumline/internal/thread"

	openai "github.com/sashabaranov/go-openai"
)

// Summarizer condenses a discussion into a short digest.
type Summarizer interface {
	SummarizeThread(ctx context.Context, title, transcript, language string) (string, error)
}

// OpenAIClient implements Summarizer using OpenAI Chat Completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string // optional
}

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("openai: api key is not configured")

func NewOpenAI(cfg Config) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	var c *openai.Client
	if cfg.BaseURL != "" {
		cc := openai.DefaultConfig(cfg.APIKey)
		cc.BaseURL = cfg.BaseURL
		c = openai.NewClientWithConfig(cc)
	} else {
		c = openai.NewClient(cfg.APIKey)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{client: c, model: model}, nil
}

// maxTranscript bounds the prompt size in runes.
const maxTranscript = 12000

func (o *OpenAIClient) SummarizeThread(ctx context.Context, title, transcript, language string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", nil
	}
	if r := []rune(transcript); len(r) > maxTranscript {
		transcript = string(r[:maxTranscript])
	}

	sys := fmt.Sprintf(`
		You summarize forum discussions. Write in %s, 2 to 4 sentences.
		Name the main positions taken and where the participants agree or disagree.
		Plain text only, no lists, no links.
		`, langOrDefault(language))
	user := fmt.Sprintf("Publication: %s\nDiscussion (indentation shows reply depth):\n%s", title, transcript)
	out, err := o.create(ctx, sys, user)
	if err != nil {
		slog.Error("openai: summarize thread error", "err", err)
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (o *OpenAIClient) create(ctx context.Context, system, user string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.4,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcript flattens rendered nodes into an indented plain-text discussion.
func Transcript(nodes []*thread.Node, name func(id string) string) string {
	b := &strings.Builder{}
	thread.Walk(nodes, func(n *thread.Node) bool {
		author := n.Comment.AuthorID
		if name != nil {
			if v := name(author); v != "" {
				author = v
			}
		}
		text := strings.Join(strings.Fields(n.Comment.Content), " ")
		fmt.Fprintf(b, "%s- %s (%+d): %s\n", strings.Repeat("  ", n.Depth), author, n.Comment.Score, text)
		return true
	})
	return b.String()
}

func langOrDefault(lang string) string {
	l := strings.TrimSpace(lang)
	if l == "" {
		return "English"
	}
	return l
}
