package cmd

import (
	"context"
	"fmt"
	"time"

	"forumline/internal/ai"

	"github.com/spf13/cobra"
)

var summarizeDepth int

// summarizeCmd asks the configured model for a digest of a discussion.
var summarizeCmd = &cobra.Command{
	Use:   "summarize <pub-id>",
	Short: "Summarize a publication's discussion with OpenAI",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		summarizer, err := ai.NewOpenAI(ai.Config{APIKey: cfg.OpenAI.APIKey, Model: cfg.OpenAI.Model, BaseURL: cfg.OpenAI.BaseURL})
		if err != nil {
			return err
		}
		return withSession(3*time.Minute, func(ctx context.Context, s *session) error {
			v, err := s.forum.Thread(ctx, args[0], nil, summarizeDepth)
			if err != nil {
				return err
			}
			if v.Total == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No comments yet.")
				return nil
			}
			transcript := ai.Transcript(v.Nodes, s.forum.NameResolver(ctx))
			out, err := summarizer.SummarizeThread(ctx, v.Publication.Title, transcript, cfg.OpenAI.Language)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().IntVar(&summarizeDepth, "depth", 6, "maximum reply depth included in the prompt")
}
