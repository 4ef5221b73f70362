package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"forumline/internal/hackernews"

	"github.com/spf13/cobra"
)

var importSub string

// importCmd groups importers from other forums.
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import discussions from other sites",
}

var importHNCmd = &cobra.Command{
	Use:   "hn <item-id>",
	Short: "Import a Hacker News story and its comment tree into a subforum",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid item id %q", args[0])
		}
		if importSub == "" {
			return fmt.Errorf("--sub is required")
		}
		cfg := GetConfig()
		return withSession(5*time.Minute, func(ctx context.Context, s *session) error {
			hn := hackernews.NewClient(cfg.HackerNews.BaseAPI)
			d, err := hn.Discussion(ctx, id, cfg.HackerNews.MaxComments)
			if err != nil {
				return err
			}
			pub, comments := hackernews.ToForum(d, importSub)
			if err := s.forum.ImportDiscussion(ctx, pub, comments); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %q with %d comments as %s\n", pub.Title, len(comments), pub.ID)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importHNCmd)
	importHNCmd.Flags().StringVar(&importSub, "sub", "", "target subforum id")
}
