package cmd

import (
	"context"
	"time"

	"forumline/internal/render"

	"github.com/spf13/cobra"
)

// feedCmd lists publications from followed subforums.
var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show publications from the subforums you follow",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(10*time.Second, func(ctx context.Context, s *session) error {
			items, err := s.forum.FollowedFeed(ctx)
			if err != nil {
				return err
			}
			return render.Feed(cmd.OutOrStdout(), items, time.Now())
		})
	},
}

func init() {
	rootCmd.AddCommand(feedCmd)
}
