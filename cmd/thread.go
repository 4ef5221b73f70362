package cmd

import (
	"context"
	"time"

	"forumline/internal/render"

	"github.com/spf13/cobra"
)

var (
	threadFrom  string
	threadDepth int
	threadOrder string
)

// threadCmd renders a publication's discussion as a tree.
var threadCmd = &cobra.Command{
	Use:   "thread <pub-id>",
	Short: "Show a publication's discussion, optionally continuing below a comment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if threadOrder != "" {
			appCfg.Thread.Order = threadOrder
		}
		depth := threadDepth
		if !cmd.Flags().Changed("depth") {
			depth = GetConfig().Thread.MaxDepth
		}
		return withSession(15*time.Second, func(ctx context.Context, s *session) error {
			v, err := s.forum.Thread(ctx, args[0], optionalID(threadFrom), depth)
			if err != nil {
				return err
			}
			return render.Thread(cmd.OutOrStdout(), v, render.Options{
				Now:     time.Now(),
				Names:   s.forum.NameResolver(ctx),
				Command: rootCmd.Name() + " thread",
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(threadCmd)
	threadCmd.Flags().StringVar(&threadFrom, "from", "", "comment id to root the tree at")
	threadCmd.Flags().IntVar(&threadDepth, "depth", 0, "maximum reply depth to expand (unset: thread.max_depth)")
	threadCmd.Flags().StringVar(&threadOrder, "order", "", "score or recent (default from thread.order)")
}
