package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"forumline/internal/model"
	"forumline/internal/render"

	"github.com/spf13/cobra"
)

var (
	commentParent string
	commentOrder  string
)

// commentCmd groups comment subcommands.
var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Post, list and delete comments",
}

var commentAddCmd = &cobra.Command{
	Use:   "add <pub-id> <text...>",
	Short: "Comment on a publication, or reply with --parent",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(10*time.Second, func(ctx context.Context, s *session) error {
			c, err := s.forum.SubmitComment(ctx, args[0], strings.Join(args[1:], " "), optionalID(commentParent))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "comment %s posted\n", c.ID)
			return nil
		})
	},
}

var commentListCmd = &cobra.Command{
	Use:   "list <pub-id>",
	Short: "List comments as stored, optionally only replies to --parent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(10*time.Second, func(ctx context.Context, s *session) error {
			comments, err := s.forum.FetchComments(ctx, args[0], optionalID(commentParent), model.ParseCommentOrder(commentOrder))
			if err != nil {
				return err
			}
			if len(comments) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No comments yet.")
				return nil
			}
			now := time.Now()
			name := s.forum.NameResolver(ctx)
			for _, c := range comments {
				author := name(c.AuthorID)
				if author == "" {
					author = c.AuthorID
				}
				parent := "-"
				if c.ParentID != nil {
					parent = *c.ParentID
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] parent=%s %s, %s, %d points: %s\n",
					c.ID, parent, author, render.RelativeTime(now, c.CreatedAt), c.Score, c.Content)
			}
			return nil
		})
	},
}

var commentDeleteCmd = &cobra.Command{
	Use:   "delete <comment-id>",
	Short: "Delete a comment and all replies below it (author or moderator)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(10*time.Second, func(ctx context.Context, s *session) error {
			n, err := s.forum.DeleteComment(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d comment(s)\n", n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(commentCmd)
	commentCmd.AddCommand(commentAddCmd, commentListCmd, commentDeleteCmd)
	commentAddCmd.Flags().StringVar(&commentParent, "parent", "", "comment id to reply to")
	commentListCmd.Flags().StringVar(&commentParent, "parent", "", "only direct replies to this comment")
	commentListCmd.Flags().StringVar(&commentOrder, "order", "score", "score or recent")
}
