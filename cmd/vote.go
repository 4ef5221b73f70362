package cmd

import (
	"context"
	"fmt"
	"time"

	"forumline/internal/storage"
	"forumline/internal/vote"

	"github.com/spf13/cobra"
)

// voteCmd groups voting subcommands. Casting the same vote twice removes it.
var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Vote on comments and publications",
}

func voteRunner(target storage.Target) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		dir, err := vote.ParseDirection(args[1])
		if err != nil {
			return err
		}
		return withSession(10*time.Second, func(ctx context.Context, s *session) error {
			local, err := currentVote(ctx, s, target, args[0])
			if err != nil {
				return err
			}
			pending := local.Apply(dir)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s: %s, score %d (pending)\n", target.Name, args[0], local.State, local.Score)

			var res storage.VoteResult
			if target == storage.CommentTarget {
				res, err = s.forum.VoteComment(ctx, args[0], dir)
			} else {
				res, err = s.forum.VotePublication(ctx, args[0], dir)
			}
			if err != nil {
				pending.Rollback()
				fmt.Fprintf(out, "%s %s: vote failed, back to %s, score %d\n", target.Name, args[0], local.State, local.Score)
				return err
			}
			pending.Commit(&res.Score)
			local.State = res.Current
			fmt.Fprintf(out, "%s %s: %s -> %s, score %d\n", target.Name, args[0], res.Previous, local.State, local.Score)
			return nil
		})
	}
}

// currentVote reads the actor's vote and the item score as shown before voting.
func currentVote(ctx context.Context, s *session, target storage.Target, id string) (*vote.Optimistic, error) {
	if target == storage.CommentTarget {
		c, err := s.forum.Comment(ctx, id)
		if err != nil {
			return nil, err
		}
		st, err := s.forum.CommentVote(ctx, id)
		if err != nil {
			return nil, err
		}
		return &vote.Optimistic{State: st, Score: c.Score}, nil
	}
	p, err := s.forum.Publication(ctx, id)
	if err != nil {
		return nil, err
	}
	st, err := s.forum.PublicationVote(ctx, id)
	if err != nil {
		return nil, err
	}
	return &vote.Optimistic{State: st, Score: p.Score}, nil
}

var voteCommentCmd = &cobra.Command{
	Use:   "comment <comment-id> <up|down>",
	Short: "Vote on a comment",
	Args:  cobra.ExactArgs(2),
	RunE:  voteRunner(storage.CommentTarget),
}

var votePubCmd = &cobra.Command{
	Use:   "pub <pub-id> <up|down>",
	Short: "Vote on a publication",
	Args:  cobra.ExactArgs(2),
	RunE:  voteRunner(storage.PublicationTarget),
}

var voteShowCmd = &cobra.Command{
	Use:   "show <comment|pub> <id>",
	Short: "Show your current vote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(10*time.Second, func(ctx context.Context, s *session) error {
			var st vote.State
			var err error
			switch args[0] {
			case "comment":
				st, err = s.forum.CommentVote(ctx, args[1])
			case "pub":
				st, err = s.forum.PublicationVote(ctx, args[1])
			default:
				return fmt.Errorf("unknown vote target %q", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), st)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(voteCmd)
	voteCmd.AddCommand(voteCommentCmd, votePubCmd, voteShowCmd)
}
