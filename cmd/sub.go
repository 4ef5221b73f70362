package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	subDescription string
	subAccent      string
)

// subCmd groups subforum subcommands.
var subCmd = &cobra.Command{
	Use:   "sub",
	Short: "Browse and manage subforums",
}

var subListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subforums",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(10*time.Second, func(ctx context.Context, s *session) error {
			subs, err := s.forum.Subforums(ctx)
			if err != nil {
				return err
			}
			followed := map[string]bool{}
			if s.forum.Actor() != "" {
				ids, err := s.forum.FollowedSubforums(ctx)
				if err != nil {
					return err
				}
				for _, id := range ids {
					followed[id] = true
				}
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tFOLLOWING\tDESCRIPTION")
			for _, sub := range subs {
				mark := ""
				if followed[sub.ID] {
					mark = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", sub.ID, sub.Name, mark, sub.Description)
			}
			return tw.Flush()
		})
	},
}

var subCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a subforum; you become its moderator",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(10*time.Second, func(ctx context.Context, s *session) error {
			sub, err := s.forum.CreateSubforum(ctx, strings.Join(args, " "), subDescription, subAccent)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created subforum %s (%s)\n", sub.Name, sub.ID)
			return nil
		})
	},
}

var subDeleteCmd = &cobra.Command{
	Use:   "delete <sub-id>",
	Short: "Delete a subforum (moderators only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(10*time.Second, func(ctx context.Context, s *session) error {
			if err := s.forum.DeleteSubforum(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted subforum %s\n", args[0])
			return nil
		})
	},
}

var subModsCmd = &cobra.Command{
	Use:   "mods <sub-id>",
	Short: "List a subforum's moderators",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(10*time.Second, func(ctx context.Context, s *session) error {
			mods, err := s.forum.Moderators(ctx, args[0])
			if err != nil {
				return err
			}
			name := s.forum.NameResolver(ctx)
			for _, id := range mods {
				if n := name(id); n != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", n, id)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		})
	},
}

var subFollowCmd = &cobra.Command{
	Use:   "follow <sub-id>",
	Short: "Follow a subforum",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(10*time.Second, func(ctx context.Context, s *session) error {
			return s.forum.Follow(ctx, args[0])
		})
	},
}

var subUnfollowCmd = &cobra.Command{
	Use:   "unfollow <sub-id>",
	Short: "Stop following a subforum",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(10*time.Second, func(ctx context.Context, s *session) error {
			return s.forum.Unfollow(ctx, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(subCmd)
	subCmd.AddCommand(subListCmd, subCreateCmd, subDeleteCmd, subModsCmd, subFollowCmd, subUnfollowCmd)
	subCreateCmd.Flags().StringVar(&subDescription, "description", "", "subforum description")
	subCreateCmd.Flags().StringVar(&subAccent, "accent", "", "accent colour as #rrggbb")
}
