package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var profileEmail string

// userCmd groups profile subcommands.
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Profile utilities",
}

var userNameCmd = &cobra.Command{
	Use:   "name [user-id]",
	Short: "Print a user's name (default: yourself)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(5*time.Second, func(ctx context.Context, s *session) error {
			id := s.forum.Actor()
			if len(args) == 1 {
				id = args[0]
			}
			name, err := s.forum.UserName(ctx, id)
			if err != nil {
				return fmt.Errorf("user %s: %w", id, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		})
	},
}

var userSetNameCmd = &cobra.Command{
	Use:   "set-name <username>",
	Short: "Set your display name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(5*time.Second, func(ctx context.Context, s *session) error {
			return s.forum.SaveProfile(ctx, args[0], profileEmail)
		})
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userNameCmd, userSetNameCmd)
	userSetNameCmd.Flags().StringVar(&profileEmail, "email", "", "contact email")
}
