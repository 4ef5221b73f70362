package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"forumline/internal/forum"
	"forumline/internal/markdown"
	"forumline/internal/render"

	"github.com/spf13/cobra"
)

var (
	pubSub     string
	pubTitle   string
	pubContent string
	pubFile    string
	pubImage   string
)

// pubCmd groups publication subcommands.
var pubCmd = &cobra.Command{
	Use:   "pub",
	Short: "Browse and manage publications",
}

var pubListCmd = &cobra.Command{
	Use:   "list <sub-id>",
	Short: "List a subforum's publications, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(10*time.Second, func(ctx context.Context, s *session) error {
			pubs, err := s.forum.Publications(ctx, args[0])
			if err != nil {
				return err
			}
			now := time.Now()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSCORE\tPOSTED\tTITLE")
			for _, p := range pubs {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", p.ID, p.Score, render.RelativeTime(now, p.CreatedAt), p.Title)
			}
			return tw.Flush()
		})
	},
}

var pubCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Submit a publication from flags or a Markdown file",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := forum.PublicationInput{SubforumID: pubSub, Title: pubTitle, Content: pubContent}
		image := pubImage
		baseDir := "."
		if pubFile != "" {
			doc, err := markdown.ParseFile(pubFile)
			if err != nil {
				return fmt.Errorf("read %s: %w", pubFile, err)
			}
			baseDir = filepath.Dir(pubFile)
			if in.SubforumID == "" {
				in.SubforumID = doc.Meta.Subforum
			}
			if in.Title == "" {
				in.Title = doc.Meta.Title
			}
			if in.Content == "" {
				in.Content = strings.TrimSpace(doc.Body)
			}
			if image == "" {
				image = doc.Meta.Image
			}
		}
		if in.SubforumID == "" {
			return fmt.Errorf("a subforum is required (--sub or frontmatter \"sub\")")
		}

		switch {
		case image == "":
		case strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://"):
			in.ImageURL = image
		default:
			if !filepath.IsAbs(image) {
				image = filepath.Join(baseDir, image)
			}
			f, err := os.Open(image)
			if err != nil {
				return fmt.Errorf("open image: %w", err)
			}
			defer f.Close()
			in.Image = f
			in.ImageName = filepath.Base(image)
		}

		return withSession(time.Minute, func(ctx context.Context, s *session) error {
			pub, err := s.forum.SubmitPublication(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %q (%s)\n", pub.Title, pub.ID)
			if pub.ImageURL != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "image: %s\n", pub.ImageURL)
			}
			return nil
		})
	},
}

var pubDeleteCmd = &cobra.Command{
	Use:   "delete <pub-id>",
	Short: "Delete a publication and its discussion (author or moderator)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(10*time.Second, func(ctx context.Context, s *session) error {
			if err := s.forum.DeletePublication(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted publication %s\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(pubCmd)
	pubCmd.AddCommand(pubListCmd, pubCreateCmd, pubDeleteCmd)
	pubCreateCmd.Flags().StringVar(&pubSub, "sub", "", "target subforum id")
	pubCreateCmd.Flags().StringVar(&pubTitle, "title", "", "publication title")
	pubCreateCmd.Flags().StringVar(&pubContent, "content", "", "publication body")
	pubCreateCmd.Flags().StringVar(&pubFile, "file", "", "Markdown file with optional frontmatter (title, sub, image)")
	pubCreateCmd.Flags().StringVar(&pubImage, "image", "", "image file to upload or an image URL")
}
