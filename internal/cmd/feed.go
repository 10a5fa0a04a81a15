package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/zfogg/vaultfeed/pkg/service"
)

var feedPages int

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Feed commands",
	Long:  "View and interact with a creator's feed",
}

var feedShowCmd = &cobra.Command{
	Use:   "show <creator>",
	Short: "Show a creator's feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(ctx context.Context, env service.Env) error {
			return service.NewFeedService(env).Show(ctx, args[0], feedPages)
		})
	},
}

var feedBrowseCmd = &cobra.Command{
	Use:   "browse <creator>",
	Short: "Browse a feed interactively",
	Long:  "Scroll, like and comment on a creator's feed in an interactive session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(ctx context.Context, env service.Env) error {
			return service.NewFeedService(env).Browse(ctx, args[0])
		})
	},
}

var feedLikeCmd = &cobra.Command{
	Use:   "like <creator> <post-id>",
	Short: "Like or unlike a post",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(ctx context.Context, env service.Env) error {
			return service.NewFeedService(env).Like(ctx, args[0], args[1])
		})
	},
}

func init() {
	feedShowCmd.Flags().IntVar(&feedPages, "pages", 1, "Number of pages to load")

	feedCmd.AddCommand(feedShowCmd)
	feedCmd.AddCommand(feedBrowseCmd)
	feedCmd.AddCommand(feedLikeCmd)
}
