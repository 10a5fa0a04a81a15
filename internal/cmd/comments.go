package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zfogg/vaultfeed/pkg/service"
)

var (
	commentPages int
	commentYes   bool
)

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Comment commands",
	Long:  "List, add and delete comments on a creator's posts",
}

var commentListCmd = &cobra.Command{
	Use:   "list <creator> <post-id>",
	Short: "List comments on a post",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(ctx context.Context, env service.Env) error {
			return service.NewCommentService(env).List(ctx, args[0], args[1], commentPages)
		})
	},
}

var commentAddCmd = &cobra.Command{
	Use:   "add <creator> <post-id> <text>...",
	Short: "Add a comment to a post",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(ctx context.Context, env service.Env) error {
			return service.NewCommentService(env).Add(ctx, args[0], args[1], strings.Join(args[2:], " "))
		})
	},
}

var commentDeleteCmd = &cobra.Command{
	Use:   "delete <creator> <post-id> <comment-id>",
	Short: "Delete a comment",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(ctx context.Context, env service.Env) error {
			return service.NewCommentService(env).Delete(ctx, args[0], args[1], args[2], commentYes)
		})
	},
}

func init() {
	commentListCmd.Flags().IntVar(&commentPages, "pages", 1, "Number of comment pages to load")
	commentDeleteCmd.Flags().BoolVarP(&commentYes, "yes", "y", false, "Delete without asking")

	commentCmd.AddCommand(commentListCmd)
	commentCmd.AddCommand(commentAddCmd)
	commentCmd.AddCommand(commentDeleteCmd)
}
