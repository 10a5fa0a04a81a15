package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zfogg/vaultfeed/pkg/config"
	vferrors "github.com/zfogg/vaultfeed/pkg/errors"
	"github.com/zfogg/vaultfeed/pkg/logger"
	"github.com/zfogg/vaultfeed/pkg/output"
	"github.com/zfogg/vaultfeed/pkg/service"
)

var (
	verbose    bool
	configPath string
	outputFmt  string
)

var rootCmd = &cobra.Command{
	Use:   "vaultfeed",
	Short: "vaultfeed - browse creator feeds from the terminal",
	Long: `vaultfeed browses a creator's feed with tiered visibility, likes posts
optimistically and manages comment threads. 'vaultfeed stub serve' runs a
local content API with seeded data for development.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(configPath); err != nil {
			return fmt.Errorf("error initializing config: %w", err)
		}

		logger.Init(verbose)

		if outputFmt != "" {
			if !output.ValidateOutputFormat(outputFmt) {
				return fmt.Errorf("invalid output format %q: use text, json or table", outputFmt)
			}
			config.Set("output.format", outputFmt)
		}
		return nil
	},
}

// Execute runs the command tree and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, vferrors.FormatError(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ~/.config/vaultfeed/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "", "Output format: text, json, table")

	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(stubCmd)
	rootCmd.AddCommand(versionCmd)
}

// signalContext is cancelled on Ctrl-C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// withEnv runs fn with an Env built from config, releasing it afterwards
func withEnv(fn func(ctx context.Context, env service.Env) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	env, cleanup, err := service.FromConfig(ctx)
	defer cleanup()
	if err != nil {
		return err
	}
	return fn(ctx, env)
}
