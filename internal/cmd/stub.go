package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/zfogg/vaultfeed/internal/stubserver"
	"github.com/zfogg/vaultfeed/internal/telemetry"
	"github.com/zfogg/vaultfeed/pkg/config"
	"github.com/zfogg/vaultfeed/pkg/service"
	"go.uber.org/zap"
)

var (
	stubAddr     string
	stubPosts    int
	stubCreators int
	stubSeed     int64

	tokenUsername string
	tokenLogin    bool
)

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Local content API for development",
}

var stubServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the content API from seeded in-memory data",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		log := stubserver.NewLogger(config.GetString("log.level"), config.GetString("stub.log_file"))
		defer func() { _ = log.Sync() }()

		tp, err := telemetry.InitTracer(ctx, telemetry.Config{
			ServiceName:  "vaultfeed-stub",
			Environment:  "development",
			OTLPEndpoint: config.GetString("telemetry.otlp_endpoint"),
			Enabled:      config.GetBool("telemetry.enabled"),
			SamplingRate: 1.0,
		})
		if err != nil {
			log.Warn("Tracing disabled", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = telemetry.Shutdown(shutdownCtx, tp)
		}()

		addr := stubAddr
		if addr == "" {
			addr = config.GetString("stub.addr")
		}
		posts := stubPosts
		if posts <= 0 {
			posts = config.GetInt("stub.seed_posts")
		}
		creators := stubCreators
		if creators <= 0 {
			creators = config.GetInt("stub.seed_creators")
		}

		store := stubserver.NewStore()
		stubserver.Seed(store, stubserver.SeedOptions{Posts: posts, Creators: creators, Seed: stubSeed})

		srv, err := stubserver.New(stubserver.Config{
			Addr:             addr,
			SigningKey:       []byte(config.GetString("stub.signing_key")),
			TokenTTL:         config.GetDuration("stub.token_ttl"),
			MaxCommentLength: config.GetInt("comments.max_length"),
			Logger:           log,
			Registry:         prometheus.NewRegistry(),
			Store:            store,
		})
		if err != nil {
			return err
		}

		log.Info("Seeded store",
			zap.Int("posts", posts),
			zap.Strings("creators", store.Creators()),
			zap.String("subscriber", stubserver.SubscriberID),
			zap.String("follower", stubserver.FollowerID),
		)
		return srv.ListenAndServe(ctx)
	},
}

var stubTokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue a dev token the stub server accepts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := args[0]
		username := tokenUsername
		if username == "" {
			username = userID
		}

		issuer := stubserver.NewTokenIssuer([]byte(config.GetString("stub.signing_key")), config.GetDuration("stub.token_ttl"))
		token, expiresAt, err := issuer.Issue(userID, username)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}

		if tokenLogin {
			return authService().Login(service.LoginRequest{
				UserID:    userID,
				Username:  username,
				Token:     token,
				ExpiresAt: expiresAt,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	stubServeCmd.Flags().StringVar(&stubAddr, "addr", "", "Listen address (default from stub.addr)")
	stubServeCmd.Flags().IntVar(&stubPosts, "posts", 0, "Number of posts to seed (default from stub.seed_posts)")
	stubServeCmd.Flags().IntVar(&stubCreators, "creators", 0, "Number of creators to seed (default from stub.seed_creators)")
	stubServeCmd.Flags().Int64Var(&stubSeed, "seed", 0, "Random seed for fake data (0 picks one)")

	stubTokenCmd.Flags().StringVar(&tokenUsername, "username", "", "Username claim (defaults to the user id)")
	stubTokenCmd.Flags().BoolVar(&tokenLogin, "login", false, "Store the token as the CLI login instead of printing it")

	stubCmd.AddCommand(stubServeCmd)
	stubCmd.AddCommand(stubTokenCmd)
}
