package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zfogg/vaultfeed/internal/cache"
	"github.com/zfogg/vaultfeed/internal/metrics"
	"github.com/zfogg/vaultfeed/internal/telemetry"
	"github.com/zfogg/vaultfeed/pkg/api"
	"github.com/zfogg/vaultfeed/pkg/client"
	"github.com/zfogg/vaultfeed/pkg/config"
	"github.com/zfogg/vaultfeed/pkg/credentials"
	"github.com/zfogg/vaultfeed/pkg/feed"
	"github.com/zfogg/vaultfeed/pkg/logger"
	"github.com/zfogg/vaultfeed/pkg/output"
	"github.com/zfogg/vaultfeed/pkg/prompter"
)

// Env is what the services need to mount feeds and talk to the user
type Env struct {
	Backend  feed.Backend
	Session  feed.Session
	Metrics  feed.Metrics
	Printer  *output.Printer
	Prompter *prompter.Prompter
	Logger   *log.Logger

	// NewCache returns a fresh entitlement cache for each mounted feed.
	// Nil disables caching.
	NewCache func() feed.EntitlementCache

	PageSize         int
	CommentPageSize  int
	MaxCommentLength int
	LoginURL         string

	// CredentialsPath is where auth commands read and write the login
	CredentialsPath string
}

// options builds the controller options for one feed
func (e Env) options(creatorID string) feed.Options {
	opts := feed.Options{
		CreatorID:        creatorID,
		Backend:          e.Backend,
		Session:          e.Session,
		PageSize:         e.PageSize,
		CommentPageSize:  e.CommentPageSize,
		MaxCommentLength: e.MaxCommentLength,
		LoginURL:         e.LoginURL,
		EventBuffer:      64,
		Logger:           e.Logger,
		Metrics:          e.Metrics,
	}
	if e.NewCache != nil {
		opts.Cache = e.NewCache()
	}
	return opts
}

// FromConfig assembles an Env from the loaded configuration and stored
// credentials. The returned cleanup flushes telemetry and stops the metrics
// listener; it is safe to call when setup failed part way.
func FromConfig(ctx context.Context) (Env, func(), error) {
	var closers []func(context.Context) error
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](ctx); err != nil {
				logger.Debug("Cleanup failed", "error", err)
			}
		}
	}

	creds, err := credentials.Load()
	if err != nil {
		return Env{}, cleanup, fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds == nil {
		creds = &credentials.Credentials{}
	}

	tp, err := telemetry.InitTracer(ctx, telemetry.Config{
		ServiceName:  "vaultfeed-cli",
		Environment:  "cli",
		OTLPEndpoint: config.GetString("telemetry.otlp_endpoint"),
		Enabled:      config.GetBool("telemetry.enabled"),
		SamplingRate: 1.0,
	})
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else if tp != nil {
		closers = append(closers, func(ctx context.Context) error { return telemetry.Shutdown(ctx, tp) })
	}

	env := Env{
		Backend:          api.New(client.FromConfig(creds.Token(), telemetry.Transport(nil))),
		Session:          creds,
		Printer:          output.Stdout(),
		Prompter:         prompter.Terminal(),
		Logger:           logger.GetLogger(),
		PageSize:         config.GetInt("feed.page_size"),
		CommentPageSize:  config.GetInt("comments.page_size"),
		MaxCommentLength: config.GetInt("comments.max_length"),
		LoginURL:         config.GetString("auth.login_url"),
		CredentialsPath:  config.GetCredentialsPath(),
	}

	newCache, closeCache, err := cacheFromConfig(ctx)
	if err != nil {
		return Env{}, cleanup, err
	}
	env.NewCache = newCache
	if closeCache != nil {
		closers = append(closers, func(context.Context) error { return closeCache() })
	}

	if addr := config.GetString("metrics.addr"); addr != "" {
		reg := prometheus.NewRegistry()
		env.Metrics = metrics.New(reg)
		srv := &http.Server{Addr: addr, Handler: metrics.Handler(reg), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("Metrics listener stopped", "addr", addr, "error", err)
			}
		}()
		closers = append(closers, srv.Shutdown)
		logger.Debug("Serving metrics", "addr", addr)
	}

	return env, cleanup, nil
}

// cacheFromConfig returns a per-feed cache constructor for cache.backend.
// Redis feeds share one connection but each gets its own key namespace.
func cacheFromConfig(ctx context.Context) (func() feed.EntitlementCache, func() error, error) {
	ttl := config.GetDuration("cache.ttl")
	switch backend := config.GetString("cache.backend"); backend {
	case "", "memory":
		size := config.GetInt("cache.size")
		return func() feed.EntitlementCache { return cache.NewMemory(size, ttl) }, nil, nil
	case "none":
		return nil, nil, nil
	case "redis":
		rc, err := cache.NewRedisClient(ctx, config.GetString("cache.redis_addr"), config.GetString("cache.redis_password"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect entitlement cache: %w", err)
		}
		newCache := func() feed.EntitlementCache {
			return cache.NewRedis(rc, "vaultfeed:"+uuid.NewString(), ttl)
		}
		return newCache, rc.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q (want memory, redis or none)", backend)
	}
}
