package stubserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zfogg/vaultfeed/internal/metrics"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// Config configures a stub server
type Config struct {
	Addr             string
	SigningKey       []byte
	TokenTTL         time.Duration
	MaxCommentLength int
	ServiceName      string

	// Logger defaults to a no-op logger
	Logger *zap.Logger
	// Registry receives the server's metrics; nil creates a private one
	Registry *prometheus.Registry
	// Store defaults to an empty store
	Store *Store
}

// Server is an in-memory implementation of the content API
type Server struct {
	store            *Store
	tokens           *TokenIssuer
	log              *zap.Logger
	metrics          *metrics.Metrics
	registry         *prometheus.Registry
	engine           *gin.Engine
	addr             string
	maxCommentLength int
}

// New builds the server and its routes
func New(cfg Config) (*Server, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("stubserver: signing key is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.Store == nil {
		cfg.Store = NewStore()
	}
	if cfg.MaxCommentLength <= 0 {
		cfg.MaxCommentLength = 2000
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "vaultfeed-stub"
	}

	s := &Server{
		store:            cfg.Store,
		tokens:           NewTokenIssuer(cfg.SigningKey, cfg.TokenTTL),
		log:              cfg.Logger,
		metrics:          metrics.New(cfg.Registry),
		registry:         cfg.Registry,
		addr:             cfg.Addr,
		maxCommentLength: cfg.MaxCommentLength,
	}
	s.engine = s.routes(cfg.ServiceName)
	return s, nil
}

func (s *Server) routes(serviceName string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(requestLogger(s.log))
	r.Use(requestMetrics(s.metrics))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	r.Use(cors.New(corsConfig))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/health", s.health)
	r.GET("/login", s.login)
	r.GET("/metrics", gin.WrapH(metrics.Handler(s.registry)))

	optional := authenticate(s.tokens, false)
	required := authenticate(s.tokens, true)

	posts := r.Group("/posts")
	{
		posts.GET("", optional, s.listPosts)
		posts.GET("/like-status/batch", required, s.likeStatusBatch)
		posts.POST("/:id/like", required, s.toggleLike)
		posts.GET("/:id/comments", optional, s.listComments)
		posts.POST("/:id/comments", required, s.createComment)
		posts.DELETE("/comments/:id", required, s.deleteComment)
	}
	r.GET("/creators/:id/entitlements", optional, s.entitlements)

	return r
}

// Handler exposes the router, e.g. for httptest
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Store returns the server's state
func (s *Server) Store() *Store {
	return s.store
}

// Tokens returns the server's token issuer
func (s *Server) Tokens() *TokenIssuer {
	return s.tokens
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Stub server listening", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("stub server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("Shutting down stub server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("stub server shutdown: %w", err)
	}
	return nil
}
