package client

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	"github.com/zfogg/vaultfeed/pkg/config"
	"github.com/zfogg/vaultfeed/pkg/logger"
)

const userAgent = "vaultfeed-cli/0.1.0"

// Options configures a single HTTP client. Every feed instance builds its own.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Token     string
	Transport http.RoundTripper
	Logger    *log.Logger
}

// New builds a resty client with request/response debug logging
func New(opts Options) *resty.Client {
	lg := opts.Logger
	if lg == nil {
		lg = logger.Discard()
	}

	c := resty.New()
	c.SetBaseURL(opts.BaseURL)
	if opts.Timeout > 0 {
		c.SetTimeout(opts.Timeout)
	}
	c.SetHeader("User-Agent", userAgent)
	c.SetHeader("Accept", "application/json")
	if opts.Transport != nil {
		c.SetTransport(opts.Transport)
	}
	if opts.Token != "" {
		c.SetHeader("Authorization", "Bearer "+opts.Token)
	}

	c.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		lg.Debug("HTTP Request", "method", req.Method, "url", req.URL)
		return nil
	})

	c.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		lg.Debug("HTTP Response",
			"status", resp.StatusCode(),
			"url", resp.Request.URL,
			"elapsed", resp.Time(),
		)
		return nil
	})

	return c
}

// FromConfig builds a client from the api.* config keys
func FromConfig(token string, transport http.RoundTripper) *resty.Client {
	return New(Options{
		BaseURL:   config.GetString("api.base_url"),
		Timeout:   time.Duration(config.GetInt("api.timeout")) * time.Second,
		Token:     token,
		Transport: transport,
		Logger:    logger.GetLogger(),
	})
}
