package http

import (
	"context"
	"net/http"
	"os/exec"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/domain/interfaces"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
)

// DefaultAddr is where serve mode listens unless told otherwise
const DefaultAddr = "localhost:8080"

type config struct {
	addr          string
	webhookSecret string
	probe         ToolProbe
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the listen address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithWebhookSecret sets the shared secret push deliveries are signed with
func WithWebhookSecret(secret string) Option {
	return func(c *config) {
		c.webhookSecret = secret
	}
}

// WithToolProbe replaces the PATH lookup used by the health endpoint
func WithToolProbe(probe ToolProbe) Option {
	return func(c *config) {
		c.probe = probe
	}
}

func lookPath(tool string) bool {
	_, err := exec.LookPath(tool)
	return err == nil
}

// Server is the HTTP server of serve mode
type Server struct {
	*http.Server
}

// NewServer routes /health and POST /hooks/push. A webhook secret is mandatory.
func NewServer(ctx context.Context, webhookUC interfaces.WebhookUseCase, opts ...Option) (*Server, error) {
	cfg := &config{
		addr:  DefaultAddr,
		probe: lookPath,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.webhookSecret == "" {
		return nil, goerr.New("webhook secret is required", goerr.T(types.ErrTagInvalidArgument))
	}

	return &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           newRouter(ctx, cfg, webhookUC),
			ReadHeaderTimeout: 15 * time.Second,
		},
	}, nil
}

func newRouter(ctx context.Context, cfg *config, webhookUC interfaces.WebhookUseCase) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(ctx))
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler(cfg.probe))
	r.Post("/hooks/push", NewWebhookHandler(cfg.webhookSecret, webhookUC).Handle)

	return r
}
