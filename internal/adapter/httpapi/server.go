// Package httpapi serves the search proxy over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"scoutchat/internal/adapter/search"
	"scoutchat/internal/domain"
	"scoutchat/internal/infra/config"
	"scoutchat/internal/infra/middleware"
)

const defaultMaxBodyBytes = 1 << 20 // 1MB

// Server exposes a Searcher as the search proxy API.
type Server struct {
	cfg      config.ServerConfig
	searcher domain.Searcher
	layouts  *search.Registry // nil when the searcher has no layouts
	schema   *requestSchema
	logger   *slog.Logger

	server    *http.Server
	boundAddr string

	// Lifecycle of the rate limiter sweep goroutine.
	cancel context.CancelFunc
}

// NewServer creates a server for searcher. Call Start to listen.
func NewServer(cfg config.ServerConfig, searcher domain.Searcher, logger *slog.Logger) (*Server, error) {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	schema, err := compileRequestSchema()
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:      cfg,
		searcher: searcher,
		schema:   schema,
		logger:   logger,
	}
	if lp, ok := searcher.(search.LayoutProvider); ok {
		s.layouts = lp.Layouts()
	}
	return s, nil
}

// Handler builds the routed handler wrapped in the middleware chain.
// Outermost first: request ID, access log, security headers, rate limit.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/layouts", s.handleLayouts)

	var h http.Handler = mux
	if s.cfg.RateLimit.Enabled {
		h = middleware.RateLimit(ctx, middleware.RateLimitConfig{
			RequestsPerMin: s.cfg.RateLimit.RequestsPerMinute,
			BurstSize:      s.cfg.RateLimit.Burst,
			TrustedProxies: s.cfg.RateLimit.TrustedProxies,
		})(h)
	}
	h = middleware.SecurityHeaders(h)
	h = middleware.AccessLog(s.logger)(h)
	return middleware.RequestID(h)
}

// Start begins serving. Non-blocking (starts in goroutine).
func (s *Server) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.boundAddr = ln.Addr().String()

	go func() {
		s.logger.Info("search proxy started", "addr", s.boundAddr, "searcher", s.searcher.Name())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound listen address once Start has returned.
func (s *Server) Addr() string { return s.boundAddr }

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
