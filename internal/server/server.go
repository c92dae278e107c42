// Package server exposes the tool catalog over MCP, on stdio or streamable HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	mcpauth "github.com/modelcontextprotocol/go-sdk/auth"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/matiasleandrokruk/metricool-mcp/internal/infra/config"
	pkgauth "github.com/matiasleandrokruk/metricool-mcp/pkg/auth"
)

// ErrUnknownTransport is returned by Run for a transport other than stdio or http.
var ErrUnknownTransport = errors.New("unknown transport")

// Config holds transport configuration.
type Config struct {
	Transport         string
	Addr              string
	JWTSecret         []byte
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

// DefaultConfig returns stdio defaults with HTTP timeouts filled in.
func DefaultConfig() Config {
	return Config{
		Transport:         config.TransportStdio,
		Addr:              config.DefaultHTTPAddr,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// ConfigFrom maps the process configuration onto transport settings.
func ConfigFrom(cfg config.Config) Config {
	c := DefaultConfig()
	c.Transport = cfg.Transport
	if cfg.HTTPAddr != "" {
		c.Addr = cfg.HTTPAddr
	}
	if cfg.JWTSecret != "" {
		c.JWTSecret = []byte(cfg.JWTSecret)
	}
	return c
}

// Server runs one MCP server over the configured transport.
type Server struct {
	config Config
	mcp    *mcp.Server
	logger *slog.Logger
}

// New creates a Server. logger may be nil.
func New(cfg Config, mcpServer *mcp.Server, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{config: cfg, mcp: mcpServer, logger: logger}
}

// Run blocks until ctx is cancelled or the transport closes.
func (s *Server) Run(ctx context.Context) error {
	switch s.config.Transport {
	case config.TransportStdio, "":
		s.logger.Info("serving mcp", "transport", config.TransportStdio)
		return s.mcp.Run(ctx, &mcp.StdioTransport{})
	case config.TransportHTTP:
		ln, err := net.Listen("tcp", s.config.Addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", s.config.Addr, err)
		}
		return s.Serve(ctx, ln)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransport, s.config.Transport)
	}
}

// Serve runs the HTTP transport on ln and shuts down gracefully when ctx ends.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}

	s.logger.Info("serving mcp",
		"transport", config.TransportHTTP,
		"addr", ln.Addr().String(),
		"auth", len(s.config.JWTSecret) > 0,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// Handler returns the HTTP routes: /health and the MCP endpoint at /mcp.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	var endpoint http.Handler = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, &mcp.StreamableHTTPOptions{Logger: s.logger})
	if len(s.config.JWTSecret) > 0 {
		endpoint = mcpauth.RequireBearerToken(pkgauth.Verifier(s.config.JWTSecret), nil)(endpoint)
	}
	r.Handle("/mcp", endpoint)

	return r
}

// requestLogger logs one line per request through slog instead of chi's
// stdlib logger, so stdout stays free for the stdio transport.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.LogAttrs(r.Context(), slog.LevelDebug, "http request",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", ww.Status()),
					slog.Duration("duration", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
