// Package http serves the prediction API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server HTTP server
type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

// ServerConfig server settings
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	MaxBodyBytes   int64
	AllowedOrigins []string
}

// DefaultServerConfig default server settings
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           1702,
		Timeout:        30 * time.Second,
		MaxBodyBytes:   1 << 20,
		AllowedOrigins: []string{"*"},
	}
}

// NewServer wires the API routes behind the middleware chain.
func NewServer(config ServerConfig, api *API) *Server {
	logger := api.logger()

	mux := http.NewServeMux()
	RegisterHandlers(mux, api)

	var observe func(method, path string, status int)
	if api.Metrics != nil {
		observe = api.Metrics.ObserveHTTP
	}

	chain := Chain(
		RecoveryMiddleware(logger),                 // 1. recover panics first
		LoggerMiddleware(logger, observe),          // 2. request id + access log
		SecurityHeadersMiddleware,                  // 3. security headers
		CORSMiddleware(config.AllowedOrigins),      // 4. CORS
		RequestSizeMiddleware(config.MaxBodyBytes), // 5. body limit
	)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      chain(mux),
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
			IdleTimeout:  120 * time.Second,
		},
		config: config,
		logger: logger,
	}
}

// Start blocks serving requests until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down, waiting up to 5s for in-flight requests.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}

// Addr server address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
