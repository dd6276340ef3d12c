// Package http serves the Cornerstone prediction frontend.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"cornerstone/inference"
)

var (
	service    *inference.Service
	httpLogger = zap.NewNop()
)

// SetInferenceService injects the loaded inference service.
func SetInferenceService(svc *inference.Service) {
	service = svc
}

// SetLogger injects the process logger.
func SetLogger(logger *zap.Logger) {
	if logger != nil {
		httpLogger = logger
	}
}

// Server HTTP server
type Server struct {
	server *http.Server
	config ServerConfig
}

// ServerConfig server configuration
type ServerConfig struct {
	Port    int
	Timeout time.Duration
	BaseDir string
	// Debug enables template auto-reload. Never enable outside development.
	Debug bool
}

// DefaultServerConfig default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:    5002,
		Timeout: 30 * time.Second,
		BaseDir: ".",
	}
}

// NewServer creates the HTTP server. Frontend artifact discovery happens here,
// once; the serving mode is fixed for the process lifetime.
func NewServer(config ServerConfig) (*Server, error) {
	front, err := newFrontendDebug(config.BaseDir, config.Debug)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	RegisterHandlers(mux, front)

	chain := Chain(
		RecoveryMiddleware,
		LoggerMiddleware,
		SecurityHeadersMiddleware,
		RequestSizeMiddleware(1<<20),
	)
	handler := chain(mux)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      handler,
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
			IdleTimeout:  120 * time.Second,
		},
		config: config,
	}, nil
}

// RegisterHandlers registers the two application routes plus static assets
// for the active frontend mode.
func RegisterHandlers(mux *http.ServeMux, front *frontend) {
	mux.HandleFunc("GET /", front.handleIndex)
	mux.HandleFunc("POST /cornerstone-predict", front.handlePredict)
	if front.mode == modeTemplates {
		mux.Handle("GET /Static/", http.StripPrefix("/Static/", http.FileServer(http.Dir(front.staticDir))))
	}
}

// Start starts the server
func (s *Server) Start() error {
	httpLogger.Info("starting Cornerstone API server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	httpLogger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Addr returns the server address
func (s *Server) Addr() string {
	return s.server.Addr
}
