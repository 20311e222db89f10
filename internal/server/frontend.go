package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/voxsignal/vad-service/internal/config"
)

// FrontendServer serves the static demo frontend on its own port, kept
// separate from the websocket ingest and the monitoring API.
type FrontendServer struct {
	server *http.Server
	logger *slog.Logger
	root   string
}

// NewFrontendServer creates a static file server for the frontend directory
func NewFrontendServer(cfg config.FrontendConfig, logger *slog.Logger) *FrontendServer {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(cfg.Root)))

	return &FrontendServer{
		logger: logger,
		root:   cfg.Root,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start starts the frontend server
func (f *FrontendServer) Start() error {
	f.logger.Info("Starting frontend server",
		slog.String("address", f.server.Addr),
		slog.String("root", f.root),
	)

	go func() {
		if err := f.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("Frontend server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the frontend server
func (f *FrontendServer) Stop(ctx context.Context) error {
	f.logger.Info("Stopping frontend server...")

	return f.server.Shutdown(ctx)
}
