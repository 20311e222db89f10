package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voxsignal/vad-service/internal/config"
	"github.com/voxsignal/vad-service/internal/metrics"
	"github.com/voxsignal/vad-service/internal/server"
	"github.com/voxsignal/vad-service/internal/stream"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "vad-service"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary
	logger.Info("Configuration loaded",
		slog.Int("websocket_port", cfg.Server.Port),
		slog.String("bind_address", cfg.Server.BindAddress),
		slog.Int("max_connections", cfg.Server.MaxConnections),
		slog.Int("input_sample_rate", cfg.Audio.InputSampleRate),
		slog.Int("analysis_sample_rate", cfg.VAD.SampleRate),
		slog.Int("frame_size", cfg.VAD.FrameSize),
		slog.Int("hangover_frames", cfg.VAD.HangoverFrames),
		slog.Int("min_speech_frames", cfg.VAD.MinSpeechFrames),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize session manager
	streamMgr, err := stream.NewManager(logger, appMetrics, stream.ManagerConfig{
		EngineConfig:    cfg.VAD.EngineConfig(),
		InputSampleRate: cfg.Audio.InputSampleRate,
		SessionTimeout:  cfg.Audio.GetStreamTimeoutDuration(),
		CleanupInterval: cfg.Audio.GetCleanupInterval(),
	})
	if err != nil {
		logger.Error("Failed to create session manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Session manager initialized",
		slog.Duration("session_timeout", cfg.Audio.GetStreamTimeoutDuration()),
		slog.Duration("cleanup_interval", cfg.Audio.GetCleanupInterval()),
	)

	// Initialize websocket server
	wsServer := server.NewWSServer(&cfg.Server, logger, streamMgr, appMetrics)
	logger.Info("Websocket server initialized")

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, streamMgr, wsServer, appMetrics)
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Initialize frontend server (if enabled)
	var frontendServer *server.FrontendServer
	if cfg.Frontend.Enabled {
		frontendServer = server.NewFrontendServer(cfg.Frontend, logger)
		logger.Info("Frontend server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.Frontend.Address, cfg.Frontend.Port)),
			slog.String("root", cfg.Frontend.Root),
		)
	}

	// Start websocket server
	if err := wsServer.Start(); err != nil {
		logger.Error("Failed to start websocket server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start HTTP server (if enabled)
	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Start frontend server (if enabled)
	if frontendServer != nil {
		if err := frontendServer.Start(); err != nil {
			logger.Error("Failed to start frontend server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("websocket_address", fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.Port)),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop frontend server first
	if frontendServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := frontendServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping frontend server", slog.String("error", err.Error()))
		}
		shutdownCancel()
	}

	// Stop HTTP server (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
		shutdownCancel()
	}

	// Stop websocket server (drains connection handlers)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := wsServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping websocket server", slog.String("error", err.Error()))
	}
	shutdownCancel()

	// Stop session manager (removes sessions and stops background routines)
	streamMgr.Stop()

	// Get final statistics
	stats := wsServer.GetStatistics()
	logger.Info("Final server statistics",
		slog.Uint64("connections_opened", stats.ConnectionsOpened),
		slog.Uint64("messages_received", stats.MessagesReceived),
		slog.Uint64("results_sent", stats.ResultsSent),
		slog.Uint64("parse_errors", stats.ParseErrors),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
