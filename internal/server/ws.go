package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxsignal/vad-service/internal/config"
	"github.com/voxsignal/vad-service/internal/metrics"
	"github.com/voxsignal/vad-service/internal/protocol"
	"github.com/voxsignal/vad-service/internal/stream"
)

// WSServer accepts websocket connections carrying audio buffers and
// streams one detection result back per analysis frame. Each connection
// gets its own session and its own goroutine; the session serializes
// frame processing, so results leave in frame order.
type WSServer struct {
	server    *http.Server
	config    *config.ServerConfig
	logger    *slog.Logger
	streamMgr *stream.Manager
	metrics   *metrics.Metrics
	upgrader  websocket.Upgrader

	wg sync.WaitGroup

	// Counters for /stats and the shutdown log
	mu                sync.RWMutex
	connectionsOpened uint64
	activeConnections uint64
	messagesReceived  uint64
	resultsSent       uint64
	parseErrors       uint64
}

// NewWSServer creates a websocket server backed by the session manager
func NewWSServer(cfg *config.ServerConfig, logger *slog.Logger, streamMgr *stream.Manager, m *metrics.Metrics) *WSServer {
	s := &WSServer{
		config:    cfg,
		logger:    logger,
		streamMgr: streamMgr,
		metrics:   m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			// Browser clients connect from the frontend host on a
			// different origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Path, s.handleConnection)

	s.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port),
		Handler:     mux,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Start begins accepting websocket connections
func (s *WSServer) Start() error {
	s.logger.Info("Starting websocket server",
		slog.String("address", s.server.Addr),
		slog.String("path", s.config.Path),
		slog.Int("max_connections", s.config.MaxConnections),
	)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Websocket server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the websocket server and waits for connection
// handlers to drain
func (s *WSServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping websocket server...")

	err := s.server.Shutdown(ctx)
	s.wg.Wait()

	stats := s.GetStatistics()
	s.logger.Info("Websocket server stopped",
		slog.Uint64("connections_opened", stats.ConnectionsOpened),
		slog.Uint64("messages_received", stats.MessagesReceived),
		slog.Uint64("results_sent", stats.ResultsSent),
		slog.Uint64("parse_errors", stats.ParseErrors),
	)

	return err
}

// reserveSlot claims one connection slot if the limit allows. The check
// and the increment happen under the same lock so concurrent upgrades
// cannot both pass a stale count and exceed the limit.
func (s *WSServer) reserveSlot() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeConnections >= uint64(s.config.MaxConnections) {
		return s.activeConnections, false
	}
	s.activeConnections++
	return s.activeConnections, true
}

// releaseSlot returns a slot claimed by reserveSlot.
func (s *WSServer) releaseSlot() {
	s.mu.Lock()
	s.activeConnections--
	s.mu.Unlock()
}

// handleConnection upgrades one HTTP request and runs its read loop
func (s *WSServer) handleConnection(w http.ResponseWriter, r *http.Request) {
	active, ok := s.reserveSlot()
	if !ok {
		s.logger.Warn("Rejecting connection, limit reached",
			slog.String("remote_addr", r.RemoteAddr),
			slog.Uint64("active_connections", active),
		)
		http.Error(w, "Connection limit reached", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.releaseSlot()
		s.logger.Warn("Websocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()),
		)
		return
	}

	session, err := s.streamMgr.CreateSession(r.RemoteAddr)
	if err != nil {
		s.releaseSlot()
		s.logger.Error("Failed to create session",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()),
		)
		conn.Close()
		return
	}

	s.mu.Lock()
	s.connectionsOpened++
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.RecordConnectionOpened()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			conn.Close()
			s.streamMgr.RemoveSession(session.ID)

			s.releaseSlot()
			if s.metrics != nil {
				s.metrics.RecordConnectionClosed()
			}
		}()

		s.readLoop(conn, session)
	}()
}

// readLoop processes inbound messages until the client disconnects
func (s *WSServer) readLoop(conn *websocket.Conn, session *stream.Session) {
	conn.SetReadLimit(s.config.ReadLimit)

	s.logger.Info("Client connected",
		slog.String("session_id", session.ID),
		slog.String("remote_addr", session.RemoteAddr),
	)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("Connection closed unexpectedly",
					slog.String("session_id", session.ID),
					slog.String("error", err.Error()),
				)
			} else {
				s.logger.Info("Client disconnected",
					slog.String("session_id", session.ID),
				)
			}
			return
		}

		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		s.mu.Lock()
		s.messagesReceived++
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordMessageReceived()
		}

		msg, err := protocol.ParseAudioMessage(data)
		if err != nil {
			s.mu.Lock()
			s.parseErrors++
			s.mu.Unlock()
			if s.metrics != nil {
				s.metrics.RecordParseError()
			}

			s.logger.Warn("Failed to parse audio message",
				slog.String("session_id", session.ID),
				slog.Int("message_size", len(data)),
				slog.String("error", err.Error()),
			)
			continue
		}

		for _, result := range session.ProcessMessage(msg.Buffer) {
			payload, err := protocol.EncodeResult(result)
			if err != nil {
				s.logger.Error("Failed to encode result",
					slog.String("session_id", session.ID),
					slog.String("error", err.Error()),
				)
				continue
			}

			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Warn("Failed to write result, closing connection",
					slog.String("session_id", session.ID),
					slog.String("error", err.Error()),
				)
				return
			}

			s.mu.Lock()
			s.resultsSent++
			s.mu.Unlock()
			if s.metrics != nil {
				s.metrics.RecordResultSent()
			}
		}
	}
}

// GetStatistics returns current server statistics
func (s *WSServer) GetStatistics() ServerStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ServerStatistics{
		ConnectionsOpened: s.connectionsOpened,
		ActiveConnections: s.activeConnections,
		MessagesReceived:  s.messagesReceived,
		ResultsSent:       s.resultsSent,
		ParseErrors:       s.parseErrors,
		ActiveSessions:    uint64(s.streamMgr.GetActiveSessionCount()),
	}
}

// ServerStatistics represents websocket server counters
type ServerStatistics struct {
	ConnectionsOpened uint64 `json:"connections_opened"`
	ActiveConnections uint64 `json:"active_connections"`
	MessagesReceived  uint64 `json:"messages_received"`
	ResultsSent       uint64 `json:"results_sent"`
	ParseErrors       uint64 `json:"parse_errors"`
	ActiveSessions    uint64 `json:"active_sessions"`
}
