package stream

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxsignal/vad-service/internal/audio"
	"github.com/voxsignal/vad-service/internal/metrics"
	"github.com/voxsignal/vad-service/internal/vad"
)

// Session is one client's audio stream. It owns a single detection
// engine plus its resampler and frame assembler; nothing is shared
// between sessions. All processing for a session runs under its mutex,
// so frames reach the engine strictly in arrival order.
type Session struct {
	ID         string
	RemoteAddr string
	StartTime  time.Time

	manager *Manager

	mu           sync.Mutex
	lastActivity time.Time
	engine       *vad.Engine
	resampler    *audio.Resampler
	assembler    *audio.FrameAssembler
	segments     *SegmentTracker

	messagesReceived uint64
	framesProcessed  uint64
	speechFrames     uint64
	rejectedFrames   uint64
}

// Manager manages all active audio sessions
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	logger   *slog.Logger
	metrics  *metrics.Metrics

	engineCfg vad.Config
	inputRate int
	timeout   time.Duration
	interval  time.Duration

	done    chan struct{}
	cleanup chan struct{}
}

// ManagerConfig contains configuration for the session manager
type ManagerConfig struct {
	EngineConfig    vad.Config
	InputSampleRate int
	SessionTimeout  time.Duration
	CleanupInterval time.Duration
}

// NewManager creates a session manager and starts its cleanup routine.
// The metrics handle may be nil, in which case no metrics are recorded.
func NewManager(logger *slog.Logger, m *metrics.Metrics, config ManagerConfig) (*Manager, error) {
	if err := config.EngineConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if config.InputSampleRate <= 0 {
		return nil, fmt.Errorf("input sample rate must be positive, got %d", config.InputSampleRate)
	}
	if config.SessionTimeout <= 0 {
		return nil, fmt.Errorf("session timeout must be positive, got %v", config.SessionTimeout)
	}
	if config.CleanupInterval <= 0 {
		return nil, fmt.Errorf("cleanup interval must be positive, got %v", config.CleanupInterval)
	}

	mgr := &Manager{
		sessions:  make(map[string]*Session),
		logger:    logger,
		metrics:   m,
		engineCfg: config.EngineConfig,
		inputRate: config.InputSampleRate,
		timeout:   config.SessionTimeout,
		interval:  config.CleanupInterval,
		done:      make(chan struct{}),
		cleanup:   make(chan struct{}),
	}

	go mgr.startCleanupRoutine()

	return mgr, nil
}

// CreateSession creates a new audio session with its own engine
func (m *Manager) CreateSession(remoteAddr string) (*Session, error) {
	engine, err := vad.NewEngine(m.engineCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	resampler, err := audio.NewResampler(m.inputRate, m.engineCfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	assembler, err := audio.NewFrameAssembler(m.engineCfg.FrameSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create frame assembler: %w", err)
	}

	frameDuration := time.Duration(float64(m.engineCfg.FrameSize) /
		float64(m.engineCfg.SampleRate) * float64(time.Second))

	now := time.Now()
	session := &Session{
		ID:           uuid.NewString(),
		RemoteAddr:   remoteAddr,
		StartTime:    now,
		lastActivity: now,
		manager:      m,
		engine:       engine,
		resampler:    resampler,
		assembler:    assembler,
		segments:     NewSegmentTracker(frameDuration),
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	count := len(m.sessions)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordSessionCreated()
		m.metrics.SetActiveSessions(count)
	}

	m.logger.Info("Created new audio session",
		slog.String("session_id", session.ID),
		slog.String("remote_addr", remoteAddr),
		slog.Int("input_sample_rate", m.inputRate),
		slog.Int("analysis_sample_rate", m.engineCfg.SampleRate),
	)

	return session, nil
}

// GetSession retrieves an existing session
func (m *Manager) GetSession(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	return session, exists
}

// GetActiveSessionCount returns the number of currently active sessions
func (m *Manager) GetActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetAllSessionInfo returns a monitoring snapshot of all active sessions
func (m *Manager) GetAllSessionInfo() []SessionInfo {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, session.Info())
	}
	return infos
}

// RemoveSession removes a session, closing any open speech segment
func (m *Manager) RemoveSession(id string) bool {
	m.mu.Lock()
	session, exists := m.sessions[id]
	if exists {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if !exists {
		return false
	}

	session.mu.Lock()
	if seg := session.segments.Flush(); seg != nil {
		if m.metrics != nil {
			m.metrics.RecordSpeechSegment(seg.Seconds)
		}
	}
	frames := session.framesProcessed
	speech := session.speechFrames
	rejected := session.rejectedFrames
	session.mu.Unlock()

	duration := time.Since(session.StartTime)
	if m.metrics != nil {
		m.metrics.RecordSessionDestroyed(duration.Seconds())
		m.metrics.SetActiveSessions(count)
	}

	m.logger.Info("Audio session removed",
		slog.String("session_id", id),
		slog.Duration("duration", duration),
		slog.Uint64("frames_processed", frames),
		slog.Uint64("speech_frames", speech),
		slog.Uint64("rejected_frames", rejected),
	)

	return true
}

// Stop gracefully stops the manager and removes all sessions
func (m *Manager) Stop() {
	m.logger.Info("Stopping session manager...")

	close(m.done)
	<-m.cleanup

	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.RemoveSession(id)
	}

	m.logger.Info("Session manager stopped")
}

// startCleanupRoutine reaps idle sessions until the manager stops.
func (m *Manager) startCleanupRoutine() {
	defer close(m.cleanup)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("Session cleanup routine started",
		slog.Duration("timeout", m.timeout),
		slog.Duration("check_interval", m.interval),
	)

	for {
		select {
		case <-m.done:
			m.logger.Info("Session cleanup routine stopping")
			return

		case <-ticker.C:
			m.cleanupExpiredSessions()
		}
	}
}

// cleanupExpiredSessions removes sessions that have been inactive for too long
func (m *Manager) cleanupExpiredSessions() {
	now := time.Now()
	expired := make([]string, 0)

	m.mu.RLock()
	for id, session := range m.sessions {
		session.mu.Lock()
		lastActivity := session.lastActivity
		session.mu.Unlock()

		if now.Sub(lastActivity) > m.timeout {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	if len(expired) > 0 {
		m.logger.Info("Cleaning up expired sessions",
			slog.Int("expired_count", len(expired)),
		)

		for _, id := range expired {
			m.RemoveSession(id)
		}
	}
}

// ProcessMessage runs one inbound audio buffer through the session
// pipeline: resample to the analysis rate, cut into frames, classify
// each frame in order. Malformed frames are counted and skipped; the
// session keeps going. Returns one result per completed frame.
func (s *Session) ProcessMessage(samples []float64) []*vad.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActivity = time.Now()
	s.messagesReceived++

	m := s.manager.metrics
	resampled := s.resampler.Resample(samples)
	frames := s.assembler.Push(resampled)

	results := make([]*vad.Result, 0, len(frames))
	for _, frame := range frames {
		start := time.Now()
		result, err := s.engine.ProcessFrame(frame)
		if err != nil {
			s.rejectedFrames++
			if m != nil {
				m.RecordRejectedFrame()
			}
			s.manager.logger.Warn("Dropping malformed frame",
				slog.String("session_id", s.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		s.framesProcessed++
		if result.IsSpeech {
			s.speechFrames++
		}
		if m != nil {
			m.RecordFrame(result.IsSpeech, time.Since(start).Seconds())
		}

		if seg := s.segments.Observe(result); seg != nil {
			if m != nil {
				m.RecordSpeechSegment(seg.Seconds)
			}
			s.manager.logger.Debug("Speech segment completed",
				slog.String("session_id", s.ID),
				slog.Uint64("start_frame", seg.StartFrame),
				slog.Uint64("end_frame", seg.EndFrame),
				slog.Float64("duration", seg.Seconds),
			)
		}

		results = append(results, result)
	}

	return results
}

// Info returns a monitoring snapshot of the session
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.engine.State()
	floor := s.engine.NoiseFloor()

	voicePct := 0.0
	if s.framesProcessed > 0 {
		voicePct = float64(s.speechFrames) / float64(s.framesProcessed) * 100
	}

	return SessionInfo{
		SessionID:          s.ID,
		RemoteAddr:         s.RemoteAddr,
		StartTime:          s.StartTime,
		LastActivity:       s.lastActivity,
		DurationSeconds:    time.Since(s.StartTime).Seconds(),
		MessagesReceived:   s.messagesReceived,
		FramesProcessed:    s.framesProcessed,
		SpeechFrames:       s.speechFrames,
		RejectedFrames:     s.rejectedFrames,
		PendingSamples:     s.assembler.Pending(),
		VoicePercentage:    voicePct,
		VoiceActive:        state.VoiceActive,
		HangoverCounter:    state.HangoverCounter,
		RMSNoiseFloor:      floor.RMS,
		ZCRNoiseFloor:      floor.ZCR,
		FlatnessNoiseFloor: floor.Flatness,
		SpeechSegments:     s.segments.Completed(),
		RecentSegments:     s.segments.Recent(),
	}
}

// SessionInfo represents session information for monitoring and APIs
type SessionInfo struct {
	SessionID          string    `json:"session_id"`
	RemoteAddr         string    `json:"remote_addr"`
	StartTime          time.Time `json:"start_time"`
	LastActivity       time.Time `json:"last_activity"`
	DurationSeconds    float64   `json:"duration_seconds"`
	MessagesReceived   uint64    `json:"messages_received"`
	FramesProcessed    uint64    `json:"frames_processed"`
	SpeechFrames       uint64    `json:"speech_frames"`
	RejectedFrames     uint64    `json:"rejected_frames"`
	PendingSamples     int       `json:"pending_samples"`
	VoicePercentage    float64   `json:"voice_percentage"`
	VoiceActive        bool      `json:"voice_active"`
	HangoverCounter    int       `json:"hangover_counter"`
	RMSNoiseFloor      float64   `json:"rms_noise_floor"`
	ZCRNoiseFloor      float64   `json:"zcr_noise_floor"`
	FlatnessNoiseFloor float64   `json:"flatness_noise_floor"`
	SpeechSegments     uint64    `json:"speech_segments"`
	RecentSegments     []Segment `json:"recent_segments,omitempty"`
}
