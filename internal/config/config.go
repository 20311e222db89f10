package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/voxsignal/vad-service/internal/vad"
)

// Config represents the complete service configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	HTTP     HTTPConfig     `yaml:"http"`
	Frontend FrontendConfig `yaml:"frontend"`
	Audio    AudioConfig    `yaml:"audio"`
	VAD      VADConfig      `yaml:"vad"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains websocket server configuration
type ServerConfig struct {
	Port           int    `yaml:"port"`
	BindAddress    string `yaml:"bind_address"`
	Path           string `yaml:"path"`
	MaxConnections int    `yaml:"max_connections"`
	ReadLimit      int64  `yaml:"read_limit"` // bytes per inbound message
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// FrontendConfig contains static frontend server configuration
type FrontendConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Root    string `yaml:"root"`
	Enabled bool   `yaml:"enabled"`
}

// AudioConfig contains audio ingest parameters
type AudioConfig struct {
	InputSampleRate int     `yaml:"input_sample_rate"` // Hz, rate of samples arriving on the wire
	StreamTimeout   int     `yaml:"stream_timeout"`    // seconds of inactivity before cleanup
	CleanupInterval float64 `yaml:"cleanup_interval"`  // seconds between cleanup sweeps
}

// VADConfig contains Voice Activity Detection configuration
type VADConfig struct {
	SampleRate         int     `yaml:"sample_rate"` // Hz, analysis rate
	FrameSize          int     `yaml:"frame_size"`  // samples
	HistorySize        int     `yaml:"history_size"`
	AdaptationAlpha    float64 `yaml:"adaptation_alpha"`
	HangoverFrames     int     `yaml:"hangover_frames"`
	MinSpeechFrames    int     `yaml:"min_speech_frames"`
	RMSMultiplier      float64 `yaml:"rms_multiplier"`
	ZCRMultiplier      float64 `yaml:"zcr_multiplier"`
	FlatnessMultiplier float64 `yaml:"flatness_multiplier"`
	MinSpeechVotes     int     `yaml:"min_speech_votes"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the reference configuration used when no file is given.
func Default() *Config {
	engine := vad.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Port:           3001,
			BindAddress:    "0.0.0.0",
			Path:           "/",
			MaxConnections: 100,
			ReadLimit:      8 << 20,
		},
		HTTP: HTTPConfig{
			Port:    8080,
			Address: "0.0.0.0",
			Enabled: true,
		},
		Frontend: FrontendConfig{
			Port:    3002,
			Address: "0.0.0.0",
			Root:    "web",
			Enabled: false,
		},
		Audio: AudioConfig{
			InputSampleRate: 44100,
			StreamTimeout:   60,
			CleanupInterval: 30,
		},
		VAD: VADConfig{
			SampleRate:         engine.SampleRate,
			FrameSize:          engine.FrameSize,
			HistorySize:        engine.HistorySize,
			AdaptationAlpha:    engine.AdaptationAlpha,
			HangoverFrames:     engine.HangoverFrames,
			MinSpeechFrames:    engine.MinSpeechFrames,
			RMSMultiplier:      engine.RMSMultiplier,
			ZCRMultiplier:      engine.ZCRMultiplier,
			FlatnessMultiplier: engine.FlatnessMult,
			MinSpeechVotes:     engine.MinSpeechVotes,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Frontend.Validate(); err != nil {
		return fmt.Errorf("frontend config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.VAD.Validate(); err != nil {
		return fmt.Errorf("vad config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates websocket server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}

	if s.Path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	if s.MaxConnections < 1 {
		return fmt.Errorf("max_connections must be at least 1, got %d", s.MaxConnections)
	}

	if s.ReadLimit < 1024 {
		return fmt.Errorf("read_limit must be at least 1024 bytes, got %d", s.ReadLimit)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates frontend configuration
func (f *FrontendConfig) Validate() error {
	if f.Enabled {
		if f.Port < 1 || f.Port > 65535 {
			return fmt.Errorf("frontend port must be between 1 and 65535, got %d", f.Port)
		}

		if f.Address == "" {
			return fmt.Errorf("frontend address cannot be empty when frontend is enabled")
		}

		if f.Root == "" {
			return fmt.Errorf("frontend root cannot be empty when frontend is enabled")
		}
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.InputSampleRate < 8000 {
		return fmt.Errorf("input_sample_rate must be at least 8000 Hz, got %d", a.InputSampleRate)
	}

	if a.StreamTimeout < 1 {
		return fmt.Errorf("stream_timeout must be at least 1 second, got %d", a.StreamTimeout)
	}

	if a.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup_interval must be positive, got %f", a.CleanupInterval)
	}

	return nil
}

// Validate validates VAD configuration by mapping onto the engine's own
// parameter validation.
func (v *VADConfig) Validate() error {
	return v.EngineConfig().Validate()
}

// EngineConfig converts the YAML section into engine parameters.
func (v *VADConfig) EngineConfig() vad.Config {
	return vad.Config{
		SampleRate:      v.SampleRate,
		FrameSize:       v.FrameSize,
		HistorySize:     v.HistorySize,
		AdaptationAlpha: v.AdaptationAlpha,
		HangoverFrames:  v.HangoverFrames,
		MinSpeechFrames: v.MinSpeechFrames,
		RMSMultiplier:   v.RMSMultiplier,
		ZCRMultiplier:   v.ZCRMultiplier,
		FlatnessMult:    v.FlatnessMultiplier,
		MinSpeechVotes:  v.MinSpeechVotes,
	}
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	if l.Output == "" {
		return fmt.Errorf("output cannot be empty")
	}

	return nil
}

// GetStreamTimeoutDuration returns the stream timeout as a time.Duration
func (a *AudioConfig) GetStreamTimeoutDuration() time.Duration {
	return time.Duration(a.StreamTimeout) * time.Second
}

// GetCleanupInterval returns the cleanup sweep interval as a time.Duration
func (a *AudioConfig) GetCleanupInterval() time.Duration {
	return time.Duration(a.CleanupInterval * float64(time.Second))
}

// FrameDuration returns the wall-clock length of one analysis frame
func (v *VADConfig) FrameDuration() time.Duration {
	return time.Duration(float64(v.FrameSize) / float64(v.SampleRate) * float64(time.Second))
}
