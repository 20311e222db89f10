package vad

import (
	"fmt"
	"time"
)

// Default engine parameters: 20ms frames at 16kHz, a 10-frame smoothing
// history, and a 240ms hangover window.
const (
	DefaultSampleRate      = 16000
	DefaultFrameSize       = 320
	DefaultHistorySize     = 10
	DefaultAdaptationAlpha = 0.95
	DefaultHangoverFrames  = 12
	DefaultMinSpeechFrames = 3

	defaultRMSMultiplier      = 2.0
	defaultZCRMultiplier      = 1.5
	defaultFlatnessMultiplier = 0.8
	defaultMinSpeechVotes     = 2
)

// Config holds the tunable parameters of one detection engine.
type Config struct {
	SampleRate       int     // analysis sample rate in Hz
	FrameSize        int     // samples per analysis frame
	HistorySize      int     // frames of feature history for smoothing
	AdaptationAlpha  float64 // noise floor smoothing factor
	HangoverFrames   int     // frames to hold activity after votes stop
	MinSpeechFrames  int     // consecutive votes required to activate
	RMSMultiplier    float64 // RMS threshold = floor * multiplier
	ZCRMultiplier    float64 // ZCR threshold = floor * multiplier
	FlatnessMult     float64 // flatness threshold = floor * multiplier
	MinSpeechVotes   int     // features that must agree for a speech vote
}

// DefaultConfig returns the reference engine parameters.
func DefaultConfig() Config {
	return Config{
		SampleRate:      DefaultSampleRate,
		FrameSize:       DefaultFrameSize,
		HistorySize:     DefaultHistorySize,
		AdaptationAlpha: DefaultAdaptationAlpha,
		HangoverFrames:  DefaultHangoverFrames,
		MinSpeechFrames: DefaultMinSpeechFrames,
		RMSMultiplier:   defaultRMSMultiplier,
		ZCRMultiplier:   defaultZCRMultiplier,
		FlatnessMult:    defaultFlatnessMultiplier,
		MinSpeechVotes:  defaultMinSpeechVotes,
	}
}

// Validate checks the configuration for usable values.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.FrameSize <= 0 {
		return fmt.Errorf("frame size must be positive, got %d", c.FrameSize)
	}
	if c.HistorySize < 1 {
		return fmt.Errorf("history size must be at least 1, got %d", c.HistorySize)
	}
	if c.AdaptationAlpha < 0 || c.AdaptationAlpha >= 1 {
		return fmt.Errorf("adaptation alpha must be in [0, 1), got %f", c.AdaptationAlpha)
	}
	if c.HangoverFrames < 0 {
		return fmt.Errorf("hangover frames cannot be negative, got %d", c.HangoverFrames)
	}
	if c.MinSpeechFrames < 1 {
		return fmt.Errorf("min speech frames must be at least 1, got %d", c.MinSpeechFrames)
	}
	if c.MinSpeechVotes < 1 || c.MinSpeechVotes > 3 {
		return fmt.Errorf("min speech votes must be between 1 and 3, got %d", c.MinSpeechVotes)
	}
	return nil
}

// EngineState is the authoritative per-session mutable state, updated
// exactly once per accepted frame in arrival order.
type EngineState struct {
	VoiceActive      bool
	HangoverCounter  int
	SpeechFrameCount int
	FrameCount       uint64
}

// Result is the per-frame detection output. It is assembled fresh for
// every processed frame and immutable once returned.
type Result struct {
	IsSpeech           bool             `json:"is_speech"`
	Confidence         float64          `json:"confidence"`
	SpeechVotes        int              `json:"speech_votes"`
	FrameCount         uint64           `json:"frame_count"`
	Timestamp          time.Time        `json:"timestamp"`
	RMSEnergy          float64          `json:"rms_energy"`
	RMSNoiseFloor      float64          `json:"rms_noise_floor"`
	ZCR                float64          `json:"zcr"`
	ZCRNoiseFloor      float64          `json:"zcr_noise_floor"`
	SpectralFlatness   float64          `json:"spectral_flatness"`
	FlatnessNoiseFloor float64          `json:"flatness_noise_floor"`
	FeatureDecisions   FeatureDecisions `json:"feature_decisions"`
	DecisionReason     string           `json:"vad_decision_reason"`
}

// Engine runs the full per-frame detection pipeline for one audio
// session: extract -> smooth -> adapt floors -> vote -> hangover.
// An Engine owns all of its state, is independently constructible and
// disposable, and shares nothing across sessions. It is not goroutine
// safe; callers must feed frames strictly in arrival order, since both
// the noise floor adaptation and the hangover timing depend on the
// sequential frame history.
type Engine struct {
	cfg        Config
	extractor  *FeatureExtractor
	smoother   *FeatureSmoother
	floors     *NoiseFloorEstimator
	decision   *DecisionEngine
	hangover   *HangoverStateMachine
	frameCount uint64
}

// NewEngine creates an engine for one audio session.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	extractor, err := NewFeatureExtractor(cfg.FrameSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create feature extractor: %w", err)
	}

	return &Engine{
		cfg:       cfg,
		extractor: extractor,
		smoother:  NewFeatureSmoother(cfg.HistorySize),
		floors:    NewNoiseFloorEstimator(cfg.AdaptationAlpha),
		decision:  NewDecisionEngine(cfg.RMSMultiplier, cfg.ZCRMultiplier, cfg.FlatnessMult, cfg.MinSpeechVotes),
		hangover:  NewHangoverStateMachine(cfg.MinSpeechFrames, cfg.HangoverFrames),
	}, nil
}

// ProcessFrame classifies one analysis frame and returns the detection
// result. On a rejected frame (*InvalidFrameError) no state is mutated
// and the frame counter does not advance; the caller decides whether to
// skip the frame or tear down the session.
func (e *Engine) ProcessFrame(frame []float64) (*Result, error) {
	raw, err := e.extractor.Extract(frame)
	if err != nil {
		return nil, err
	}

	e.frameCount++
	smoothed := e.smoother.Smooth(raw)

	// Adapt floors only in true silence, judged from the state machine
	// before this frame's transition. An active hangover tail still
	// freezes the floors even though the raw vote already dropped.
	if e.hangover.InSilence() {
		e.floors.Update(smoothed)
	}

	floor := e.floors.Floor()
	decisions, votes, detected := e.decision.Decide(smoothed, floor)
	active := e.hangover.Update(detected)

	return &Result{
		IsSpeech:           active,
		Confidence:         float64(votes) / 3.0,
		SpeechVotes:        votes,
		FrameCount:         e.frameCount,
		Timestamp:          time.Now(),
		RMSEnergy:          smoothed.RMS,
		RMSNoiseFloor:      floor.RMS,
		ZCR:                smoothed.ZCR,
		ZCRNoiseFloor:      floor.ZCR,
		SpectralFlatness:   smoothed.Flatness,
		FlatnessNoiseFloor: floor.Flatness,
		FeatureDecisions:   decisions,
		DecisionReason: fmt.Sprintf("RMS=%t, ZCR=%t, Flatness=%t",
			decisions.RMS, decisions.ZCR, decisions.Flatness),
	}, nil
}

// State returns a snapshot of the engine's session state.
func (e *Engine) State() EngineState {
	return EngineState{
		VoiceActive:      e.hangover.VoiceActive(),
		HangoverCounter:  e.hangover.HangoverCounter(),
		SpeechFrameCount: e.hangover.SpeechFrameCount(),
		FrameCount:       e.frameCount,
	}
}

// NoiseFloor returns the current adaptive floors.
func (e *Engine) NoiseFloor() NoiseFloor {
	return e.floors.Floor()
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}
