package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/voxsignal/vad-service/internal/vad"
)

func TestParseAudioMessage(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		expectErr bool
		samples   int
	}{
		{
			name:    "valid buffer",
			payload: `{"buffer": [0.1, -0.2, 0.0, 0.5]}`,
			samples: 4,
		},
		{
			name:    "integer samples",
			payload: `{"buffer": [0, 1, -1]}`,
			samples: 3,
		},
		{
			name:      "empty buffer",
			payload:   `{"buffer": []}`,
			expectErr: true,
		},
		{
			name:      "missing buffer",
			payload:   `{"other": 1}`,
			expectErr: true,
		},
		{
			name:      "null buffer",
			payload:   `{"buffer": null}`,
			expectErr: true,
		},
		{
			name:      "not json",
			payload:   `buffer=1,2,3`,
			expectErr: true,
		},
		{
			name:      "string samples",
			payload:   `{"buffer": ["a", "b"]}`,
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseAudioMessage([]byte(tt.payload))
			if tt.expectErr {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			if len(msg.Buffer) != tt.samples {
				t.Errorf("Expected %d samples, got %d", tt.samples, len(msg.Buffer))
			}
		})
	}
}

func TestParseAudioMessageRejectsOversizedBuffer(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"buffer": [`)
	for i := 0; i <= MaxBufferSamples; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("0")
	}
	b.WriteString(`]}`)

	if _, err := ParseAudioMessage([]byte(b.String())); err == nil {
		t.Error("Expected error for oversized buffer")
	}
}

func TestEncodeResultRoundTrip(t *testing.T) {
	result := &vad.Result{
		IsSpeech:         true,
		Confidence:       2.0 / 3.0,
		SpeechVotes:      2,
		FrameCount:       42,
		RMSEnergy:        0.05,
		RMSNoiseFloor:    0.001,
		ZCR:              0.25,
		ZCRNoiseFloor:    0.01,
		SpectralFlatness: 0.4,
		FeatureDecisions: vad.FeatureDecisions{RMS: true, ZCR: true},
		DecisionReason:   "RMS=true, ZCR=true, Flatness=false",
	}

	data, err := EncodeResult(result)
	if err != nil {
		t.Fatalf("Failed to encode result: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Encoded result is not valid JSON: %v", err)
	}

	// Clients key off these exact field names.
	for _, field := range []string{
		"is_speech", "confidence", "speech_votes", "frame_count", "timestamp",
		"rms_energy", "rms_noise_floor", "zcr", "zcr_noise_floor",
		"spectral_flatness", "flatness_noise_floor", "feature_decisions",
		"vad_decision_reason",
	} {
		if _, ok := decoded[field]; !ok {
			t.Errorf("Encoded result missing field %q", field)
		}
	}

	decisions, ok := decoded["feature_decisions"].(map[string]any)
	if !ok {
		t.Fatal("feature_decisions is not an object")
	}
	for _, field := range []string{"rms", "zcr", "spectral_flatness"} {
		if _, ok := decisions[field]; !ok {
			t.Errorf("feature_decisions missing field %q", field)
		}
	}

	if decoded["is_speech"] != true {
		t.Errorf("Expected is_speech true, got %v", decoded["is_speech"])
	}
	if decoded["speech_votes"].(float64) != 2 {
		t.Errorf("Expected speech_votes 2, got %v", decoded["speech_votes"])
	}
}
