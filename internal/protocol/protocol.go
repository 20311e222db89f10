package protocol

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/voxsignal/vad-service/internal/vad"
)

// MaxBufferSamples caps the sample count of one inbound message. A typical
// capture chunk is 4096 samples; 10 seconds of 44.1kHz audio is a generous
// ceiling that still rejects absurd payloads before they allocate frames.
const MaxBufferSamples = 441000

// AudioMessage is the inbound websocket payload: one chunk of float
// samples at the client's capture rate.
type AudioMessage struct {
	Buffer []float64 `json:"buffer"`
}

// ParseAudioMessage decodes and validates an inbound message. Messages
// with a missing, empty or oversized buffer, or with non-finite samples,
// are rejected here so the pipeline only ever sees well-formed chunks.
func ParseAudioMessage(data []byte) (*AudioMessage, error) {
	var msg AudioMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode audio message: %w", err)
	}

	if len(msg.Buffer) == 0 {
		return nil, fmt.Errorf("audio message has no samples")
	}
	if len(msg.Buffer) > MaxBufferSamples {
		return nil, fmt.Errorf("audio message too large: %d samples (max %d)",
			len(msg.Buffer), MaxBufferSamples)
	}

	for i, s := range msg.Buffer {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("non-finite sample %v at index %d", s, i)
		}
	}

	return &msg, nil
}

// EncodeResult serializes one detection result for the client.
func EncodeResult(result *vad.Result) ([]byte, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return data, nil
}
