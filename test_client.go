package main

import (
	"encoding/json"
	"flag"
	"log"
	"math"
	"time"

	"github.com/gorilla/websocket"
)

// Streams synthetic audio at the service and prints the per-frame
// detection results: two seconds of background noise, one second of a
// 440Hz tone, then silence so the hangover release is visible.

type detectionResult struct {
	IsSpeech    bool    `json:"is_speech"`
	Confidence  float64 `json:"confidence"`
	SpeechVotes int     `json:"speech_votes"`
	FrameCount  uint64  `json:"frame_count"`
	RMSEnergy   float64 `json:"rms_energy"`
	Reason      string  `json:"vad_decision_reason"`
}

func main() {
	url := flag.String("url", "ws://localhost:3001/", "Websocket URL of the VAD service")
	sampleRate := flag.Int("rate", 44100, "Sample rate of the generated audio")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", *url, err)
	}
	defer conn.Close()

	log.Printf("🔊 Connected to %s, streaming synthetic audio at %d Hz", *url, *sampleRate)

	done := make(chan struct{})
	go func() {
		defer close(done)
		var lastSpeech bool
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var result detectionResult
			if err := json.Unmarshal(data, &result); err != nil {
				log.Printf("Bad result payload: %v", err)
				continue
			}

			if result.IsSpeech != lastSpeech {
				state := "🗣  SPEECH"
				if !result.IsSpeech {
					state = "🤫 silence"
				}
				log.Printf("%s at frame %d (votes=%d confidence=%.2f rms=%.5f) %s",
					state, result.FrameCount, result.SpeechVotes,
					result.Confidence, result.RMSEnergy, result.Reason)
				lastSpeech = result.IsSpeech
			}
		}
	}()

	chunkSize := 4096
	chunkInterval := time.Duration(float64(chunkSize) / float64(*sampleRate) * float64(time.Second))
	phases := []struct {
		name      string
		duration  time.Duration
		amplitude float64
		freq      float64
	}{
		{"background noise", 2 * time.Second, 0.0005, 0},
		{"tone burst", 1 * time.Second, 0.4, 440},
		{"silence", 2 * time.Second, 0, 0},
	}

	sample := 0
	for _, phase := range phases {
		log.Printf("▶ Phase: %s (%v)", phase.name, phase.duration)

		chunks := int(phase.duration / chunkInterval)
		for c := 0; c < chunks; c++ {
			buffer := make([]float64, chunkSize)
			for i := range buffer {
				switch {
				case phase.freq > 0:
					buffer[i] = phase.amplitude * math.Sin(2*math.Pi*phase.freq*float64(sample)/float64(*sampleRate))
				case phase.amplitude > 0:
					// Deterministic pseudo-noise, good enough for a smoke test.
					buffer[i] = phase.amplitude * math.Sin(float64(sample)*12.9898+78.233)
				}
				sample++
			}

			payload, err := json.Marshal(map[string]any{"buffer": buffer})
			if err != nil {
				log.Fatalf("Failed to marshal buffer: %v", err)
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Fatalf("Failed to send buffer: %v", err)
			}

			time.Sleep(chunkInterval)
		}
	}

	// Give the last results time to arrive before closing.
	time.Sleep(500 * time.Millisecond)
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}

	log.Println("✅ Done")
}
