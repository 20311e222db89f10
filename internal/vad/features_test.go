package vad

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

// sineFrame generates one frame of a pure tone.
func sineFrame(n int, freq float64, amplitude float64, sampleRate float64) []float64 {
	frame := make([]float64, n)
	for i := range frame {
		frame[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}
	return frame
}

// noiseFrame generates one frame of uniform white noise in [-amplitude, amplitude].
func noiseFrame(n int, amplitude float64, rng *rand.Rand) []float64 {
	frame := make([]float64, n)
	for i := range frame {
		frame[i] = amplitude * (2*rng.Float64() - 1)
	}
	return frame
}

func TestNewFeatureExtractorValidation(t *testing.T) {
	if _, err := NewFeatureExtractor(0); err == nil {
		t.Error("Expected error for zero frame size")
	}
	if _, err := NewFeatureExtractor(-5); err == nil {
		t.Error("Expected error for negative frame size")
	}
	if _, err := NewFeatureExtractor(320); err != nil {
		t.Errorf("Expected no error for valid frame size, got: %v", err)
	}
}

func TestExtractRejectsMalformedFrames(t *testing.T) {
	extractor, err := NewFeatureExtractor(320)
	if err != nil {
		t.Fatalf("Failed to create extractor: %v", err)
	}

	tests := []struct {
		name  string
		frame []float64
	}{
		{name: "empty frame", frame: []float64{}},
		{name: "nil frame", frame: nil},
		{name: "NaN sample", frame: []float64{0.1, math.NaN(), 0.2}},
		{name: "positive Inf sample", frame: []float64{0.1, math.Inf(1)}},
		{name: "negative Inf sample", frame: []float64{math.Inf(-1), 0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extractor.Extract(tt.frame)
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			var invalid *InvalidFrameError
			if !errors.As(err, &invalid) {
				t.Errorf("Expected *InvalidFrameError, got %T: %v", err, err)
			}
		})
	}
}

func TestExtractReusesBuffersAcrossFrames(t *testing.T) {
	extractor, err := NewFeatureExtractor(320)
	if err != nil {
		t.Fatalf("Failed to create extractor: %v", err)
	}

	// The FFT coefficient buffer is sized once per frame length and reused
	// on every call; each extraction, from the very first frame onward,
	// must yield finite in-range features.
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		features, err := extractor.Extract(noiseFrame(320, 0.3, rng))
		if err != nil {
			t.Fatalf("Extract failed on frame %d: %v", i+1, err)
		}
		if math.IsNaN(features.RMS) || math.IsNaN(features.ZCR) || math.IsNaN(features.Flatness) {
			t.Fatalf("Non-finite features on frame %d: %+v", i+1, features)
		}
		if features.Flatness < 0 || features.Flatness > 1+1e-9 {
			t.Fatalf("Flatness out of range on frame %d: %v", i+1, features.Flatness)
		}
	}
}

func TestRMSEnergy(t *testing.T) {
	tests := []struct {
		name  string
		frame []float64
		want  float64
	}{
		{name: "all zeros", frame: make([]float64, 320), want: 0},
		{name: "constant one", frame: []float64{1, 1, 1, 1}, want: 1},
		{name: "alternating unit", frame: []float64{1, -1, 1, -1}, want: 1},
		{name: "half amplitude", frame: []float64{0.5, -0.5, 0.5, -0.5}, want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rmsEnergy(tt.frame)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("rmsEnergy = %v, want %v", got, tt.want)
			}
		})
	}

	// A full-scale sine has RMS amplitude/sqrt(2).
	frame := sineFrame(320, 1000, 1.0, 16000)
	got := rmsEnergy(frame)
	want := 1.0 / math.Sqrt2
	if math.Abs(got-want) > 0.01 {
		t.Errorf("sine rmsEnergy = %v, want ~%v", got, want)
	}
}

func TestZeroCrossingRateWeighting(t *testing.T) {
	tests := []struct {
		name  string
		frame []float64
		want  float64
	}{
		// No sign changes at all.
		{name: "constant positive", frame: []float64{1, 2, 3, 4}, want: 0},
		{name: "all zeros", frame: []float64{0, 0, 0, 0}, want: 0},
		// A full flip -1 -> +1 contributes |1-(-1)| = 2.
		{name: "full flips", frame: []float64{1, -1, 1, -1}, want: 6.0 / 4.0},
		// A transition through an exact zero contributes 1 on each side.
		{name: "through zero", frame: []float64{1, 0, -1, 0}, want: 3.0 / 4.0},
		// Mixed: +1 -> 0 (1), 0 -> +1 (1), +1 -> -1 (2).
		{name: "mixed weights", frame: []float64{0.5, 0, 0.7, -0.2}, want: 4.0 / 4.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := zeroCrossingRate(tt.frame)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("zeroCrossingRate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpectralFlatnessContrast(t *testing.T) {
	extractor, err := NewFeatureExtractor(320)
	if err != nil {
		t.Fatalf("Failed to create extractor: %v", err)
	}

	tonal, err := extractor.Extract(sineFrame(320, 1000, 0.5, 16000))
	if err != nil {
		t.Fatalf("Failed to extract tonal frame: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	noisy, err := extractor.Extract(noiseFrame(320, 0.5, rng))
	if err != nil {
		t.Fatalf("Failed to extract noise frame: %v", err)
	}

	// Tonal content concentrates energy in a few bins, so its flatness
	// must be far below broadband noise.
	if tonal.Flatness >= noisy.Flatness {
		t.Errorf("Expected tonal flatness (%v) below noise flatness (%v)",
			tonal.Flatness, noisy.Flatness)
	}
	if tonal.Flatness > 0.05 {
		t.Errorf("Expected near-zero flatness for pure tone, got %v", tonal.Flatness)
	}
	if noisy.Flatness < 0.3 {
		t.Errorf("Expected high flatness for white noise, got %v", noisy.Flatness)
	}
}

func TestSpectralFlatnessSilentFrame(t *testing.T) {
	extractor, err := NewFeatureExtractor(320)
	if err != nil {
		t.Fatalf("Failed to create extractor: %v", err)
	}

	// All-zero frame: every magnitude collapses to the epsilon, so the
	// geometric and arithmetic means coincide and flatness is exactly 1.
	features, err := extractor.Extract(make([]float64, 320))
	if err != nil {
		t.Fatalf("Failed to extract silent frame: %v", err)
	}
	if math.Abs(features.Flatness-1.0) > 1e-9 {
		t.Errorf("Expected flatness 1.0 for silent frame, got %v", features.Flatness)
	}
	if features.RMS != 0 {
		t.Errorf("Expected zero RMS for silent frame, got %v", features.RMS)
	}
	if features.ZCR != 0 {
		t.Errorf("Expected zero ZCR for silent frame, got %v", features.ZCR)
	}
}

func TestExtractorReplansOnLengthChange(t *testing.T) {
	extractor, err := NewFeatureExtractor(320)
	if err != nil {
		t.Fatalf("Failed to create extractor: %v", err)
	}

	// A different frame length must still produce valid features.
	features, err := extractor.Extract(sineFrame(160, 1000, 0.5, 16000))
	if err != nil {
		t.Fatalf("Failed to extract shorter frame: %v", err)
	}
	if features.Flatness < 0 || features.Flatness > 1 {
		t.Errorf("Flatness out of range after replan: %v", features.Flatness)
	}

	// And switching back works too.
	if _, err := extractor.Extract(sineFrame(320, 1000, 0.5, 16000)); err != nil {
		t.Fatalf("Failed to extract original length after replan: %v", err)
	}
}
