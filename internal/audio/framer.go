package audio

import "fmt"

// FrameAssembler rebuffers a resampled sample stream into successive
// fixed-length analysis frames. Incoming chunks rarely align with the
// analysis window, so leftover samples carry over to the next push. The
// pending buffer never grows past one frame.
type FrameAssembler struct {
	frameSize int
	pending   []float64
}

// NewFrameAssembler creates an assembler emitting frames of frameSize
// samples.
func NewFrameAssembler(frameSize int) (*FrameAssembler, error) {
	if frameSize <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", frameSize)
	}
	return &FrameAssembler{
		frameSize: frameSize,
		pending:   make([]float64, 0, frameSize),
	}, nil
}

// Push appends samples to the pending buffer and returns every complete
// frame that became available, in order. Returned frames are freshly
// allocated and owned by the caller.
func (a *FrameAssembler) Push(samples []float64) [][]float64 {
	a.pending = append(a.pending, samples...)

	var frames [][]float64
	for len(a.pending) >= a.frameSize {
		frame := make([]float64, a.frameSize)
		copy(frame, a.pending[:a.frameSize])
		frames = append(frames, frame)

		n := copy(a.pending, a.pending[a.frameSize:])
		a.pending = a.pending[:n]
	}
	return frames
}

// Pending returns the number of samples awaiting a complete frame.
func (a *FrameAssembler) Pending() int {
	return len(a.pending)
}

// Reset discards any pending samples.
func (a *FrameAssembler) Reset() {
	a.pending = a.pending[:0]
}
