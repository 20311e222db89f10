package stream

import (
	"time"

	"github.com/voxsignal/vad-service/internal/vad"
)

// maxRecentSegments bounds the per-session segment history kept for the
// monitoring API.
const maxRecentSegments = 32

// Segment is one contiguous run of speech-classified frames.
type Segment struct {
	StartFrame uint64        `json:"start_frame"`
	EndFrame   uint64        `json:"end_frame"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Frames     uint64        `json:"frames"`
	Duration   time.Duration `json:"-"`
	Seconds    float64       `json:"duration_seconds"`
}

// SegmentTracker folds per-frame detection results into speech segments.
// A segment opens on the first active frame after silence and closes on
// the first inactive frame after speech. Not goroutine safe; the owning
// session serializes access.
type SegmentTracker struct {
	frameDuration time.Duration

	active     bool
	startFrame uint64
	startTime  time.Time
	lastFrame  uint64

	completed uint64
	recent    []Segment
}

// NewSegmentTracker creates a tracker for frames of the given wall-clock
// length.
func NewSegmentTracker(frameDuration time.Duration) *SegmentTracker {
	return &SegmentTracker{frameDuration: frameDuration}
}

// Observe feeds one detection result to the tracker. It returns the
// completed segment when this frame closed one, nil otherwise.
func (t *SegmentTracker) Observe(result *vad.Result) *Segment {
	if result.IsSpeech {
		if !t.active {
			t.active = true
			t.startFrame = result.FrameCount
			t.startTime = result.Timestamp
		}
		t.lastFrame = result.FrameCount
		return nil
	}

	if !t.active {
		return nil
	}
	return t.close(result.Timestamp)
}

// Flush closes any open segment, for use when the session ends mid-speech.
func (t *SegmentTracker) Flush() *Segment {
	if !t.active {
		return nil
	}
	return t.close(time.Now())
}

func (t *SegmentTracker) close(end time.Time) *Segment {
	frames := t.lastFrame - t.startFrame + 1
	seg := Segment{
		StartFrame: t.startFrame,
		EndFrame:   t.lastFrame,
		StartTime:  t.startTime,
		EndTime:    end,
		Frames:     frames,
		Duration:   time.Duration(frames) * t.frameDuration,
	}
	seg.Seconds = seg.Duration.Seconds()

	t.active = false
	t.completed++
	t.recent = append(t.recent, seg)
	if len(t.recent) > maxRecentSegments {
		t.recent = t.recent[len(t.recent)-maxRecentSegments:]
	}
	return &seg
}

// Active reports whether a segment is currently open.
func (t *SegmentTracker) Active() bool {
	return t.active
}

// Completed returns the number of closed segments.
func (t *SegmentTracker) Completed() uint64 {
	return t.completed
}

// Recent returns a copy of the most recently closed segments, oldest
// first.
func (t *SegmentTracker) Recent() []Segment {
	out := make([]Segment, len(t.recent))
	copy(out, t.recent)
	return out
}
