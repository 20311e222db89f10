package vad

// featureRing is a fixed-capacity ring buffer of recent feature values.
// Push evicts the oldest value once the ring is full; both Push and Mean
// are O(capacity) at worst and never allocate after construction.
type featureRing struct {
	values []float64
	next   int
	count  int
}

func newFeatureRing(capacity int) *featureRing {
	return &featureRing{values: make([]float64, capacity)}
}

func (r *featureRing) Push(v float64) {
	r.values[r.next] = v
	r.next = (r.next + 1) % len(r.values)
	if r.count < len(r.values) {
		r.count++
	}
}

func (r *featureRing) Len() int {
	return r.count
}

// Mean returns the arithmetic mean of the held values, or 0 when empty.
func (r *featureRing) Mean() float64 {
	if r.count == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < r.count; i++ {
		sum += r.values[i]
	}
	return sum / float64(r.count)
}

// FeatureSmoother maintains a bounded history per feature and returns the
// running mean of each. All downstream decisions operate on the smoothed
// values, never on the raw per-frame features.
type FeatureSmoother struct {
	rms      *featureRing
	zcr      *featureRing
	flatness *featureRing
}

// NewFeatureSmoother creates a smoother holding the last historySize raw
// values per feature.
func NewFeatureSmoother(historySize int) *FeatureSmoother {
	return &FeatureSmoother{
		rms:      newFeatureRing(historySize),
		zcr:      newFeatureRing(historySize),
		flatness: newFeatureRing(historySize),
	}
}

// Smooth pushes the raw features into the history and returns the mean of
// each history window.
func (s *FeatureSmoother) Smooth(raw FeatureSet) FeatureSet {
	s.rms.Push(raw.RMS)
	s.zcr.Push(raw.ZCR)
	s.flatness.Push(raw.Flatness)

	return FeatureSet{
		RMS:      s.rms.Mean(),
		ZCR:      s.zcr.Mean(),
		Flatness: s.flatness.Mean(),
	}
}

// HistoryLen returns the number of frames currently held in the history.
func (s *FeatureSmoother) HistoryLen() int {
	return s.rms.Len()
}
