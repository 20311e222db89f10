package vad

import "math"

// Initial noise floor values and clamp ranges. The floors start low so the
// first seconds of real silence pull them up to the ambient level instead
// of down from an arbitrary guess.
const (
	initialRMSFloor      = 0.0001
	initialZCRFloor      = 0.01
	initialFlatnessFloor = 0.1

	minRMSFloor      = 0.0001
	minZCRFloor      = 0.01
	maxZCRFloor      = 0.9
	minFlatnessFloor = 0.01
	maxFlatnessFloor = 0.99
)

// NoiseFloor holds the per-feature silence baselines.
type NoiseFloor struct {
	RMS      float64
	ZCR      float64
	Flatness float64
}

// NoiseFloorEstimator exponentially adapts the noise floors toward the
// smoothed features. The caller only invokes Update on frames the state
// machine judges to be true silence (voice inactive and no hangover),
// which keeps the estimate from drifting toward speech statistics.
type NoiseFloorEstimator struct {
	alpha float64
	floor NoiseFloor
}

// NewNoiseFloorEstimator creates an estimator with smoothing factor alpha.
// Larger alpha adapts more slowly.
func NewNoiseFloorEstimator(alpha float64) *NoiseFloorEstimator {
	return &NoiseFloorEstimator{
		alpha: alpha,
		floor: NoiseFloor{
			RMS:      initialRMSFloor,
			ZCR:      initialZCRFloor,
			Flatness: initialFlatnessFloor,
		},
	}
}

// Update folds the smoothed features into the floors and clamps each
// floor to its valid range.
func (e *NoiseFloorEstimator) Update(smoothed FeatureSet) {
	e.floor.RMS = e.alpha*e.floor.RMS + (1-e.alpha)*smoothed.RMS
	e.floor.ZCR = e.alpha*e.floor.ZCR + (1-e.alpha)*smoothed.ZCR
	e.floor.Flatness = e.alpha*e.floor.Flatness + (1-e.alpha)*smoothed.Flatness

	e.floor.RMS = math.Max(minRMSFloor, e.floor.RMS)
	e.floor.ZCR = clamp(e.floor.ZCR, minZCRFloor, maxZCRFloor)
	e.floor.Flatness = clamp(e.floor.Flatness, minFlatnessFloor, maxFlatnessFloor)
}

// Floor returns the current noise floor estimate.
func (e *NoiseFloorEstimator) Floor() NoiseFloor {
	return e.floor
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
