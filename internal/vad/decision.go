package vad

// FeatureDecisions holds the per-feature boolean sub-decisions that feed
// the majority vote.
type FeatureDecisions struct {
	RMS      bool `json:"rms"`
	ZCR      bool `json:"zcr"`
	Flatness bool `json:"spectral_flatness"`
}

// DecisionEngine compares smoothed features against adaptive thresholds
// (noise floor times a per-feature multiplier) and combines the three
// sub-decisions by majority vote.
type DecisionEngine struct {
	rmsMultiplier      float64
	zcrMultiplier      float64
	flatnessMultiplier float64
	minVotes           int
}

// NewDecisionEngine creates a decision engine with the given threshold
// multipliers. A frame is speech when at least minVotes features agree.
func NewDecisionEngine(rmsMult, zcrMult, flatnessMult float64, minVotes int) *DecisionEngine {
	return &DecisionEngine{
		rmsMultiplier:      rmsMult,
		zcrMultiplier:      zcrMult,
		flatnessMultiplier: flatnessMult,
		minVotes:           minVotes,
	}
}

// Decide evaluates the smoothed features against the current floors.
// RMS and ZCR vote speech when they exceed their scaled floor; flatness
// votes speech when it drops below its scaled floor, since tonal content
// is flatter-poor.
func (d *DecisionEngine) Decide(smoothed FeatureSet, floor NoiseFloor) (FeatureDecisions, int, bool) {
	decisions := FeatureDecisions{
		RMS:      smoothed.RMS > floor.RMS*d.rmsMultiplier,
		ZCR:      smoothed.ZCR > floor.ZCR*d.zcrMultiplier,
		Flatness: smoothed.Flatness < floor.Flatness*d.flatnessMultiplier,
	}

	votes := 0
	for _, v := range []bool{decisions.RMS, decisions.ZCR, decisions.Flatness} {
		if v {
			votes++
		}
	}

	return decisions, votes, votes >= d.minVotes
}
