package audio

import "fmt"

// Resampler converts mono float samples from a source rate to a
// destination rate using linear interpolation. One resampler belongs to a
// single session; it holds no state between calls, but sharing one across
// sessions would serialize nothing and gain nothing.
type Resampler struct {
	srcRate int
	dstRate int
}

// NewResampler creates a resampler between the two rates.
func NewResampler(srcRate, dstRate int) (*Resampler, error) {
	if srcRate <= 0 {
		return nil, fmt.Errorf("source rate must be positive, got %d", srcRate)
	}
	if dstRate <= 0 {
		return nil, fmt.Errorf("destination rate must be positive, got %d", dstRate)
	}
	return &Resampler{srcRate: srcRate, dstRate: dstRate}, nil
}

// Resample converts one chunk of samples to the destination rate. The
// output length is len(samples) * dstRate / srcRate. When the rates match
// the input slice is returned unchanged.
func (r *Resampler) Resample(samples []float64) []float64 {
	if r.srcRate == r.dstRate || len(samples) == 0 {
		return samples
	}

	dstLen := int(int64(len(samples)) * int64(r.dstRate) / int64(r.srcRate))
	if dstLen == 0 {
		return nil
	}

	out := make([]float64, dstLen)
	ratio := float64(r.srcRate) / float64(r.dstRate)

	for i := range out {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := samples[srcIdx]
		s1 := s0
		if srcIdx+1 < len(samples) {
			s1 = samples[srcIdx+1]
		}

		out[i] = s0*(1-frac) + s1*frac
	}
	return out
}

// Ratio returns dstRate / srcRate as a float, useful for sizing buffers.
func (r *Resampler) Ratio() float64 {
	return float64(r.dstRate) / float64(r.srcRate)
}
