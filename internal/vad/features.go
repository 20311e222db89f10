package vad

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// spectralEpsilon is added to every spectral magnitude before the
// geometric mean so that silent bins do not collapse the log sum.
const spectralEpsilon = 1e-10

// InvalidFrameError reports an audio frame the extractor refused to
// process. Rejected frames are never folded into engine state.
type InvalidFrameError struct {
	Reason string
}

func (e *InvalidFrameError) Error() string {
	return fmt.Sprintf("invalid audio frame: %s", e.Reason)
}

// FeatureSet holds the three scalar features computed from one frame.
type FeatureSet struct {
	RMS      float64
	ZCR      float64
	Flatness float64
}

// FeatureExtractor computes RMS energy, zero-crossing rate and spectral
// flatness from a frame of float samples. The FFT plan and Hann window
// are cached per frame length; an extractor belongs to a single session
// and must not be shared across goroutines.
type FeatureExtractor struct {
	fftSize int
	fft     *fourier.FFT
	window  []float64
	scratch []float64
	coeffs  []complex128
}

// NewFeatureExtractor creates an extractor sized for frames of frameSize
// samples. Frames of a different length are accepted and re-plan the FFT.
func NewFeatureExtractor(frameSize int) (*FeatureExtractor, error) {
	if frameSize <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", frameSize)
	}

	x := &FeatureExtractor{}
	x.plan(frameSize)
	return x, nil
}

// Extract validates the frame and computes its feature set. Empty frames
// and frames containing NaN or Inf samples fail with *InvalidFrameError.
func (x *FeatureExtractor) Extract(frame []float64) (FeatureSet, error) {
	if len(frame) == 0 {
		return FeatureSet{}, &InvalidFrameError{Reason: "empty frame"}
	}

	for i, s := range frame {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return FeatureSet{}, &InvalidFrameError{
				Reason: fmt.Sprintf("non-finite sample %v at index %d", s, i),
			}
		}
	}

	return FeatureSet{
		RMS:      rmsEnergy(frame),
		ZCR:      zeroCrossingRate(frame),
		Flatness: x.spectralFlatness(frame),
	}, nil
}

// rmsEnergy returns the root-mean-square amplitude of the frame.
func rmsEnergy(frame []float64) float64 {
	var sum float64
	for _, s := range frame {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// zeroCrossingRate returns the sign-change rate of the frame. The rate is
// the sum of |sign(x[i]) - sign(x[i-1])| with sign in {-1, 0, 1}, divided
// by the frame length: a full flip through zero contributes 2 and a
// transition into or out of an exact zero contributes 1. The weighting is
// deliberate and must not be reduced to a plain binary crossing count.
func zeroCrossingRate(frame []float64) float64 {
	var total float64
	prev := sign(frame[0])
	for _, s := range frame[1:] {
		cur := sign(s)
		total += math.Abs(cur - prev)
		prev = cur
	}
	return total / float64(len(frame))
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// spectralFlatness returns the Wiener entropy of the frame: the ratio of
// the geometric to the arithmetic mean of the first-half FFT magnitudes
// after Hann windowing. Low values indicate tonal (speech-like) content,
// high values indicate broadband noise. Returns 0 when the arithmetic
// mean is not positive.
func (x *FeatureExtractor) spectralFlatness(frame []float64) float64 {
	n := len(frame)
	if n != x.fftSize {
		x.plan(n)
	}

	for i, s := range frame {
		x.scratch[i] = s * x.window[i]
	}
	x.fft.Coefficients(x.coeffs, x.scratch)

	// Real-signal symmetry: only the first n/2 bins carry information.
	half := n / 2
	if half == 0 {
		return 0
	}

	var logSum, sum float64
	for _, c := range x.coeffs[:half] {
		mag := cmplx.Abs(c) + spectralEpsilon
		logSum += math.Log(mag)
		sum += mag
	}

	arithmeticMean := sum / float64(half)
	if arithmeticMean <= 0 {
		return 0
	}
	geometricMean := math.Exp(logSum / float64(half))

	return geometricMean / arithmeticMean
}

// plan rebuilds the FFT and the symmetric Hann window for a frame length.
func (x *FeatureExtractor) plan(n int) {
	x.fftSize = n
	x.fft = fourier.NewFFT(n)
	x.scratch = make([]float64, n)
	x.coeffs = make([]complex128, n/2+1)

	x.window = make([]float64, n)
	if n == 1 {
		x.window[0] = 1
		return
	}
	for i := range x.window {
		x.window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
}
