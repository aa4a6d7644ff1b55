package calorimetry

import (
	"fmt"
	"math"

	"github.com/chrissnell/curekinetics/internal/types"
)

// biquad is a normalized (a0 = 1) second-order IIR section.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// butterworthLowPass designs a second-order Butterworth low-pass section with
// the bilinear transform and frequency pre-warping.
func butterworthLowPass(cutoffHz, sampleRateHz float64) (biquad, error) {
	if cutoffHz <= 0 || sampleRateHz <= 0 {
		return biquad{}, fmt.Errorf("%w: cutoff %.4g Hz and sample rate %.4g Hz must be positive",
			types.ErrConfiguration, cutoffHz, sampleRateHz)
	}
	if cutoffHz >= sampleRateHz/2 {
		return biquad{}, fmt.Errorf("%w: cutoff %.4g Hz is at or above the Nyquist frequency %.4g Hz",
			types.ErrConfiguration, cutoffHz, sampleRateHz/2)
	}

	k := math.Tan(math.Pi * cutoffHz / sampleRateHz)
	norm := 1 / (1 + math.Sqrt2*k + k*k)

	b0 := k * k * norm
	return biquad{
		b0: b0,
		b1: 2 * b0,
		b2: b0,
		a1: 2 * (k*k - 1) * norm,
		a2: (1 - math.Sqrt2*k + k*k) * norm,
	}, nil
}

// steadyState returns the transposed direct-form II state for which a constant
// input of 1 produces a constant output of 1.
func (f biquad) steadyState() (float64, float64) {
	return 1 - f.b0, f.b2 - f.a2
}

// run filters x in a single direction, starting from the steady state scaled by x[0].
func (f biquad) run(x []float64) []float64 {
	y := make([]float64, len(x))
	if len(x) == 0 {
		return y
	}
	s1, s2 := f.steadyState()
	z1, z2 := s1*x[0], s2*x[0]
	for i, v := range x {
		out := f.b0*v + z1
		z1 = f.b1*v - f.a1*out + z2
		z2 = f.b2*v - f.a2*out
		y[i] = out
	}
	return y
}

// LowPass applies a second-order Butterworth low-pass filter forwards and
// backwards, so the output has no phase lag. The signal is extended at both
// ends by odd reflection before filtering to suppress edge transients. The
// returned slice has the same length as signal.
func LowPass(signal []float64, cutoffHz, sampleRateHz float64) ([]float64, error) {
	f, err := butterworthLowPass(cutoffHz, sampleRateHz)
	if err != nil {
		return nil, err
	}

	n := len(signal)
	if n < 2 {
		out := make([]float64, n)
		copy(out, signal)
		return out, nil
	}

	padLen := 9
	if padLen > n-1 {
		padLen = n - 1
	}

	ext := make([]float64, 0, n+2*padLen)
	first, last := signal[0], signal[n-1]
	for k := padLen; k >= 1; k-- {
		ext = append(ext, 2*first-signal[k])
	}
	ext = append(ext, signal...)
	for k := n - 2; k >= n-1-padLen; k-- {
		ext = append(ext, 2*last-signal[k])
	}

	forward := f.run(ext)
	reverse(forward)
	backward := f.run(forward)
	reverse(backward)

	out := make([]float64, n)
	copy(out, backward[padLen:padLen+n])
	return out, nil
}

func reverse(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
