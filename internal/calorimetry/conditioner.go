package calorimetry

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/curekinetics/internal/types"
)

// ConditionOptions controls how a raw heat-flow trace is cleaned up
type ConditionOptions struct {
	// SampleMass in grams. When zero the run's own mass is used.
	SampleMass float64

	// StartTime in seconds; the curve never begins before it.
	StartTime float64

	// CutoffHz is the low-pass cutoff frequency (e.g., 1.0)
	CutoffHz float64

	// SpikeRatio is the sample-to-successor ratio treated as a spike (e.g., 5)
	SpikeRatio float64

	// EndWindow is the number of trailing samples averaged for end-zeroing (e.g., 100)
	EndWindow int

	// MaxSamplingCV is the largest tolerated coefficient of variation of the
	// sampling interval (e.g., 0.05)
	MaxSamplingCV float64
}

// DefaultConditionOptions returns the conditioning defaults
func DefaultConditionOptions() ConditionOptions {
	return ConditionOptions{
		StartTime:     0,
		CutoffHz:      1.0,
		SpikeRatio:    DefaultSpikeRatio,
		EndWindow:     100,
		MaxSamplingCV: 0.05,
	}
}

// Validate checks the options independently of any run
func (o ConditionOptions) Validate() error {
	switch {
	case o.SampleMass < 0:
		return fmt.Errorf("%w: sample mass %.4g g must be positive", types.ErrConfiguration, o.SampleMass)
	case o.CutoffHz <= 0:
		return fmt.Errorf("%w: cutoff frequency must be positive", types.ErrConfiguration)
	case o.SpikeRatio <= 1:
		return fmt.Errorf("%w: spike ratio %.4g must exceed 1", types.ErrConfiguration, o.SpikeRatio)
	case o.EndWindow < 1:
		return fmt.Errorf("%w: end window must hold at least one sample", types.ErrConfiguration)
	case o.MaxSamplingCV < 0:
		return fmt.Errorf("%w: sampling tolerance must not be negative", types.ErrConfiguration)
	}
	return nil
}

// Condition produces a ConditionedCurve from a raw run:
// 1. Rejects single-sample spikes in the unsubtracted heat flow
// 2. Subtracts the baseline heat flow
// 3. Divides by sample mass (W/g)
// 4. Subtracts the mean of the trailing EndWindow samples
// 5. Truncates at the later of the first exotherm and StartTime
// 6. Applies a zero-phase low-pass filter
func Condition(run types.RawRun, opts ConditionOptions) (types.ConditionedCurve, error) {
	if err := opts.Validate(); err != nil {
		return types.ConditionedCurve{}, err
	}

	n := run.Len()
	if len(run.UnsubtractedHeatFlow) != n {
		return types.ConditionedCurve{}, fmt.Errorf("%w: run %s has %d times but %d heat-flow samples",
			types.ErrConfiguration, run.Name, n, len(run.UnsubtractedHeatFlow))
	}
	if run.BaselineHeatFlow != nil && len(run.BaselineHeatFlow) != n {
		return types.ConditionedCurve{}, fmt.Errorf("%w: run %s has %d times but %d baseline samples",
			types.ErrConfiguration, run.Name, n, len(run.BaselineHeatFlow))
	}
	if n < 3 {
		return types.ConditionedCurve{}, fmt.Errorf("%w: run %s has %d samples, need at least 3",
			types.ErrDegenerateCurve, run.Name, n)
	}

	mass := opts.SampleMass
	if mass == 0 {
		mass = run.SampleMass
	}
	if mass <= 0 {
		return types.ConditionedCurve{}, fmt.Errorf("%w: sample mass %.4g g must be positive",
			types.ErrConfiguration, mass)
	}

	raw := make([]float64, n)
	copy(raw, run.UnsubtractedHeatFlow)
	spikes := RejectSpikes(raw, opts.SpikeRatio)

	net := make([]float64, n)
	for i := range raw {
		baseline := 0.0
		if run.BaselineHeatFlow != nil {
			baseline = run.BaselineHeatFlow[i]
		}
		net[i] = (raw[i] - baseline) / mass
	}

	window := opts.EndWindow
	if window > n {
		window = n
	}
	endOffset := stat.Mean(net[n-window:], nil)
	for i := range net {
		net[i] -= endOffset
	}

	onset := FirstExotherm(net)
	if onset < 0 {
		return types.ConditionedCurve{}, fmt.Errorf("%w: run %s never has positive net heat flow",
			types.ErrNoExothermDetected, run.Name)
	}

	start := -1
	for i, t := range run.Time {
		if t >= opts.StartTime {
			start = i
			break
		}
	}
	if start < 0 {
		return types.ConditionedCurve{}, fmt.Errorf("%w: run %s ends at %.4g s, start time is %.4g s",
			types.ErrInvalidStartTime, run.Name, run.Time[n-1], opts.StartTime)
	}

	from := onset
	if start > from {
		from = start
	}
	if n-from < 3 {
		return types.ConditionedCurve{}, fmt.Errorf("%w: run %s has %d samples after truncation",
			types.ErrDegenerateCurve, run.Name, n-from)
	}

	times := make([]float64, n-from)
	copy(times, run.Time[from:])

	rate, err := uniformSampleRate(times, opts.MaxSamplingCV)
	if err != nil {
		return types.ConditionedCurve{}, fmt.Errorf("run %s: %w", run.Name, err)
	}

	filtered, err := LowPass(net[from:], opts.CutoffHz, rate)
	if err != nil {
		return types.ConditionedCurve{}, fmt.Errorf("run %s: %w", run.Name, err)
	}

	return types.ConditionedCurve{
		Name:           run.Name,
		TemperatureK:   run.TemperatureK(),
		Time:           times,
		HeatFlow:       filtered,
		OnsetIndex:     onset,
		StartIndex:     start,
		SpikesRejected: spikes,
		EndOffset:      endOffset,
		SampleRate:     rate,
	}, nil
}

// FirstExotherm returns the first index with positive heat flow, or -1
func FirstExotherm(heatFlow []float64) int {
	for i, q := range heatFlow {
		if q > 0 {
			return i
		}
	}
	return -1
}

// uniformSampleRate returns 1/mean(dt) after checking that time is strictly
// increasing and the spread of dt is within maxCV.
func uniformSampleRate(times []float64, maxCV float64) (float64, error) {
	dt := make([]float64, len(times)-1)
	for i := 1; i < len(times); i++ {
		dt[i-1] = times[i] - times[i-1]
		if dt[i-1] <= 0 {
			return 0, fmt.Errorf("%w: time is not strictly increasing at sample %d", types.ErrNonUniformSampling, i)
		}
	}

	mean := stat.Mean(dt, nil)
	if len(dt) > 1 {
		if cv := stat.StdDev(dt, nil) / mean; cv > maxCV {
			return 0, fmt.Errorf("%w: interval coefficient of variation %.4g exceeds %.4g",
				types.ErrNonUniformSampling, cv, maxCV)
		}
	}
	return 1 / mean, nil
}
