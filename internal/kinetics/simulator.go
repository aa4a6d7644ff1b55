package kinetics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/chrissnell/curekinetics/internal/types"
)

// DefaultDivergenceTolerance is how far α may leave [0,1] through step
// overshoot before the integration is reported as diverged.
const DefaultDivergenceTolerance = 1e-3

// SimulationOptions configures a forward integration
type SimulationOptions struct {
	// DivergenceTolerance bounds the excursion outside [0,1] that is clamped
	// instead of reported.
	DivergenceTolerance float64
}

// TimeGrid returns evenly spaced times from start to end inclusive with the
// given step. The last step is shortened to land on end.
func TimeGrid(start, end, step float64) ([]float64, error) {
	if !(step > 0) || !(end > start) || math.IsInf(end-start, 0) {
		return nil, fmt.Errorf("%w: time grid [%.4g, %.4g] with step %.4g is empty",
			types.ErrConfiguration, start, end, step)
	}
	n := int(math.Ceil((end-start)/step-1e-9)) + 1
	grid := floats.Span(make([]float64, n), start, start+float64(n-1)*step)
	grid[n-1] = end
	return grid, nil
}

// Simulate integrates the rate law at temperature T (Kelvin) over times with
// explicit Euler steps, starting from α = 0 at times[0]:
//
//	α[i] = α[i−1] + rate(α[i−1], T)·(t[i] − t[i−1])
//
// No adaptive stepping is done; accuracy is set by the grid. An α that leaves
// [0,1] by no more than the divergence tolerance is clamped and counted in
// Clamped; anything further fails with ErrSimulationDivergence.
func Simulate(params types.KineticParameters, T float64, times []float64, opts SimulationOptions) (types.SimulatedCure, error) {
	if len(times) == 0 {
		return types.SimulatedCure{}, fmt.Errorf("%w: empty time grid", types.ErrConfiguration)
	}
	if !(T > 0) {
		return types.SimulatedCure{}, fmt.Errorf("%w: temperature %.4g K is not absolute", types.ErrConfiguration, T)
	}
	if opts.DivergenceTolerance < 0 {
		return types.SimulatedCure{}, fmt.Errorf("%w: divergence tolerance must not be negative", types.ErrConfiguration)
	}
	for i := 1; i < len(times); i++ {
		if !(times[i] > times[i-1]) {
			return types.SimulatedCure{}, fmt.Errorf("%w: time grid is not strictly increasing at index %d",
				types.ErrConfiguration, i)
		}
	}

	sim := types.SimulatedCure{
		TemperatureK: T,
		Time:         append([]float64(nil), times...),
		Alpha:        make([]float64, len(times)),
		Rate:         make([]float64, len(times)),
	}

	sim.Rate[0] = params.Rate(0, T)
	for i := 1; i < len(times); i++ {
		a := sim.Alpha[i-1] + sim.Rate[i-1]*(times[i]-times[i-1])

		switch {
		case math.IsNaN(a) || a < -opts.DivergenceTolerance || a > 1+opts.DivergenceTolerance:
			return sim, fmt.Errorf("%w: α = %.6g at t = %.4g s (T = %.2f K)",
				types.ErrSimulationDivergence, a, times[i], T)
		case a < 0:
			a = 0
			sim.Clamped++
		case a > 1:
			a = 1
			sim.Clamped++
		}

		sim.Alpha[i] = a
		sim.Rate[i] = params.Rate(a, T)
		if math.IsNaN(sim.Rate[i]) || math.IsInf(sim.Rate[i], 0) {
			return sim, fmt.Errorf("%w: rate %.6g at α = %.6g (T = %.2f K)",
				types.ErrSimulationDivergence, sim.Rate[i], a, T)
		}
	}

	return sim, nil
}
