// Package pipeline drives raw runs through conditioning, conversion, pooling,
// both fit stages and simulation. Every intermediate result is threaded
// explicitly from one stage to the next; nothing is shared between runs.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/interp"

	"github.com/chrissnell/curekinetics/internal/calorimetry"
	"github.com/chrissnell/curekinetics/internal/kinetics"
	"github.com/chrissnell/curekinetics/internal/types"
)

// Comparison summarises simulated against experimental conversion
type Comparison struct {
	Points      int     `json:"points"`
	MaxAbsError float64 `json:"max_abs_error"`
	RMSError    float64 `json:"rms_error"`
}

// RunResult holds every intermediate curve of one temperature
type RunResult struct {
	Name         string
	TemperatureK float64
	Conditioned  types.ConditionedCurve
	Conversion   types.ConversionCurve
	Rate         types.RateCurve
	Simulation   types.SimulatedCure
	Comparison   Comparison
}

// Result is the outcome of a complete pipeline run
type Result struct {
	// Runs are ordered by ascending temperature.
	Runs          []RunResult
	Pool          types.PooledRateDataset
	Arrhenius     kinetics.ArrheniusFit
	Autocatalytic kinetics.AutocatalyticFit
	Params        types.KineticParameters
}

// Pipeline runs the estimation and simulation stages
type Pipeline struct {
	opts   Options
	logger *zap.SugaredLogger
}

// New creates a pipeline
func New(opts Options, logger *zap.SugaredLogger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Pipeline{opts: opts, logger: logger}
}

// Run conditions every input in parallel, then pools, fits and simulates.
// The first failing run cancels the others and its error is returned.
func (p *Pipeline) Run(ctx context.Context, inputs []Input) (*Result, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no runs to process", types.ErrInsufficientData)
	}

	runs, err := p.prepare(ctx, inputs)
	if err != nil {
		return nil, err
	}

	pairs := make([]calorimetry.CurvePair, len(runs))
	rates := make([]types.RateCurve, len(runs))
	for i, r := range runs {
		pairs[i] = calorimetry.CurvePair{Conversion: r.Conversion, Rate: r.Rate}
		rates[i] = r.Rate
	}

	pool, err := calorimetry.Pool(pairs, p.opts.Grid, p.opts.MonotonicTolerance)
	if err != nil {
		return nil, err
	}
	p.logger.Debugf("pooled %d defined rates on %d grid points across %d temperatures",
		pool.Defined(), len(pool.Alpha), len(runs))

	arrhenius, err := kinetics.FitArrhenius(kinetics.InitialRates(rates))
	if err != nil {
		return nil, err
	}
	p.logger.Infow("stage 1 fitted", "a1", arrhenius.A1, "e1", arrhenius.E1, "r_squared", arrhenius.RSquared)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	auto, err := kinetics.FitAutocatalytic(pool, arrhenius.A1, arrhenius.E1, p.opts.Fit)
	if err != nil {
		return nil, err
	}
	p.logger.Infow("stage 2 fitted",
		"a2", auto.Params.A2, "e2", auto.Params.E2, "m", auto.Params.M, "n", auto.Params.N,
		"method", auto.Method, "iterations", auto.Iterations, "residual_ratio", auto.ResidualRatio)

	if err := p.simulate(ctx, auto.Params, runs); err != nil {
		return nil, err
	}

	return &Result{
		Runs:          runs,
		Pool:          pool,
		Arrhenius:     arrhenius,
		Autocatalytic: auto,
		Params:        auto.Params,
	}, nil
}

// prepare conditions each run and builds its conversion and rate curves.
func (p *Pipeline) prepare(ctx context.Context, inputs []Input) ([]RunResult, error) {
	runs := make([]RunResult, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			opts := p.opts.Conditioning
			opts.StartTime = in.StartTime

			cond, err := calorimetry.Condition(in.Run, opts)
			if err != nil {
				return err
			}
			conv, rate, err := calorimetry.BuildConversion(cond, opts.EndWindow)
			if err != nil {
				return fmt.Errorf("run %s: %w", in.Run.Name, err)
			}

			p.logger.Debugw("conditioned run",
				"run", in.Run.Name,
				"temperature_k", cond.TemperatureK,
				"onset_index", cond.OnsetIndex,
				"start_index", cond.StartIndex,
				"spikes_rejected", cond.SpikesRejected,
				"samples", len(cond.Time),
				"enthalpy_j_per_g", conv.Enthalpy,
				"alpha_decreases", conv.Decreases)

			runs[i] = RunResult{
				Name:         in.Run.Name,
				TemperatureK: cond.TemperatureK,
				Conditioned:  cond,
				Conversion:   conv,
				Rate:         rate,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].TemperatureK < runs[j].TemperatureK })
	return runs, nil
}

// simulate integrates the fitted law at each run's temperature and compares
// it with the run's conversion curve.
func (p *Pipeline) simulate(ctx context.Context, params types.KineticParameters, runs []RunResult) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range runs {
		r := &runs[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sim, err := kinetics.Simulate(params, r.TemperatureK, p.opts.SimulationTimes, p.opts.Simulation)
			if err != nil {
				return fmt.Errorf("run %s: %w", r.Name, err)
			}
			r.Simulation = sim
			r.Comparison, err = Compare(sim, r.Conversion)
			if err != nil {
				return fmt.Errorf("run %s: %w", r.Name, err)
			}
			p.logger.Debugw("simulated run",
				"run", r.Name,
				"clamped", sim.Clamped,
				"max_abs_error", r.Comparison.MaxAbsError,
				"rms_error", r.Comparison.RMSError)
			return nil
		})
	}
	return g.Wait()
}

// Compare interpolates the simulated α onto the experimental times, shifted
// so the conversion curve starts at t = 0, and reports the absolute errors.
// Experimental samples outside the simulated window are skipped.
func Compare(sim types.SimulatedCure, conv types.ConversionCurve) (Comparison, error) {
	if len(sim.Time) < 2 || len(conv.Time) == 0 {
		return Comparison{}, nil
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(sim.Time, sim.Alpha); err != nil {
		return Comparison{}, err
	}

	lo, hi := sim.Time[0], sim.Time[len(sim.Time)-1]
	t0 := conv.Time[0]

	var c Comparison
	var sumSq float64
	for i, t := range conv.Time {
		t -= t0
		if t < lo || t > hi {
			continue
		}
		e := math.Abs(pl.Predict(t) - conv.Alpha[i])
		c.Points++
		sumSq += e * e
		if e > c.MaxAbsError {
			c.MaxAbsError = e
		}
	}
	if c.Points > 0 {
		c.RMSError = math.Sqrt(sumSq / float64(c.Points))
	}
	return c, nil
}
