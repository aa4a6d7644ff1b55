package pipeline

import (
	"fmt"

	"github.com/chrissnell/curekinetics/internal/calorimetry"
	"github.com/chrissnell/curekinetics/internal/kinetics"
	"github.com/chrissnell/curekinetics/internal/types"
	"github.com/chrissnell/curekinetics/pkg/config"
)

// Options carries every setting of one pipeline run
type Options struct {
	// Conditioning applies to all runs; SampleMass and StartTime are taken
	// from each Input.
	Conditioning calorimetry.ConditionOptions

	Grid               []float64
	MonotonicTolerance float64

	Fit kinetics.FitOptions

	SimulationTimes []float64
	Simulation      kinetics.SimulationOptions
}

// Input is one isothermal run with its per-run settings
type Input struct {
	Run       types.RawRun
	StartTime float64
}

// DefaultOptions returns the defaults of every stage
func DefaultOptions() (Options, error) {
	cfg := &config.ConfigData{}
	cfg.ApplyDefaults()
	return OptionsFromConfig(cfg)
}

// OptionsFromConfig translates a defaulted configuration into stage options
func OptionsFromConfig(cfg *config.ConfigData) (Options, error) {
	cond := calorimetry.ConditionOptions{
		CutoffHz:      cfg.Conditioning.CutoffHz,
		SpikeRatio:    cfg.Conditioning.SpikeRatio,
		EndWindow:     cfg.Conditioning.EndWindow,
		MaxSamplingCV: cfg.Conditioning.MaxSamplingCV,
	}
	if err := cond.Validate(); err != nil {
		return Options{}, err
	}

	grid, err := calorimetry.AlphaGrid(cfg.Pooling.AlphaMin, cfg.Pooling.AlphaMax, cfg.Pooling.Points)
	if err != nil {
		return Options{}, err
	}

	fit := kinetics.FitOptions{
		Method: kinetics.Method(cfg.Fit.Method),
		InitialGuess: kinetics.Autocatalytic{
			Log10A2: cfg.Fit.InitialGuess.Log10A2,
			E2:      cfg.Fit.InitialGuess.E2,
			M:       cfg.Fit.InitialGuess.M,
			N:       cfg.Fit.InitialGuess.N,
		},
		Bounds: kinetics.ParameterBounds{
			Log10A2: kinetics.Interval(cfg.Fit.Bounds.Log10A2),
			E2:      kinetics.Interval(cfg.Fit.Bounds.E2),
			M:       kinetics.Interval(cfg.Fit.Bounds.M),
			N:       kinetics.Interval(cfg.Fit.Bounds.N),
		},
		Tolerance:        cfg.Fit.Tolerance,
		MaxIterations:    cfg.Fit.MaxIterations,
		MaxResidualRatio: cfg.Fit.MaxResidualRatio,
	}
	if err := fit.Validate(); err != nil {
		return Options{}, err
	}

	times, err := kinetics.TimeGrid(cfg.Simulation.StartS, cfg.Simulation.EndS, cfg.Simulation.StepS)
	if err != nil {
		return Options{}, err
	}

	if cfg.Pooling.MonotonicTolerance < 0 {
		return Options{}, fmt.Errorf("%w: monotonic tolerance must not be negative", types.ErrConfiguration)
	}

	return Options{
		Conditioning:       cond,
		Grid:               grid,
		MonotonicTolerance: cfg.Pooling.MonotonicTolerance,
		Fit:                fit,
		SimulationTimes:    times,
		Simulation:         kinetics.SimulationOptions{DivergenceTolerance: cfg.Simulation.DivergenceTolerance},
	}, nil
}

// InputsFromConfig pairs loaded runs with the start times of their run entries
func InputsFromConfig(runs []config.RunData, loaded []types.RawRun) []Input {
	inputs := make([]Input, len(loaded))
	for i, r := range loaded {
		inputs[i] = Input{Run: r}
		if i < len(runs) {
			inputs[i].StartTime = runs[i].StartTimeS
		}
	}
	return inputs
}
