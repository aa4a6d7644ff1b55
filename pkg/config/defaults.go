package config

import (
	"fmt"

	"github.com/chrissnell/curekinetics/internal/types"
)

// Defaults for settings left out of the configuration file
const (
	DefaultTimeColumn     = "Time"
	DefaultHeatFlowColumn = "Unsubtracted"
	DefaultBaselineColumn = "Baseline"
	DefaultTimeScale      = 1.0

	DefaultCutoffHz      = 1.0
	DefaultSpikeRatio    = 5.0
	DefaultEndWindow     = 100
	DefaultMaxSamplingCV = 0.05

	DefaultAlphaMin           = 0.05
	DefaultAlphaMax           = 0.95
	DefaultAlphaPoints        = 400
	DefaultMonotonicTolerance = 1e-3

	DefaultFitMethod        = "lm"
	DefaultFitTolerance     = 1e-12
	DefaultMaxIterations    = 1000
	DefaultMaxResidualRatio = 0.5

	DefaultSimulationEndS      = 5000
	DefaultSimulationStepS     = 0.1
	DefaultDivergenceTolerance = 1e-3

	DefaultStorageDSN = "curekinetics.db"
	DefaultListenAddr = ":8080"
)

var (
	defaultGuess = ParametersData{Log10A2: 6.0, E2: 6e4, M: 1.2, N: 1.25}

	defaultBounds = BoundsData{
		Log10A2: RangeData{Min: 3, Max: 10},
		E2:      RangeData{Min: 3e4, Max: 2e5},
		M:       RangeData{Min: 0.1, Max: 3},
		N:       RangeData{Min: 0.1, Max: 3},
	}
)

// ApplyDefaults fills every zero-valued setting with its default
func (c *ConfigData) ApplyDefaults() {
	for i := range c.Runs {
		r := &c.Runs[i]
		if r.TimeScale == 0 {
			r.TimeScale = DefaultTimeScale
		}
		if r.Columns.Time == "" {
			r.Columns.Time = DefaultTimeColumn
		}
		if r.Columns.HeatFlow == "" {
			r.Columns.HeatFlow = DefaultHeatFlowColumn
		}
		if r.Columns.Baseline == "" {
			r.Columns.Baseline = DefaultBaselineColumn
		}
		if r.Name == "" {
			r.Name = fmt.Sprintf("%gC", r.TemperatureC)
		}
	}

	cond := &c.Conditioning
	if cond.CutoffHz == 0 {
		cond.CutoffHz = DefaultCutoffHz
	}
	if cond.SpikeRatio == 0 {
		cond.SpikeRatio = DefaultSpikeRatio
	}
	if cond.EndWindow == 0 {
		cond.EndWindow = DefaultEndWindow
	}
	if cond.MaxSamplingCV == 0 {
		cond.MaxSamplingCV = DefaultMaxSamplingCV
	}

	pool := &c.Pooling
	if pool.AlphaMin == 0 {
		pool.AlphaMin = DefaultAlphaMin
	}
	if pool.AlphaMax == 0 {
		pool.AlphaMax = DefaultAlphaMax
	}
	if pool.Points == 0 {
		pool.Points = DefaultAlphaPoints
	}
	if pool.MonotonicTolerance == 0 {
		pool.MonotonicTolerance = DefaultMonotonicTolerance
	}

	fit := &c.Fit
	if fit.Method == "" {
		fit.Method = DefaultFitMethod
	}
	if fit.InitialGuess == (ParametersData{}) {
		fit.InitialGuess = defaultGuess
	}
	if fit.Bounds.Log10A2 == (RangeData{}) {
		fit.Bounds.Log10A2 = defaultBounds.Log10A2
	}
	if fit.Bounds.E2 == (RangeData{}) {
		fit.Bounds.E2 = defaultBounds.E2
	}
	if fit.Bounds.M == (RangeData{}) {
		fit.Bounds.M = defaultBounds.M
	}
	if fit.Bounds.N == (RangeData{}) {
		fit.Bounds.N = defaultBounds.N
	}
	if fit.Tolerance == 0 {
		fit.Tolerance = DefaultFitTolerance
	}
	if fit.MaxIterations == 0 {
		fit.MaxIterations = DefaultMaxIterations
	}
	if fit.MaxResidualRatio == 0 {
		fit.MaxResidualRatio = DefaultMaxResidualRatio
	}

	sim := &c.Simulation
	if sim.EndS == 0 {
		sim.EndS = DefaultSimulationEndS
	}
	if sim.StepS == 0 {
		sim.StepS = DefaultSimulationStepS
	}
	if sim.DivergenceTolerance == 0 {
		sim.DivergenceTolerance = DefaultDivergenceTolerance
	}

	if c.Storage.Driver == "sqlite" && c.Storage.DSN == "" {
		c.Storage.DSN = DefaultStorageDSN
	}
	if c.Report.ListenAddr == "" {
		c.Report.ListenAddr = DefaultListenAddr
	}
}

// Validate checks settings that can be judged without loading any data.
// Numerical limits of the stages themselves are checked by the stages.
func (c *ConfigData) Validate() error {
	if len(c.Runs) == 0 {
		return fmt.Errorf("%w: no runs configured", types.ErrConfiguration)
	}

	names := make(map[string]bool, len(c.Runs))
	temps := make(map[float64]string, len(c.Runs))
	for _, r := range c.Runs {
		if r.File == "" {
			return fmt.Errorf("%w: run %s has no file", types.ErrConfiguration, r.Name)
		}
		if names[r.Name] {
			return fmt.Errorf("%w: run name %s is used twice", types.ErrConfiguration, r.Name)
		}
		names[r.Name] = true
		if other, dup := temps[r.TemperatureC]; dup {
			return fmt.Errorf("%w: runs %s and %s share the temperature %g °C",
				types.ErrConfiguration, other, r.Name, r.TemperatureC)
		}
		temps[r.TemperatureC] = r.Name
		if types.CelsiusToKelvin(r.TemperatureC) <= 0 {
			return fmt.Errorf("%w: run %s is below absolute zero", types.ErrConfiguration, r.Name)
		}
		if r.SampleMassG <= 0 {
			return fmt.Errorf("%w: run %s needs a positive sample mass", types.ErrConfiguration, r.Name)
		}
		if r.TimeScale <= 0 {
			return fmt.Errorf("%w: run %s has a non-positive time scale", types.ErrConfiguration, r.Name)
		}
	}

	switch c.Fit.Method {
	case "lm", "nelder-mead":
	default:
		return fmt.Errorf("%w: unknown fit method %q", types.ErrConfiguration, c.Fit.Method)
	}

	if c.Simulation.EndS <= c.Simulation.StartS || c.Simulation.StepS <= 0 {
		return fmt.Errorf("%w: simulation window [%g, %g] s with step %g s is empty",
			types.ErrConfiguration, c.Simulation.StartS, c.Simulation.EndS, c.Simulation.StepS)
	}

	switch c.Storage.Driver {
	case "":
	case "sqlite", "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("%w: storage driver %s needs a dsn", types.ErrConfiguration, c.Storage.Driver)
		}
	default:
		return fmt.Errorf("%w: unsupported storage driver %q", types.ErrConfiguration, c.Storage.Driver)
	}

	return nil
}
