package kinetics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/curekinetics/internal/types"
)

// Method selects the Stage-2 minimiser
type Method string

const (
	// MethodLevenbergMarquardt is a bounded Levenberg–Marquardt iteration on
	// the residual vector.
	MethodLevenbergMarquardt Method = "lm"

	// MethodNelderMead minimises the normalised sum of squares with a
	// Nelder–Mead simplex.
	MethodNelderMead Method = "nelder-mead"
)

// Interval is a closed physical range [Min, Max]
type Interval struct {
	Min float64
	Max float64
}

func (iv Interval) valid() bool {
	return !math.IsNaN(iv.Min) && !math.IsInf(iv.Min, 0) &&
		!math.IsNaN(iv.Max) && !math.IsInf(iv.Max, 0) && iv.Min < iv.Max
}

// Autocatalytic holds the four Stage-2 parameters in the space the optimiser
// bounds them in: the pre-exponential as its base-10 logarithm.
type Autocatalytic struct {
	Log10A2 float64 `json:"log10_a2"`
	E2      float64 `json:"e2"`
	M       float64 `json:"m"`
	N       float64 `json:"n"`
}

// ParameterBounds are the physical bounds of the Stage-2 parameters
type ParameterBounds struct {
	Log10A2 Interval
	E2      Interval
	M       Interval
	N       Interval
}

func (b ParameterBounds) intervals() [4]Interval {
	return [4]Interval{b.Log10A2, b.E2, b.M, b.N}
}

// normalize maps physical parameters linearly onto [0,1]^4.
func (b ParameterBounds) normalize(p Autocatalytic) []float64 {
	phys := [4]float64{p.Log10A2, p.E2, p.M, p.N}
	u := make([]float64, 4)
	for i, iv := range b.intervals() {
		u[i] = (phys[i] - iv.Min) / (iv.Max - iv.Min)
	}
	return u
}

func (b ParameterBounds) denormalize(u []float64) Autocatalytic {
	iv := b.intervals()
	at := func(i int) float64 { return iv[i].Min + u[i]*(iv[i].Max-iv[i].Min) }
	return Autocatalytic{Log10A2: at(0), E2: at(1), M: at(2), N: at(3)}
}

// FitOptions configures the Stage-2 fit
type FitOptions struct {
	Method       Method
	InitialGuess Autocatalytic
	Bounds       ParameterBounds

	// Tolerance on the relative decrease of the objective and on the step
	// length in normalised space.
	Tolerance float64

	// MaxIterations bounds the optimiser's major iterations.
	MaxIterations int

	// MaxResidualRatio is the largest accepted SSE/SST. A fit explaining less
	// of the pooled rates' variance is reported as not converged.
	MaxResidualRatio float64
}

// DefaultFitOptions returns the initial guess and bounds used for epoxy-amine
// systems: log10(A2) in [3,10], E2 in [30,200] kJ/mol, m and n in [0.1,3].
func DefaultFitOptions() FitOptions {
	return FitOptions{
		Method:       MethodLevenbergMarquardt,
		InitialGuess: Autocatalytic{Log10A2: 6.0, E2: 6e4, M: 1.2, N: 1.25},
		Bounds: ParameterBounds{
			Log10A2: Interval{Min: 3, Max: 10},
			E2:      Interval{Min: 3e4, Max: 2e5},
			M:       Interval{Min: 0.1, Max: 3},
			N:       Interval{Min: 0.1, Max: 3},
		},
		Tolerance:        1e-12,
		MaxIterations:    1000,
		MaxResidualRatio: 0.5,
	}
}

// Validate checks the options independently of any data
func (o FitOptions) Validate() error {
	switch o.Method {
	case MethodLevenbergMarquardt, MethodNelderMead:
	default:
		return fmt.Errorf("%w: unknown fit method %q", types.ErrConfiguration, o.Method)
	}

	names := [4]string{"log10(A2)", "E2", "m", "n"}
	guess := [4]float64{o.InitialGuess.Log10A2, o.InitialGuess.E2, o.InitialGuess.M, o.InitialGuess.N}
	for i, iv := range o.Bounds.intervals() {
		if !iv.valid() {
			return fmt.Errorf("%w: bounds [%.4g, %.4g] for %s are not an ascending finite range",
				types.ErrConfiguration, iv.Min, iv.Max, names[i])
		}
		if guess[i] < iv.Min || guess[i] > iv.Max {
			return fmt.Errorf("%w: initial %s %.4g is outside [%.4g, %.4g]",
				types.ErrConfiguration, names[i], guess[i], iv.Min, iv.Max)
		}
	}
	if o.Bounds.M.Min < 0 || o.Bounds.N.Min < 0 {
		return fmt.Errorf("%w: reaction orders must not be negative", types.ErrConfiguration)
	}

	switch {
	case !(o.Tolerance > 0):
		return fmt.Errorf("%w: fit tolerance must be positive", types.ErrConfiguration)
	case o.MaxIterations < 1:
		return fmt.Errorf("%w: fit needs at least one iteration", types.ErrConfiguration)
	case !(o.MaxResidualRatio > 0):
		return fmt.Errorf("%w: maximum residual ratio must be positive", types.ErrConfiguration)
	}
	return nil
}

// AutocatalyticFit is the result of Stage 2
type AutocatalyticFit struct {
	Params        types.KineticParameters `json:"params"`
	Normalized    []float64               `json:"normalized"`
	Method        Method                  `json:"method"`
	Iterations    int                     `json:"iterations"`
	Evaluations   int                     `json:"evaluations"`
	Observations  int                     `json:"observations"`
	SSE           float64                 `json:"sse"`
	ResidualRatio float64                 `json:"residual_ratio"`
}

type observation struct {
	alpha float64
	temp  float64
	k1    float64
	rate  float64
}

// problem is the normalised least-squares problem of one Stage-2 fit.
type problem struct {
	bounds ParameterBounds
	obs    []observation
	scale  float64 // 1/sqrt(SST)
	sst    float64
	evals  int
}

func newProblem(ds types.PooledRateDataset, a1, e1 float64, bounds ParameterBounds) (*problem, error) {
	p := &problem{bounds: bounds}
	for _, T := range ds.Temperatures() {
		rates := ds.Rates[T]
		if len(rates) != len(ds.Alpha) {
			return nil, fmt.Errorf("%w: %d pooled rates at %.2f K for %d grid points",
				types.ErrConfiguration, len(rates), T, len(ds.Alpha))
		}
		k1 := a1 * math.Exp(-e1/(types.GasConstant*T))
		for i, r := range rates {
			if math.IsNaN(r) {
				continue
			}
			p.obs = append(p.obs, observation{alpha: ds.Alpha[i], temp: T, k1: k1, rate: r})
		}
	}
	if len(p.obs) < 4 {
		return nil, fmt.Errorf("%w: Stage-2 fit needs at least 4 pooled rates, got %d",
			types.ErrInsufficientData, len(p.obs))
	}

	observed := make([]float64, len(p.obs))
	for i, o := range p.obs {
		observed[i] = o.rate
	}
	mean := stat.Mean(observed, nil)
	for _, r := range observed {
		p.sst += (r - mean) * (r - mean)
	}
	if !(p.sst > 0) {
		return nil, fmt.Errorf("%w: pooled rates have no variance", types.ErrDegenerateRegression)
	}
	p.scale = 1 / math.Sqrt(p.sst)
	return p, nil
}

// residuals writes the scaled model-minus-observation residuals at the
// normalised point u into dst.
func (p *problem) residuals(dst, u []float64) {
	p.evals++
	q := p.bounds.denormalize(u)
	a2 := math.Pow(10, q.Log10A2)
	for j, o := range p.obs {
		k2 := a2 * math.Exp(-q.E2/(types.GasConstant*o.temp))
		model := (o.k1 + k2*math.Pow(o.alpha, q.M)) * math.Pow(1-o.alpha, q.N)
		dst[j] = (model - o.rate) * p.scale
	}
}

// cost is SSE/SST at u.
func (p *problem) cost(u []float64, buf []float64) float64 {
	p.residuals(buf, u)
	var s float64
	for _, r := range buf {
		s += r * r
	}
	if math.IsNaN(s) {
		return math.Inf(1)
	}
	return s
}

// FitAutocatalytic fits A2, E2, m and n to the pooled rates given the Stage-1
// constants a1 and e1. Undefined (NaN) pooled points are skipped.
func FitAutocatalytic(ds types.PooledRateDataset, a1, e1 float64, opts FitOptions) (AutocatalyticFit, error) {
	if err := opts.Validate(); err != nil {
		return AutocatalyticFit{}, err
	}
	if !(a1 > 0) || math.IsInf(a1, 0) || math.IsNaN(e1) || math.IsInf(e1, 0) {
		return AutocatalyticFit{}, fmt.Errorf("%w: Stage-1 constants A1=%.4g E1=%.4g are not usable",
			types.ErrConfiguration, a1, e1)
	}

	p, err := newProblem(ds, a1, e1, opts.Bounds)
	if err != nil {
		return AutocatalyticFit{}, err
	}

	u0 := opts.Bounds.normalize(opts.InitialGuess)

	var res minimizeResult
	switch opts.Method {
	case MethodNelderMead:
		res, err = minimizeNelderMead(p, u0, opts)
	default:
		res, err = levenbergMarquardt(p, u0, opts)
	}
	if err != nil {
		return AutocatalyticFit{}, err
	}

	q := opts.Bounds.denormalize(res.u)
	fit := AutocatalyticFit{
		Params: types.KineticParameters{
			A1: a1,
			E1: e1,
			A2: math.Pow(10, q.Log10A2),
			E2: q.E2,
			M:  q.M,
			N:  q.N,
		},
		Normalized:    res.u,
		Method:        opts.Method,
		Iterations:    res.iterations,
		Evaluations:   p.evals,
		Observations:  len(p.obs),
		SSE:           res.cost * p.sst,
		ResidualRatio: res.cost,
	}

	if !(fit.ResidualRatio <= opts.MaxResidualRatio) {
		return fit, fmt.Errorf("%w: residual ratio %.4g exceeds %.4g",
			types.ErrFitDidNotConverge, fit.ResidualRatio, opts.MaxResidualRatio)
	}
	return fit, nil
}

type minimizeResult struct {
	u          []float64
	cost       float64
	iterations int
}

func clampUnit(u []float64) {
	for i, v := range u {
		u[i] = math.Min(1, math.Max(0, v))
	}
}
