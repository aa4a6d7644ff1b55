package kinetics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/chrissnell/curekinetics/internal/types"
)

// boxPenalty weights the squared distance outside the unit box.
const boxPenalty = 1e3

// minimizeNelderMead minimises SSE/SST with a Nelder–Mead simplex. Points
// outside the unit box are evaluated at their projection plus a quadratic
// penalty, so the simplex is pulled back inside.
func minimizeNelderMead(p *problem, u0 []float64, opts FitOptions) (minimizeResult, error) {
	buf := make([]float64, len(p.obs))
	proj := make([]float64, len(u0))

	objective := func(u []float64) float64 {
		var outside float64
		for i, v := range u {
			proj[i] = math.Min(1, math.Max(0, v))
			outside += (v - proj[i]) * (v - proj[i])
		}
		return p.cost(proj, buf) + boxPenalty*outside
	}

	start := append([]float64(nil), u0...)
	clampUnit(start)

	settings := &optimize.Settings{
		MajorIterations: opts.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   opts.Tolerance,
			Relative:   opts.Tolerance,
			Iterations: 100,
		},
	}

	result, err := optimize.Minimize(optimize.Problem{Func: objective}, start, settings, &optimize.NelderMead{})
	if err != nil {
		return minimizeResult{}, fmt.Errorf("%w: %v", types.ErrFitDidNotConverge, err)
	}
	if err := result.Status.Err(); err != nil {
		return minimizeResult{}, fmt.Errorf("%w: %v", types.ErrFitDidNotConverge, err)
	}

	u := append([]float64(nil), result.X...)
	clampUnit(u)
	return minimizeResult{
		u:          u,
		cost:       p.cost(u, buf),
		iterations: result.MajorIterations,
	}, nil
}
