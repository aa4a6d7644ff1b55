package kinetics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/chrissnell/curekinetics/internal/types"
)

const (
	lmInitialDamping = 1e-3
	lmMinDamping     = 1e-12
	lmMaxDamping     = 1e16
)

// levenbergMarquardt minimises the sum of squared residuals over the unit box.
// Steps solve (JᵀJ + λ·diag(JᵀJ))δ = −Jᵀr over the free components and are
// projected back onto the box. A component sitting on a bound whose gradient
// points outward is held fixed for that iteration. A step is accepted only if
// it lowers the cost; otherwise λ grows. When no λ yields a descent the point
// is stationary on the box and the fit has converged.
func levenbergMarquardt(p *problem, u0 []float64, opts FitOptions) (minimizeResult, error) {
	m, n := len(p.obs), len(u0)

	u := append([]float64(nil), u0...)
	clampUnit(u)
	r := make([]float64, m)
	trial := make([]float64, m)
	cost := p.cost(u, r)
	if math.IsInf(cost, 1) {
		return minimizeResult{}, fmt.Errorf("%w: objective is not finite at the initial guess", types.ErrFitDidNotConverge)
	}

	jac := mat.NewDense(m, n, nil)
	settings := &fd.JacobianSettings{Formula: fd.Central}
	lambda := lmInitialDamping

	var (
		jtj   mat.SymDense
		a     = mat.NewSymDense(n, nil)
		grad  mat.VecDense
		rhs   = mat.NewVecDense(n, nil)
		delta mat.VecDense
		held  = make([]bool, n)
		chol  mat.Cholesky
		next  = make([]float64, n)
	)

	for iter := 1; iter <= opts.MaxIterations; iter++ {
		if cost == 0 {
			return minimizeResult{u: u, cost: cost, iterations: iter - 1}, nil
		}

		fd.Jacobian(jac, p.residuals, u, settings)
		jtj.SymOuterK(1, jac.T())
		grad.MulVec(jac.T(), mat.NewVecDense(m, r))
		for i := range held {
			g := grad.AtVec(i)
			held[i] = (u[i] <= 0 && g > 0) || (u[i] >= 1 && g < 0)
		}

		accepted := false
		for !accepted {
			a.CopySym(&jtj)
			rhs.CopyVec(&grad)
			for i := 0; i < n; i++ {
				d := math.Max(jtj.At(i, i), 1e-12)
				a.SetSym(i, i, jtj.At(i, i)+lambda*d)
			}
			for i, h := range held {
				if !h {
					continue
				}
				for j := 0; j < n; j++ {
					a.SetSym(i, j, 0)
				}
				a.SetSym(i, i, 1)
				rhs.SetVec(i, 0)
			}

			solved := chol.Factorize(a)
			if solved {
				if err := chol.SolveVecTo(&delta, rhs); err != nil {
					if _, ok := err.(mat.Condition); !ok {
						solved = false
					}
				}
			}

			if solved {
				for i := range next {
					next[i] = u[i] - delta.AtVec(i)
				}
				clampUnit(next)

				trialCost := p.cost(next, trial)
				if trialCost < cost {
					step := floats.Distance(next, u, 2)
					reduction := (cost - trialCost) / cost

					copy(u, next)
					r, trial = trial, r
					cost = trialCost
					lambda = math.Max(lambda/10, lmMinDamping)
					accepted = true

					if reduction < opts.Tolerance || step < opts.Tolerance {
						return minimizeResult{u: u, cost: cost, iterations: iter}, nil
					}
					continue
				}
			}

			lambda *= 10
			if lambda > lmMaxDamping {
				return minimizeResult{u: u, cost: cost, iterations: iter}, nil
			}
		}
	}

	return minimizeResult{u: u, cost: cost, iterations: opts.MaxIterations},
		fmt.Errorf("%w: no convergence after %d iterations (residual ratio %.4g)",
			types.ErrFitDidNotConverge, opts.MaxIterations, cost)
}
