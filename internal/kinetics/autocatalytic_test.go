package kinetics

import (
	"errors"
	"math"
	"testing"

	"github.com/chrissnell/curekinetics/internal/types"
)

func TestFitAutocatalyticRecoversParameters(t *testing.T) {
	ds := syntheticPool(testParams, testTemps, 100)

	guesses := []struct {
		name  string
		guess Autocatalytic
	}{
		{name: "near", guess: Autocatalytic{Log10A2: 4.4, E2: 53000, M: 1.1, N: 1.4}},
		{name: "default", guess: DefaultFitOptions().InitialGuess},
	}

	for _, g := range guesses {
		t.Run(g.name, func(t *testing.T) {
			opts := DefaultFitOptions()
			opts.InitialGuess = g.guess

			fit, err := FitAutocatalytic(ds, testParams.A1, testParams.E1, opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			checks := []struct {
				name      string
				got, want float64
			}{
				{"A2", fit.Params.A2, testParams.A2},
				{"E2", fit.Params.E2, testParams.E2},
				{"m", fit.Params.M, testParams.M},
				{"n", fit.Params.N, testParams.N},
			}
			for _, c := range checks {
				if e := relErr(c.got, c.want); e > 1e-4 {
					t.Errorf("%s: expected %.6g, got %.6g (rel err %.2g)", c.name, c.want, c.got, e)
				}
			}
			if fit.Params.A1 != testParams.A1 || fit.Params.E1 != testParams.E1 {
				t.Errorf("Stage-1 constants not carried through: %+v", fit.Params)
			}
			if fit.ResidualRatio > 1e-10 {
				t.Errorf("expected a near-zero residual ratio, got %.3g", fit.ResidualRatio)
			}
			if fit.Observations != 300 {
				t.Errorf("expected 300 observations, got %d", fit.Observations)
			}
		})
	}
}

func TestFitAutocatalyticSkipsUndefinedPoints(t *testing.T) {
	ds := syntheticPool(testParams, testTemps, 50)
	for _, T := range testTemps {
		ds.Rates[T][0] = math.NaN()
		ds.Rates[T][49] = math.NaN()
	}

	fit, err := FitAutocatalytic(ds, testParams.A1, testParams.E1, DefaultFitOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fit.Observations != 144 {
		t.Errorf("expected 144 observations, got %d", fit.Observations)
	}
	if e := relErr(fit.Params.E2, testParams.E2); e > 1e-4 {
		t.Errorf("E2: expected %.6g, got %.6g", testParams.E2, fit.Params.E2)
	}
}

func TestFitAutocatalyticStaysInBounds(t *testing.T) {
	// The true orders lie outside the narrowed bounds, so the fit ends on them.
	ds := syntheticPool(testParams, testTemps, 60)
	opts := DefaultFitOptions()
	opts.Bounds.N = Interval{Min: 1.5, Max: 3}
	opts.InitialGuess.N = 2
	opts.MaxResidualRatio = 1

	fit, err := FitAutocatalytic(ds, testParams.A1, testParams.E1, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fit.Params.N < 1.5 || fit.Params.N > 3 {
		t.Errorf("n = %.6g escaped its bounds", fit.Params.N)
	}
	for i, u := range fit.Normalized {
		if u < 0 || u > 1 {
			t.Errorf("normalized parameter %d = %.6g outside [0,1]", i, u)
		}
	}
}

func TestFitAutocatalyticNelderMead(t *testing.T) {
	ds := syntheticPool(testParams, testTemps, 60)
	opts := DefaultFitOptions()
	opts.Method = MethodNelderMead
	opts.InitialGuess = Autocatalytic{Log10A2: 4.5, E2: 54000, M: 1.0, N: 1.3}
	opts.Tolerance = 1e-10
	opts.MaxIterations = 20000

	p, err := newProblem(ds, testParams.A1, testParams.E1, opts.Bounds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	start := p.cost(opts.Bounds.normalize(opts.InitialGuess), make([]float64, len(p.obs)))

	fit, err := FitAutocatalytic(ds, testParams.A1, testParams.E1, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fit.Method != MethodNelderMead {
		t.Errorf("expected method %q, got %q", MethodNelderMead, fit.Method)
	}
	if !(fit.ResidualRatio < start) {
		t.Errorf("expected residual ratio below the initial %.4g, got %.4g", start, fit.ResidualRatio)
	}
	for i, u := range fit.Normalized {
		if u < 0 || u > 1 {
			t.Errorf("normalized parameter %d = %.6g outside [0,1]", i, u)
		}
	}
}

func TestFitAutocatalyticResidualSanityCheck(t *testing.T) {
	// Rates that fall with temperature cannot be explained by the law.
	ds := syntheticPool(testParams, testTemps, 40)
	ds.Rates[testTemps[0]], ds.Rates[testTemps[2]] = ds.Rates[testTemps[2]], ds.Rates[testTemps[0]]

	opts := DefaultFitOptions()
	opts.MaxResidualRatio = 1e-6

	_, err := FitAutocatalytic(ds, testParams.A1, testParams.E1, opts)
	if !errors.Is(err, types.ErrFitDidNotConverge) {
		t.Errorf("expected %v, got %v", types.ErrFitDidNotConverge, err)
	}
}

func TestFitAutocatalyticIterationBudget(t *testing.T) {
	ds := syntheticPool(testParams, testTemps, 40)
	opts := DefaultFitOptions()
	opts.MaxIterations = 1

	_, err := FitAutocatalytic(ds, testParams.A1, testParams.E1, opts)
	if !errors.Is(err, types.ErrFitDidNotConverge) {
		t.Errorf("expected %v, got %v", types.ErrFitDidNotConverge, err)
	}
}

func TestFitAutocatalyticErrors(t *testing.T) {
	good := syntheticPool(testParams, testTemps, 20)

	sparse := syntheticPool(testParams, testTemps[:1], 3)

	flat := syntheticPool(testParams, testTemps[:1], 10)
	for i := range flat.Rates[testTemps[0]] {
		flat.Rates[testTemps[0]][i] = 1e-3
	}

	tests := []struct {
		name   string
		ds     types.PooledRateDataset
		a1     float64
		modify func(*FitOptions)
		want   error
	}{
		{name: "fewer than four points", ds: sparse, a1: testParams.A1, want: types.ErrInsufficientData},
		{name: "constant rates", ds: flat, a1: testParams.A1, want: types.ErrDegenerateRegression},
		{name: "non-positive A1", ds: good, a1: 0, want: types.ErrConfiguration},
		{name: "unknown method", ds: good, a1: testParams.A1, modify: func(o *FitOptions) { o.Method = "bfgs" }, want: types.ErrConfiguration},
		{name: "inverted bounds", ds: good, a1: testParams.A1, modify: func(o *FitOptions) { o.Bounds.E2 = Interval{Min: 2e5, Max: 3e4} }, want: types.ErrConfiguration},
		{name: "guess outside bounds", ds: good, a1: testParams.A1, modify: func(o *FitOptions) { o.InitialGuess.M = 5 }, want: types.ErrConfiguration},
		{name: "zero tolerance", ds: good, a1: testParams.A1, modify: func(o *FitOptions) { o.Tolerance = 0 }, want: types.ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultFitOptions()
			if tt.modify != nil {
				tt.modify(&opts)
			}
			_, err := FitAutocatalytic(tt.ds, tt.a1, testParams.E1, opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	b := DefaultFitOptions().Bounds
	p := Autocatalytic{Log10A2: 3, E2: 2e5, M: 1.55, N: 0.1}
	u := b.normalize(p)

	want := []float64{0, 1, 0.5, 0}
	for i := range want {
		if math.Abs(u[i]-want[i]) > 1e-12 {
			t.Errorf("component %d: expected %.4f, got %.4f", i, want[i], u[i])
		}
	}
	back := b.denormalize(u)
	if math.Abs(back.E2-p.E2) > 1e-6 || math.Abs(back.M-p.M) > 1e-12 {
		t.Errorf("round trip changed parameters: %+v", back)
	}
}
