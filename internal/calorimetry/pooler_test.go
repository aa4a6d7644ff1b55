package calorimetry

import (
	"errors"
	"math"
	"testing"

	"github.com/chrissnell/curekinetics/internal/types"
)

func pair(temp float64, alpha, rate []float64) CurvePair {
	times := make([]float64, len(alpha))
	for i := range times {
		times[i] = float64(i)
	}
	return CurvePair{
		Conversion: types.ConversionCurve{Name: "p", TemperatureK: temp, Time: times, Alpha: alpha},
		Rate:       types.RateCurve{Name: "p", TemperatureK: temp, Time: times, Rate: rate},
	}
}

func TestAlphaGrid(t *testing.T) {
	grid, err := AlphaGrid(0.05, 0.95, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grid) != 10 || grid[0] != 0.05 || grid[9] != 0.95 {
		t.Errorf("unexpected grid %v", grid)
	}

	bad := []struct {
		name      string
		low, high float64
		points    int
	}{
		{"includes zero", 0, 0.9, 5},
		{"includes one", 0.1, 1, 5},
		{"descending", 0.9, 0.1, 5},
		{"no points", 0.1, 0.9, 0},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := AlphaGrid(tt.low, tt.high, tt.points); !errors.Is(err, types.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestPoolInterpolates(t *testing.T) {
	p := pair(400,
		[]float64{0, 0.2, 0.4, 0.6, 0.8},
		[]float64{1, 2, 3, 4, 5},
	)
	grid := []float64{0.2, 0.3, 0.6, 0.7}

	ds, err := Pool([]CurvePair{p}, grid, DefaultMonotonicTolerance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{2, 2.5, 4, 4.5}
	got := ds.Rates[400]
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("alpha %.2f: expected %.4f, got %.4f", grid[i], want[i], got[i])
		}
	}
	if ds.Defined() != 4 {
		t.Errorf("expected 4 defined points, got %d", ds.Defined())
	}
}

func TestPoolOutsideObservedRangeIsUndefined(t *testing.T) {
	p := pair(420,
		[]float64{0.1, 0.3, 0.5},
		[]float64{1, 1, 1},
	)
	grid := []float64{0.05, 0.2, 0.5, 0.9}

	ds, err := Pool([]CurvePair{p}, grid, DefaultMonotonicTolerance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := ds.Rates[420]
	if !math.IsNaN(got[0]) || !math.IsNaN(got[3]) {
		t.Errorf("expected NaN outside the observed range, got %v", got)
	}
	if got[1] != 1 || got[2] != 1 {
		t.Errorf("expected interpolated values inside the range, got %v", got)
	}
}

func TestPoolSkipsSmallDrops(t *testing.T) {
	p := pair(430,
		[]float64{0, 0.2, 0.2, 0.1995, 0.4, 0.6},
		[]float64{0, 2, 9, 9, 4, 6},
	)
	ds, err := Pool([]CurvePair{p}, []float64{0.3}, DefaultMonotonicTolerance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Dropped[430] != 2 {
		t.Errorf("expected 2 dropped samples, got %d", ds.Dropped[430])
	}
	if got := ds.Rates[430][0]; math.Abs(got-3) > 1e-12 {
		t.Errorf("expected 3 at alpha 0.3, got %.4f", got)
	}
}

func TestPoolErrors(t *testing.T) {
	good := pair(400, []float64{0, 0.5, 1}, []float64{1, 1, 0})

	tests := []struct {
		name  string
		pairs []CurvePair
		grid  []float64
		want  error
	}{
		{
			name:  "non-monotonic conversion",
			pairs: []CurvePair{pair(400, []float64{0, 0.5, 0.3, 0.8}, []float64{1, 1, 1, 1})},
			grid:  []float64{0.5},
			want:  types.ErrNonMonotonicConversion,
		},
		{
			name:  "duplicate temperature",
			pairs: []CurvePair{good, good},
			grid:  []float64{0.5},
			want:  types.ErrConfiguration,
		},
		{
			name:  "grid touches zero",
			pairs: []CurvePair{good},
			grid:  []float64{0, 0.5},
			want:  types.ErrConfiguration,
		},
		{
			name:  "grid touches one",
			pairs: []CurvePair{good},
			grid:  []float64{0.5, 1},
			want:  types.ErrConfiguration,
		},
		{
			name:  "unsorted grid",
			pairs: []CurvePair{good},
			grid:  []float64{0.5, 0.2},
			want:  types.ErrConfiguration,
		},
		{
			name:  "flat conversion",
			pairs: []CurvePair{pair(400, []float64{0.3, 0.3, 0.3}, []float64{0, 0, 0})},
			grid:  []float64{0.5},
			want:  types.ErrDegenerateCurve,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Pool(tt.pairs, tt.grid, DefaultMonotonicTolerance)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
