package calorimetry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"github.com/chrissnell/curekinetics/internal/types"
)

// DefaultMonotonicTolerance is the largest drop in α accepted before pooling fails.
const DefaultMonotonicTolerance = 1e-3

// CurvePair is the conversion and rate curve of one temperature
type CurvePair struct {
	Conversion types.ConversionCurve
	Rate       types.RateCurve
}

// AlphaGrid returns points evenly spaced conversion values from low to high inclusive
func AlphaGrid(low, high float64, points int) ([]float64, error) {
	if points < 1 {
		return nil, fmt.Errorf("%w: alpha grid needs at least one point", types.ErrConfiguration)
	}
	if points == 1 {
		if low != high {
			return nil, fmt.Errorf("%w: a single-point alpha grid needs equal bounds", types.ErrConfiguration)
		}
		grid := []float64{low}
		return grid, ValidateAlphaGrid(grid)
	}
	if !(low < high) {
		return nil, fmt.Errorf("%w: alpha grid bounds [%.4g, %.4g] are not ascending", types.ErrConfiguration, low, high)
	}
	grid := floats.Span(make([]float64, points), low, high)
	grid[points-1] = high
	return grid, ValidateAlphaGrid(grid)
}

// ValidateAlphaGrid checks that grid is non-empty, strictly ascending and
// strictly inside (0,1).
func ValidateAlphaGrid(grid []float64) error {
	if len(grid) == 0 {
		return fmt.Errorf("%w: empty alpha grid", types.ErrConfiguration)
	}
	for i, a := range grid {
		if !(a > 0 && a < 1) {
			return fmt.Errorf("%w: alpha grid point %.4g is not strictly inside (0,1)", types.ErrConfiguration, a)
		}
		if i > 0 && a <= grid[i-1] {
			return fmt.Errorf("%w: alpha grid is not strictly ascending at index %d", types.ErrConfiguration, i)
		}
	}
	return nil
}

// Pool resamples every pair's dα/dt at the grid conversions by linear
// interpolation against that pair's own α. A pair whose α drops more than
// tolerance below its running maximum fails with ErrNonMonotonicConversion.
// Smaller drops and plateaus are skipped and counted in Dropped. Grid points
// outside the observed α range are NaN; nothing is extrapolated.
func Pool(pairs []CurvePair, grid []float64, tolerance float64) (types.PooledRateDataset, error) {
	if err := ValidateAlphaGrid(grid); err != nil {
		return types.PooledRateDataset{}, err
	}
	if tolerance < 0 {
		return types.PooledRateDataset{}, fmt.Errorf("%w: monotonic tolerance must not be negative", types.ErrConfiguration)
	}

	ds := types.PooledRateDataset{
		Alpha:   append([]float64(nil), grid...),
		Rates:   make(map[float64][]float64, len(pairs)),
		Dropped: make(map[float64]int, len(pairs)),
	}

	for _, p := range pairs {
		temp := p.Conversion.TemperatureK
		if _, dup := ds.Rates[temp]; dup {
			return types.PooledRateDataset{}, fmt.Errorf("%w: temperature %.2f K pooled twice", types.ErrConfiguration, temp)
		}

		rates, dropped, err := resample(p, grid, tolerance)
		if err != nil {
			return types.PooledRateDataset{}, err
		}
		ds.Rates[temp] = rates
		ds.Dropped[temp] = dropped
	}

	return ds, nil
}

func resample(p CurvePair, grid []float64, tolerance float64) ([]float64, int, error) {
	alpha, rate := p.Conversion.Alpha, p.Rate.Rate
	if len(alpha) != len(rate) {
		return nil, 0, fmt.Errorf("%w: curve %s has %d conversions but %d rates",
			types.ErrConfiguration, p.Conversion.Name, len(alpha), len(rate))
	}
	if len(alpha) < 2 {
		return nil, 0, fmt.Errorf("%w: curve %s has fewer than 2 samples", types.ErrDegenerateCurve, p.Conversion.Name)
	}

	xs := []float64{alpha[0]}
	ys := []float64{rate[0]}
	dropped := 0
	peak := alpha[0]
	for i := 1; i < len(alpha); i++ {
		a := alpha[i]
		if a < peak-tolerance {
			return nil, 0, fmt.Errorf("%w: curve %s falls from %.6g to %.6g at sample %d",
				types.ErrNonMonotonicConversion, p.Conversion.Name, peak, a, i)
		}
		if a <= peak {
			dropped++
			continue
		}
		peak = a
		xs = append(xs, a)
		ys = append(ys, rate[i])
	}
	if len(xs) < 2 {
		return nil, 0, fmt.Errorf("%w: curve %s has no rising conversion", types.ErrDegenerateCurve, p.Conversion.Name)
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, 0, err
	}

	lo, hi := xs[0], xs[len(xs)-1]
	out := make([]float64, len(grid))
	for i, a := range grid {
		if a < lo || a > hi {
			out[i] = math.NaN()
			continue
		}
		out[i] = pl.Predict(a)
	}
	return out, dropped, nil
}
