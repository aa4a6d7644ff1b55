package kinetics

import (
	"math"

	"github.com/chrissnell/curekinetics/internal/types"
)

var (
	testTemps = []float64{393.15, 423.15, 453.15}

	testParams = types.KineticParameters{
		A1: 2e5,
		E1: 70000,
		A2: 4e4,
		E2: 55000,
		M:  0.9,
		N:  1.2,
	}
)

// syntheticPool evaluates the rate law exactly on a uniform α grid at each
// temperature.
func syntheticPool(p types.KineticParameters, temps []float64, points int) types.PooledRateDataset {
	ds := types.PooledRateDataset{
		Alpha:   make([]float64, points),
		Rates:   make(map[float64][]float64, len(temps)),
		Dropped: make(map[float64]int, len(temps)),
	}
	for i := range ds.Alpha {
		ds.Alpha[i] = 0.05 + 0.9*float64(i)/float64(points-1)
	}
	for _, T := range temps {
		rates := make([]float64, points)
		for i, a := range ds.Alpha {
			rates[i] = p.Rate(a, T)
		}
		ds.Rates[T] = rates
	}
	return ds
}

func relErr(got, want float64) float64 {
	return math.Abs(got-want) / math.Abs(want)
}
