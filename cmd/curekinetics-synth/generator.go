package main

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"strconv"

	"github.com/chrissnell/curekinetics/internal/kinetics"
	"github.com/chrissnell/curekinetics/internal/types"
	"github.com/chrissnell/curekinetics/pkg/config"
)

// Generator produces synthetic isothermal heat-flow tables from a rate law
type Generator struct {
	Params types.KineticParameters

	Enthalpy   float64 // J/g
	SampleMass float64 // g
	Step       float64 // s
	Duration   float64 // s of reaction after the lead-in

	// Lead is the equilibration time before the reaction starts, during
	// which the instrument reports a small endotherm.
	Lead float64

	Baseline float64 // W, constant instrument baseline
	Noise    float64 // W, standard deviation of Gaussian noise

	rng *rand.Rand
}

// NewGenerator returns a generator with a seeded noise source
func NewGenerator(params types.KineticParameters, seed int64) *Generator {
	return &Generator{
		Params:     params,
		Enthalpy:   400,
		SampleMass: 0.01,
		Step:       0.5,
		Duration:   20000,
		Lead:       60,
		Baseline:   0.05,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Series is one generated run
type Series struct {
	Time         []float64
	Unsubtracted []float64
	Baseline     []float64
}

// Generate integrates the rate law at tempC and converts the rate to
// instrument heat flow.
func (g *Generator) Generate(tempC float64) (Series, error) {
	times, err := kinetics.TimeGrid(0, g.Duration, g.Step)
	if err != nil {
		return Series{}, err
	}
	sim, err := kinetics.Simulate(g.Params, types.CelsiusToKelvin(tempC), times, kinetics.SimulationOptions{DivergenceTolerance: kinetics.DefaultDivergenceTolerance})
	if err != nil {
		return Series{}, err
	}

	lead := int(g.Lead / g.Step)
	n := lead + len(sim.Time)
	s := Series{
		Time:         make([]float64, n),
		Unsubtracted: make([]float64, n),
		Baseline:     make([]float64, n),
	}
	for i := 0; i < n; i++ {
		s.Time[i] = float64(i) * g.Step
		s.Baseline[i] = g.Baseline

		signal := -0.1 * g.Enthalpy * g.SampleMass * 1e-3
		if i >= lead {
			signal = g.Enthalpy * g.SampleMass * sim.Rate[i-lead]
		}
		s.Unsubtracted[i] = g.Baseline + signal + g.Noise*g.rng.NormFloat64()
	}
	return s, nil
}

// WriteTable writes s as a whitespace-separated table with the default
// column headers.
func WriteTable(w io.Writer, s Series) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\t%s\t%s\n", config.DefaultTimeColumn, config.DefaultHeatFlowColumn, config.DefaultBaselineColumn)

	format := func(v float64) string { return strconv.FormatFloat(v, 'g', 10, 64) }
	for i := range s.Time {
		fmt.Fprintf(bw, "%s\t%s\t%s\n", format(s.Time[i]), format(s.Unsubtracted[i]), format(s.Baseline[i]))
	}
	return bw.Flush()
}
