package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/chrissnell/curekinetics/internal/pipeline"
	"github.com/chrissnell/curekinetics/internal/types"
)

func printSummary(out io.Writer, res *pipeline.Result) {
	p := res.Params

	fmt.Fprintln(out, "Stage 1 (Arrhenius, initial rates)")
	fmt.Fprintf(out, "  A1 = %.6g 1/s  E1 = %.6g J/mol  R² = %.5f\n", p.A1, p.E1, res.Arrhenius.RSquared)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  T (°C)\tmeasured k1\tfitted k1\trel. error")
	for _, pt := range res.Arrhenius.Points {
		fmt.Fprintf(w, "  %.2f\t%.4e\t%.4e\t%.2f%%\n",
			types.KelvinToCelsius(pt.TemperatureK), pt.Measured, pt.Fitted, 100*pt.RelativeError)
	}
	w.Flush()

	auto := res.Autocatalytic
	fmt.Fprintf(out, "\nStage 2 (autocatalytic, %s, %d iterations, %d points)\n",
		auto.Method, auto.Iterations, auto.Observations)
	fmt.Fprintf(out, "  A2 = %.6g 1/s  E2 = %.6g J/mol  m = %.4f  n = %.4f\n", p.A2, p.E2, p.M, p.N)
	fmt.Fprintf(out, "  residual ratio = %.3e\n", auto.ResidualRatio)

	fmt.Fprintln(out, "\nSimulation against experiment")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  run\tT (°C)\tΔH (J/g)\tmax |Δα|\tRMS Δα\tclamped")
	for _, r := range res.Runs {
		fmt.Fprintf(w, "  %s\t%.2f\t%.2f\t%.4f\t%.4f\t%d\n",
			r.Name, types.KelvinToCelsius(r.TemperatureK), r.Conversion.Enthalpy,
			r.Comparison.MaxAbsError, r.Comparison.RMSError, r.Simulation.Clamped)
	}
	w.Flush()
}

func writeCSVFile(path string, res *pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeCSV(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeCSV writes every run's experimental and simulated curves in long
// format, one sample per row.
func writeCSV(out io.Writer, res *pipeline.Result) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"run", "temperature_k", "kind", "time_s", "alpha", "rate"}); err != nil {
		return err
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, r := range res.Runs {
		series := []struct {
			kind        string
			time, alpha []float64
			rate        []float64
		}{
			{"experimental", r.Conversion.Time, r.Conversion.Alpha, r.Rate.Rate},
			{"simulated", r.Simulation.Time, r.Simulation.Alpha, r.Simulation.Rate},
		}
		for _, s := range series {
			for i := range s.time {
				rate := ""
				if i < len(s.rate) {
					rate = format(s.rate[i])
				}
				row := []string{r.Name, format(r.TemperatureK), s.kind, format(s.time[i]), format(s.alpha[i]), rate}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
	}

	w.Flush()
	return w.Error()
}
