// Command curekinetics-synth writes synthetic isothermal calorimetry tables
// and a matching configuration for trying out the estimation pipeline.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/chrissnell/curekinetics/internal/log"
	"github.com/chrissnell/curekinetics/internal/types"
	"github.com/chrissnell/curekinetics/pkg/config"
)

func main() {
	var (
		outDir   = flag.String("out", ".", "Directory to write tables and curekinetics.yaml into")
		temps    = flag.String("temps", "120,150,180", "Comma-separated isothermal temperatures in °C")
		a1       = flag.Float64("a1", 2e5, "Pre-exponential factor A1 (1/s)")
		e1       = flag.Float64("e1", 70000, "Activation energy E1 (J/mol)")
		a2       = flag.Float64("a2", 4e4, "Pre-exponential factor A2 (1/s)")
		e2       = flag.Float64("e2", 55000, "Activation energy E2 (J/mol)")
		m        = flag.Float64("m", 0.9, "Autocatalytic exponent m")
		n        = flag.Float64("n", 1.2, "Reaction order n")
		enthalpy = flag.Float64("enthalpy", 400, "Total reaction heat (J/g)")
		mass     = flag.Float64("mass", 0.01, "Sample mass (g)")
		step     = flag.Float64("step", 0.5, "Sampling interval (s)")
		duration = flag.Float64("duration", 20000, "Reaction time recorded per run (s)")
		noise    = flag.Float64("noise", 0, "Standard deviation of heat-flow noise (W)")
		seed     = flag.Int64("seed", 1, "Noise seed")
		debug    = flag.Bool("debug", false, "Turn on debugging output")
	)
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	temperatures, err := parseTemperatures(*temps)
	if err != nil {
		log.Fatalf("Invalid -temps: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Failed to create %s: %v", *outDir, err)
	}

	gen := NewGenerator(types.KineticParameters{A1: *a1, E1: *e1, A2: *a2, E2: *e2, M: *m, N: *n}, *seed)
	gen.Enthalpy = *enthalpy
	gen.SampleMass = *mass
	gen.Step = *step
	gen.Duration = *duration
	gen.Noise = *noise

	cfg := config.ConfigYAML{
		Simulation: config.SimulationYAML{EndS: *duration},
		Storage:    config.StorageYAML{Driver: "sqlite", DSN: config.DefaultStorageDSN},
	}
	for _, tc := range temperatures {
		name := strconv.FormatFloat(tc, 'f', -1, 64) + "C"
		file := "isothermal_" + name + ".txt"

		series, err := gen.Generate(tc)
		if err != nil {
			log.Fatalf("Failed to generate %s: %v", name, err)
		}
		if err := writeTableFile(filepath.Join(*outDir, file), series); err != nil {
			log.Fatalf("Failed to write %s: %v", file, err)
		}
		log.Infof("wrote %s (%d samples)", file, len(series.Time))

		cfg.Runs = append(cfg.Runs, config.RunYAML{
			Name:         name,
			File:         file,
			TemperatureC: tc,
			SampleMassG:  *mass,
			StartTimeS:   gen.Lead,
		})
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		log.Fatalf("Failed to encode configuration: %v", err)
	}
	cfgPath := filepath.Join(*outDir, "curekinetics.yaml")
	if err := os.WriteFile(cfgPath, out, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", cfgPath, err)
	}
	log.Infof("wrote %s", cfgPath)
}

func parseTemperatures(list string) ([]float64, error) {
	var temps []float64
	for _, f := range strings.Split(list, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		t, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		temps = append(temps, t)
	}
	if len(temps) == 0 {
		return nil, fmt.Errorf("no temperatures given")
	}
	return temps, nil
}

func writeTableFile(path string, s Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTable(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
