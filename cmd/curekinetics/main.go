package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/chrissnell/curekinetics/internal/loader"
	"github.com/chrissnell/curekinetics/internal/log"
	"github.com/chrissnell/curekinetics/internal/pipeline"
	"github.com/chrissnell/curekinetics/internal/report"
	"github.com/chrissnell/curekinetics/internal/store"
	"github.com/chrissnell/curekinetics/internal/types"
	"github.com/chrissnell/curekinetics/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "curekinetics.yaml", "Path to the YAML configuration file")
	csvFile := flag.String("csv", "", "Write experimental and simulated curves to this CSV file")
	serve := flag.Bool("serve", false, "Serve stored fits over HTTP after the pipeline finishes")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("curekinetics %s\n", version)
		os.Exit(0)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(*cfgFile)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	if *serve && cfg.Storage.Driver == "" {
		log.Errorf("-serve needs a storage driver in the configuration")
		os.Exit(1)
	}

	res, err := runPipeline(ctx, cfg, filepath.Dir(*cfgFile))
	if err != nil {
		log.Errorf("Pipeline failed: %v", err)
		os.Exit(1)
	}

	printSummary(os.Stdout, res)

	if *csvFile != "" {
		if err := writeCSVFile(*csvFile, res); err != nil {
			log.Errorf("Failed to write CSV: %v", err)
			os.Exit(1)
		}
		log.Infof("wrote curves to %s", *csvFile)
	}

	if cfg.Storage.Driver == "" {
		return
	}

	st, err := store.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN, log.Named("store"))
	if err != nil {
		log.Errorf("Failed to open store: %v", err)
		os.Exit(1)
	}
	defer st.Close()

	rec, err := st.SaveResult(ctx, res)
	if err != nil {
		log.Errorf("Failed to save fit: %v", err)
		os.Exit(1)
	}
	fmt.Printf("\nSaved fit %s\n", rec.ID)

	if *serve {
		srv := report.NewServer(st, cfg.Report.ListenAddr, log.Named("report"))
		if err := srv.Run(ctx); err != nil {
			log.Errorf("Report server error: %v", err)
			os.Exit(1)
		}
	}
}

func loadConfig(cfgFile string) (*config.ConfigData, error) {
	filename, _ := filepath.Abs(cfgFile)

	provider := config.NewYAMLProvider(filename)
	defer provider.Close()

	cfg, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runPipeline loads every configured table and runs the estimation pipeline.
// Relative table paths are resolved against baseDir.
func runPipeline(ctx context.Context, cfg *config.ConfigData, baseDir string) (*pipeline.Result, error) {
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	loaded := make([]types.RawRun, len(cfg.Runs))
	for i, r := range cfg.Runs {
		path := r.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}

		run, err := loader.Load(path, loader.Options{
			Name:         r.Name,
			TemperatureC: r.TemperatureC,
			SampleMass:   r.SampleMassG,
			TimeScale:    r.TimeScale,
			Columns: loader.Columns{
				Time:     r.Columns.Time,
				HeatFlow: r.Columns.HeatFlow,
				Baseline: r.Columns.Baseline,
			},
		})
		if err != nil {
			return nil, err
		}
		log.Infof("loaded %s: %d samples from %s", r.Name, len(run.Time), path)
		loaded[i] = run
	}

	return pipeline.New(opts, log.Named("pipeline")).Run(ctx, pipeline.InputsFromConfig(cfg.Runs, loaded))
}
