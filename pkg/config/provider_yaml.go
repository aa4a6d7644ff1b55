package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config, err := ParseYAML(cfgFile)
	if err != nil {
		return nil, err
	}

	y.config = config
	return config, nil
}

// ParseYAML converts a YAML document into ConfigData. Defaults are not applied.
func ParseYAML(data []byte) (*ConfigData, error) {
	// Load into temporary struct with YAML tags
	var yamlConfig ConfigYAML
	if err := yaml.UnmarshalStrict(data, &yamlConfig); err != nil {
		return nil, err
	}

	config := &ConfigData{
		Runs: make([]RunData, len(yamlConfig.Runs)),
		Conditioning: ConditioningData{
			CutoffHz:      yamlConfig.Conditioning.CutoffHz,
			SpikeRatio:    yamlConfig.Conditioning.SpikeRatio,
			EndWindow:     yamlConfig.Conditioning.EndWindow,
			MaxSamplingCV: yamlConfig.Conditioning.MaxSamplingCV,
		},
		Pooling: PoolingData{
			AlphaMin:           yamlConfig.Pooling.AlphaMin,
			AlphaMax:           yamlConfig.Pooling.AlphaMax,
			Points:             yamlConfig.Pooling.Points,
			MonotonicTolerance: yamlConfig.Pooling.MonotonicTolerance,
		},
		Fit: FitData{
			Method:           yamlConfig.Fit.Method,
			InitialGuess:     ParametersData(yamlConfig.Fit.InitialGuess),
			Tolerance:        yamlConfig.Fit.Tolerance,
			MaxIterations:    yamlConfig.Fit.MaxIterations,
			MaxResidualRatio: yamlConfig.Fit.MaxResidualRatio,
			Bounds: BoundsData{
				Log10A2: RangeData(yamlConfig.Fit.Bounds.Log10A2),
				E2:      RangeData(yamlConfig.Fit.Bounds.E2),
				M:       RangeData(yamlConfig.Fit.Bounds.M),
				N:       RangeData(yamlConfig.Fit.Bounds.N),
			},
		},
		Simulation: SimulationData{
			StartS:              yamlConfig.Simulation.StartS,
			EndS:                yamlConfig.Simulation.EndS,
			StepS:               yamlConfig.Simulation.StepS,
			DivergenceTolerance: yamlConfig.Simulation.DivergenceTolerance,
		},
		Storage: StorageData{
			Driver: yamlConfig.Storage.Driver,
			DSN:    yamlConfig.Storage.DSN,
		},
		Report: ReportData{
			ListenAddr: yamlConfig.Report.ListenAddr,
		},
	}

	// Convert runs
	for i, run := range yamlConfig.Runs {
		config.Runs[i] = RunData{
			Name:         run.Name,
			File:         run.File,
			TemperatureC: run.TemperatureC,
			SampleMassG:  run.SampleMassG,
			StartTimeS:   run.StartTimeS,
			TimeScale:    run.TimeScale,
			Columns: ColumnsData{
				Time:     run.Columns.Time,
				HeatFlow: run.Columns.HeatFlow,
				Baseline: run.Columns.Baseline,
			},
		}
	}

	return config, nil
}

// GetRuns returns run configurations
func (y *YAMLProvider) GetRuns() ([]RunData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return y.config.Runs, nil
}

// GetStorageConfig returns storage configuration
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Storage, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with proper YAML tags
type ConfigYAML struct {
	Runs         []RunYAML        `yaml:"runs"`
	Conditioning ConditioningYAML `yaml:"conditioning,omitempty"`
	Pooling      PoolingYAML      `yaml:"pooling,omitempty"`
	Fit          FitYAML          `yaml:"fit,omitempty"`
	Simulation   SimulationYAML   `yaml:"simulation,omitempty"`
	Storage      StorageYAML      `yaml:"storage,omitempty"`
	Report       ReportYAML       `yaml:"report,omitempty"`
}

type RunYAML struct {
	Name         string      `yaml:"name"`
	File         string      `yaml:"file"`
	TemperatureC float64     `yaml:"temperature_c"`
	SampleMassG  float64     `yaml:"sample_mass_g"`
	StartTimeS   float64     `yaml:"start_time_s,omitempty"`
	TimeScale    float64     `yaml:"time_scale,omitempty"`
	Columns      ColumnsYAML `yaml:"columns,omitempty"`
}

type ColumnsYAML struct {
	Time     string `yaml:"time,omitempty"`
	HeatFlow string `yaml:"heat_flow,omitempty"`
	Baseline string `yaml:"baseline,omitempty"`
}

type ConditioningYAML struct {
	CutoffHz      float64 `yaml:"cutoff_hz,omitempty"`
	SpikeRatio    float64 `yaml:"spike_ratio,omitempty"`
	EndWindow     int     `yaml:"end_window,omitempty"`
	MaxSamplingCV float64 `yaml:"max_sampling_cv,omitempty"`
}

type PoolingYAML struct {
	AlphaMin           float64 `yaml:"alpha_min,omitempty"`
	AlphaMax           float64 `yaml:"alpha_max,omitempty"`
	Points             int     `yaml:"points,omitempty"`
	MonotonicTolerance float64 `yaml:"monotonic_tolerance,omitempty"`
}

type FitYAML struct {
	Method           string         `yaml:"method,omitempty"`
	InitialGuess     ParametersYAML `yaml:"initial_guess,omitempty"`
	Bounds           BoundsYAML     `yaml:"bounds,omitempty"`
	Tolerance        float64        `yaml:"tolerance,omitempty"`
	MaxIterations    int            `yaml:"max_iterations,omitempty"`
	MaxResidualRatio float64        `yaml:"max_residual_ratio,omitempty"`
}

type ParametersYAML struct {
	Log10A2 float64 `yaml:"log10_a2,omitempty"`
	E2      float64 `yaml:"e2,omitempty"`
	M       float64 `yaml:"m,omitempty"`
	N       float64 `yaml:"n,omitempty"`
}

type BoundsYAML struct {
	Log10A2 RangeYAML `yaml:"log10_a2,omitempty"`
	E2      RangeYAML `yaml:"e2,omitempty"`
	M       RangeYAML `yaml:"m,omitempty"`
	N       RangeYAML `yaml:"n,omitempty"`
}

type RangeYAML struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

type SimulationYAML struct {
	StartS              float64 `yaml:"start_s,omitempty"`
	EndS                float64 `yaml:"end_s,omitempty"`
	StepS               float64 `yaml:"step_s,omitempty"`
	DivergenceTolerance float64 `yaml:"divergence_tolerance,omitempty"`
}

type StorageYAML struct {
	Driver string `yaml:"driver,omitempty"`
	DSN    string `yaml:"dsn,omitempty"`
}

type ReportYAML struct {
	ListenAddr string `yaml:"listen_addr,omitempty"`
}
