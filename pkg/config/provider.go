package config

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetRuns() ([]RunData, error)
	GetStorageConfig() (*StorageData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Runs         []RunData        `json:"runs"`
	Conditioning ConditioningData `json:"conditioning"`
	Pooling      PoolingData      `json:"pooling"`
	Fit          FitData          `json:"fit"`
	Simulation   SimulationData   `json:"simulation"`
	Storage      StorageData      `json:"storage,omitempty"`
	Report       ReportData       `json:"report,omitempty"`
}

// RunData describes one isothermal experiment and where its table lives
type RunData struct {
	Name         string      `json:"name"`
	File         string      `json:"file"`
	TemperatureC float64     `json:"temperature_c"`
	SampleMassG  float64     `json:"sample_mass_g"`
	StartTimeS   float64     `json:"start_time_s,omitempty"`
	TimeScale    float64     `json:"time_scale,omitempty"`
	Columns      ColumnsData `json:"columns,omitempty"`
}

// ColumnsData maps table headers onto the loader's columns
type ColumnsData struct {
	Time     string `json:"time,omitempty"`
	HeatFlow string `json:"heat_flow,omitempty"`
	Baseline string `json:"baseline,omitempty"`
}

// ConditioningData holds the curve conditioner settings
type ConditioningData struct {
	CutoffHz      float64 `json:"cutoff_hz"`
	SpikeRatio    float64 `json:"spike_ratio"`
	EndWindow     int     `json:"end_window"`
	MaxSamplingCV float64 `json:"max_sampling_cv"`
}

// PoolingData holds the alpha grid and monotonicity tolerance
type PoolingData struct {
	AlphaMin           float64 `json:"alpha_min"`
	AlphaMax           float64 `json:"alpha_max"`
	Points             int     `json:"points"`
	MonotonicTolerance float64 `json:"monotonic_tolerance"`
}

// FitData holds the Stage-2 optimiser settings
type FitData struct {
	Method           string         `json:"method"`
	InitialGuess     ParametersData `json:"initial_guess"`
	Bounds           BoundsData     `json:"bounds"`
	Tolerance        float64        `json:"tolerance"`
	MaxIterations    int            `json:"max_iterations"`
	MaxResidualRatio float64        `json:"max_residual_ratio"`
}

// ParametersData is a point in the Stage-2 parameter space
type ParametersData struct {
	Log10A2 float64 `json:"log10_a2"`
	E2      float64 `json:"e2"`
	M       float64 `json:"m"`
	N       float64 `json:"n"`
}

// BoundsData holds the physical bounds of the Stage-2 parameters
type BoundsData struct {
	Log10A2 RangeData `json:"log10_a2"`
	E2      RangeData `json:"e2"`
	M       RangeData `json:"m"`
	N       RangeData `json:"n"`
}

type RangeData struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// SimulationData holds the simulator's time grid
type SimulationData struct {
	StartS              float64 `json:"start_s"`
	EndS                float64 `json:"end_s"`
	StepS               float64 `json:"step_s"`
	DivergenceTolerance float64 `json:"divergence_tolerance"`
}

// StorageData selects the database results are persisted to. An empty
// driver disables persistence.
type StorageData struct {
	Driver string `json:"driver,omitempty"`
	DSN    string `json:"dsn,omitempty"`
}

type ReportData struct {
	ListenAddr string `json:"listen_addr,omitempty"`
}
