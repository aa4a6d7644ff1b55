package types

import (
	"math"
	"sort"
)

// KelvinOffset converts Celsius to Kelvin.
const KelvinOffset = 273.15

// CelsiusToKelvin returns the absolute temperature for a Celsius reading
func CelsiusToKelvin(c float64) float64 {
	return c + KelvinOffset
}

// KelvinToCelsius is the inverse of CelsiusToKelvin
func KelvinToCelsius(k float64) float64 {
	return k - KelvinOffset
}

// RawRun is a single isothermal calorimetry experiment as delivered by the
// tabular loader. It is never modified after loading.
type RawRun struct {
	Name                 string
	Time                 []float64 // seconds
	UnsubtractedHeatFlow []float64 // W
	BaselineHeatFlow     []float64 // W, may be all zero
	SampleMass           float64   // g
	TemperatureC         float64   // nominal cure temperature
}

// TemperatureK returns the nominal cure temperature in Kelvin
func (r RawRun) TemperatureK() float64 {
	return CelsiusToKelvin(r.TemperatureC)
}

// Len returns the number of samples in the run
func (r RawRun) Len() int {
	return len(r.Time)
}

// ConditionedCurve is a despiked, baseline-corrected, mass-normalized and
// low-pass filtered heat-flow trace beginning at the reaction onset.
type ConditionedCurve struct {
	Name         string
	TemperatureK float64
	Time         []float64 // seconds, strictly increasing
	HeatFlow     []float64 // W/g

	// Bookkeeping from conditioning, indexes refer to the raw run.
	OnsetIndex     int
	StartIndex     int
	SpikesRejected int
	EndOffset      float64 // W/g subtracted by end-zeroing
	SampleRate     float64 // Hz, 1/mean(dt)
}

// ConversionCurve holds the degree of cure over time.
type ConversionCurve struct {
	Name         string
	TemperatureK float64
	Time         []float64
	Alpha        []float64

	// Enthalpy is the total specific reaction heat (J/g) used to normalize Alpha,
	// TotalHeat the trapezoidal integral over the whole curve.
	Enthalpy  float64
	TotalHeat float64

	// Decreases counts samples where Alpha fell below its predecessor and
	// MaxDecrease is the largest such drop. Alpha is never clamped.
	Decreases   int
	MaxDecrease float64
}

// RateCurve is dα/dt over the same time base as its ConversionCurve.
type RateCurve struct {
	Name         string
	TemperatureK float64
	Time         []float64
	Rate         []float64 // 1/s
}

// PooledRateDataset holds reaction rates from every temperature resampled
// on a shared alpha grid. Grid points outside a curve's observed conversion
// range are NaN.
type PooledRateDataset struct {
	Alpha []float64
	Rates map[float64][]float64 // keyed by temperature in Kelvin

	// Dropped counts, per temperature, the samples skipped because they did
	// not advance the running maximum of alpha.
	Dropped map[float64]int
}

// Temperatures returns the pooled temperatures in ascending order
func (p PooledRateDataset) Temperatures() []float64 {
	temps := make([]float64, 0, len(p.Rates))
	for t := range p.Rates {
		temps = append(temps, t)
	}
	sort.Float64s(temps)
	return temps
}

// Defined returns the number of (temperature, alpha) pairs with a rate
func (p PooledRateDataset) Defined() int {
	n := 0
	for _, rates := range p.Rates {
		for _, r := range rates {
			if !math.IsNaN(r) {
				n++
			}
		}
	}
	return n
}

// SimulatedCure is the output of forward-integrating a rate law at one temperature.
type SimulatedCure struct {
	TemperatureK float64
	Time         []float64
	Alpha        []float64
	Rate         []float64

	// Clamped counts steps where alpha left [0,1] within tolerance and was pulled back.
	Clamped int
}
