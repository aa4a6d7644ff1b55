package calorimetry

import (
	"fmt"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/curekinetics/internal/types"
)

// DefaultTailSamples is the number of trailing samples of the cumulative heat
// averaged to estimate the total reaction enthalpy.
const DefaultTailSamples = 100

// BuildConversion integrates a conditioned heat-flow curve into the degree of
// cure α(t) and differentiates it into dα/dt. α is the cumulative trapezoidal
// heat divided by the asymptotic total heat, taken as the mean of the last
// tailSamples cumulative values.
//
// α is not clamped: any sample below its predecessor is counted in Decreases.
func BuildConversion(c types.ConditionedCurve, tailSamples int) (types.ConversionCurve, types.RateCurve, error) {
	n := len(c.Time)
	if len(c.HeatFlow) != n {
		return types.ConversionCurve{}, types.RateCurve{}, fmt.Errorf("%w: curve %s has %d times but %d heat-flow samples",
			types.ErrConfiguration, c.Name, n, len(c.HeatFlow))
	}
	if n < 3 {
		return types.ConversionCurve{}, types.RateCurve{}, fmt.Errorf("%w: curve %s has %d samples, need at least 3",
			types.ErrDegenerateCurve, c.Name, n)
	}
	if tailSamples < 1 {
		tailSamples = 1
	}
	if tailSamples > n {
		tailSamples = n
	}

	cumulative := CumulativeTrapezoid(c.HeatFlow, c.Time)
	enthalpy := stat.Mean(cumulative[n-tailSamples:], nil)
	if !(enthalpy > 0) {
		return types.ConversionCurve{}, types.RateCurve{}, fmt.Errorf("%w: curve %s has non-positive total heat %.4g J/g",
			types.ErrDegenerateCurve, c.Name, enthalpy)
	}

	alpha := make([]float64, n)
	for i, h := range cumulative {
		alpha[i] = h / enthalpy
	}

	conv := types.ConversionCurve{
		Name:         c.Name,
		TemperatureK: c.TemperatureK,
		Time:         append([]float64(nil), c.Time...),
		Alpha:        alpha,
		Enthalpy:     enthalpy,
		TotalHeat:    integrate.Trapezoidal(c.Time, c.HeatFlow),
	}
	for i := 1; i < n; i++ {
		if drop := alpha[i-1] - alpha[i]; drop > 0 {
			conv.Decreases++
			if drop > conv.MaxDecrease {
				conv.MaxDecrease = drop
			}
		}
	}

	rate := types.RateCurve{
		Name:         c.Name,
		TemperatureK: c.TemperatureK,
		Time:         append([]float64(nil), c.Time...),
		Rate:         Gradient(alpha, c.Time),
	}

	return conv, rate, nil
}

// CumulativeTrapezoid returns the running trapezoidal integral of y over x,
// starting at zero.
func CumulativeTrapezoid(y, x []float64) []float64 {
	out := make([]float64, len(y))
	for i := 1; i < len(y); i++ {
		out[i] = out[i-1] + (y[i-1]+y[i])*(x[i]-x[i-1])/2
	}
	return out
}

// Gradient returns dy/dx using second-order central differences on the
// (possibly non-uniform) interior and one-sided differences at both ends.
func Gradient(y, x []float64) []float64 {
	n := len(y)
	out := make([]float64, n)
	if n < 2 {
		return out
	}

	out[0] = (y[1] - y[0]) / (x[1] - x[0])
	out[n-1] = (y[n-1] - y[n-2]) / (x[n-1] - x[n-2])

	for i := 1; i < n-1; i++ {
		hs := x[i] - x[i-1]
		hd := x[i+1] - x[i]
		out[i] = (hs*hs*y[i+1] + (hd*hd-hs*hs)*y[i] - hd*hd*y[i-1]) / (hs * hd * (hd + hs))
	}
	return out
}
