package kinetics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/curekinetics/internal/types"
)

// ArrheniusPoint compares one measured initial rate with the fitted k1(T)
type ArrheniusPoint struct {
	TemperatureK  float64 `json:"temperature_k"`
	Measured      float64 `json:"measured"`
	Fitted        float64 `json:"fitted"`
	RelativeError float64 `json:"relative_error"`
}

// ArrheniusFit is the result of the Stage-1 log-linear regression
type ArrheniusFit struct {
	A1        float64          `json:"a1"`
	E1        float64          `json:"e1"`
	Slope     float64          `json:"slope"`
	Intercept float64          `json:"intercept"`
	RSquared  float64          `json:"r_squared"`
	Points    []ArrheniusPoint `json:"points"`
}

// K1 evaluates the fitted initial-rate constant at T (Kelvin)
func (f ArrheniusFit) K1(T float64) float64 {
	return f.A1 * math.Exp(-f.E1/(types.GasConstant*T))
}

// InitialRates returns the temperature and first rate sample of every curve.
func InitialRates(curves []types.RateCurve) (temps, rates []float64) {
	temps = make([]float64, 0, len(curves))
	rates = make([]float64, 0, len(curves))
	for _, c := range curves {
		if len(c.Rate) == 0 {
			continue
		}
		temps = append(temps, c.TemperatureK)
		rates = append(rates, c.Rate[0])
	}
	return temps, rates
}

// FitArrhenius fits ln(rate) = ln(A1) − E1/(R·T) by ordinary least squares
// of ln(rate) against 1/(R·T). temps are absolute temperatures in Kelvin.
func FitArrhenius(temps, rates []float64) (ArrheniusFit, error) {
	if len(temps) != len(rates) {
		return ArrheniusFit{}, fmt.Errorf("%w: %d temperatures but %d rates",
			types.ErrConfiguration, len(temps), len(rates))
	}
	if len(temps) < 2 {
		return ArrheniusFit{}, fmt.Errorf("%w: Arrhenius fit needs at least 2 temperatures, got %d",
			types.ErrInsufficientData, len(temps))
	}

	x := make([]float64, len(temps))
	y := make([]float64, len(rates))
	for i := range temps {
		if !(temps[i] > 0) || math.IsInf(temps[i], 0) {
			return ArrheniusFit{}, fmt.Errorf("%w: temperature %.4g K is not a positive absolute temperature",
				types.ErrDegenerateRegression, temps[i])
		}
		if !(rates[i] > 0) || math.IsInf(rates[i], 0) {
			return ArrheniusFit{}, fmt.Errorf("%w: initial rate %.4g at %.2f K has no logarithm",
				types.ErrDegenerateRegression, rates[i], temps[i])
		}
		x[i] = 1 / (types.GasConstant * temps[i])
		y[i] = math.Log(rates[i])
	}

	distinct := false
	for _, v := range x[1:] {
		if v != x[0] {
			distinct = true
			break
		}
	}
	if !distinct {
		return ArrheniusFit{}, fmt.Errorf("%w: all runs share the temperature %.2f K",
			types.ErrDegenerateRegression, temps[0])
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)

	fit := ArrheniusFit{
		A1:        math.Exp(intercept),
		E1:        -slope,
		Slope:     slope,
		Intercept: intercept,
		RSquared:  stat.RSquared(x, y, nil, intercept, slope),
		Points:    make([]ArrheniusPoint, len(temps)),
	}
	// ln(rate) is constant across temperatures: the line is exact.
	if math.IsNaN(fit.RSquared) {
		fit.RSquared = 1
	}

	for i, T := range temps {
		k1 := fit.K1(T)
		fit.Points[i] = ArrheniusPoint{
			TemperatureK:  T,
			Measured:      rates[i],
			Fitted:        k1,
			RelativeError: math.Abs(k1-rates[i]) / rates[i],
		}
	}

	return fit, nil
}
