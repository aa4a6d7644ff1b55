package calorimetry

import (
	"errors"
	"math"
	"testing"

	"github.com/chrissnell/curekinetics/internal/types"
)

// decayCurve is a first-order exotherm q(t) = H·k·exp(-k t) sampled every dt.
func decayCurve(n int, dt, enthalpy, k float64) types.ConditionedCurve {
	c := types.ConditionedCurve{
		Name:         "decay",
		TemperatureK: 400,
		Time:         make([]float64, n),
		HeatFlow:     make([]float64, n),
	}
	for i := 0; i < n; i++ {
		t := float64(i) * dt
		c.Time[i] = t
		c.HeatFlow[i] = enthalpy * k * math.Exp(-k*t)
	}
	return c
}

func TestBuildConversionFirstOrder(t *testing.T) {
	const (
		enthalpy = 300.0
		k        = 0.01
	)
	c := decayCurve(5000, 0.5, enthalpy, k)

	conv, rate, err := BuildConversion(c, DefaultTailSamples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if conv.Alpha[0] != 0 {
		t.Errorf("expected alpha(0) = 0, got %.6g", conv.Alpha[0])
	}
	if math.Abs(conv.Enthalpy-enthalpy)/enthalpy > 1e-3 {
		t.Errorf("expected enthalpy near %.1f, got %.4f", enthalpy, conv.Enthalpy)
	}
	if conv.Decreases != 0 {
		t.Errorf("expected no decreases, got %d", conv.Decreases)
	}
	if math.Abs(conv.TotalHeat-conv.Enthalpy)/enthalpy > 1e-3 {
		t.Errorf("expected total heat %.4f near enthalpy %.4f", conv.TotalHeat, conv.Enthalpy)
	}

	for _, i := range []int{100, 400, 1000} {
		tt := c.Time[i]
		wantAlpha := 1 - math.Exp(-k*tt)
		if math.Abs(conv.Alpha[i]-wantAlpha) > 2e-3 {
			t.Errorf("t=%.1f: expected alpha %.5f, got %.5f", tt, wantAlpha, conv.Alpha[i])
		}
		wantRate := k * math.Exp(-k*tt)
		if math.Abs(rate.Rate[i]-wantRate)/wantRate > 2e-3 {
			t.Errorf("t=%.1f: expected rate %.6g, got %.6g", tt, wantRate, rate.Rate[i])
		}
	}

	if rate.TemperatureK != c.TemperatureK || len(rate.Time) != len(c.Time) {
		t.Errorf("rate curve lost its metadata")
	}
}

func TestBuildConversionMonotoneForNonNegativeHeat(t *testing.T) {
	c := decayCurve(200, 1, 50, 0.05)
	c.HeatFlow[40] = 0
	c.HeatFlow[41] = 0

	conv, _, err := BuildConversion(c, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(conv.Alpha); i++ {
		if conv.Alpha[i] < conv.Alpha[i-1] {
			t.Fatalf("alpha decreased at %d", i)
		}
	}
}

func TestBuildConversionCountsDecreases(t *testing.T) {
	c := decayCurve(200, 1, 50, 0.05)
	c.HeatFlow[30] = -2
	c.HeatFlow[31] = -2

	conv, _, err := BuildConversion(c, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conv.Decreases == 0 {
		t.Errorf("expected negative heat flow to be counted as decreases")
	}
	if conv.MaxDecrease <= 0 {
		t.Errorf("expected a positive maximum decrease, got %.6g", conv.MaxDecrease)
	}
}

func TestBuildConversionErrors(t *testing.T) {
	tests := []struct {
		name  string
		curve types.ConditionedCurve
		want  error
	}{
		{
			name:  "two samples",
			curve: types.ConditionedCurve{Time: []float64{0, 1}, HeatFlow: []float64{1, 1}},
			want:  types.ErrDegenerateCurve,
		},
		{
			name:  "no heat released",
			curve: types.ConditionedCurve{Time: []float64{0, 1, 2, 3}, HeatFlow: []float64{0, 0, 0, 0}},
			want:  types.ErrDegenerateCurve,
		},
		{
			name:  "net endotherm",
			curve: types.ConditionedCurve{Time: []float64{0, 1, 2, 3}, HeatFlow: []float64{-1, -1, -1, -1}},
			want:  types.ErrDegenerateCurve,
		},
		{
			name:  "length mismatch",
			curve: types.ConditionedCurve{Time: []float64{0, 1, 2, 3}, HeatFlow: []float64{1, 1}},
			want:  types.ErrConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := BuildConversion(tt.curve, DefaultTailSamples)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCumulativeTrapezoid(t *testing.T) {
	x := []float64{0, 1, 3, 4}
	y := []float64{0, 2, 6, 8} // y = 2x
	got := CumulativeTrapezoid(y, x)
	want := []float64{0, 1, 9, 16}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("index %d: expected %.4f, got %.4f", i, want[i], got[i])
		}
	}
}

func TestGradientQuadraticNonUniform(t *testing.T) {
	x := []float64{0, 0.5, 1.7, 2.0, 3.1, 4.5}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 3*v*v - 2*v + 1
	}

	got := Gradient(y, x)
	for i := 1; i < len(x)-1; i++ {
		want := 6*x[i] - 2
		if math.Abs(got[i]-want) > 1e-9 {
			t.Errorf("x=%.2f: expected %.6f, got %.6f", x[i], want, got[i])
		}
	}

	// One-sided ends are the secant slopes.
	if want := (y[1] - y[0]) / (x[1] - x[0]); math.Abs(got[0]-want) > 1e-12 {
		t.Errorf("first point: expected %.6f, got %.6f", want, got[0])
	}
	last := len(x) - 1
	if want := (y[last] - y[last-1]) / (x[last] - x[last-1]); math.Abs(got[last]-want) > 1e-12 {
		t.Errorf("last point: expected %.6f, got %.6f", want, got[last])
	}
}
