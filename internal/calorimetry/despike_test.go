package calorimetry

import (
	"testing"
)

func TestRejectSpikes(t *testing.T) {
	tests := []struct {
		name     string
		input    []float64
		ratio    float64
		expected []float64
		replaced int
	}{
		{
			name:     "no spikes",
			input:    []float64{1, 2, 3, 2, 1},
			ratio:    5,
			expected: []float64{1, 2, 3, 2, 1},
			replaced: 0,
		},
		{
			name:     "single dropout replaced by predecessor",
			input:    []float64{10, 1, 10, 10},
			ratio:    5,
			expected: []float64{10, 10, 10, 10},
			replaced: 1,
		},
		{
			name:     "cascading dropouts follow the corrected value",
			input:    []float64{100, 10, 1, 1},
			ratio:    5,
			expected: []float64{100, 100, 100, 100},
			replaced: 3,
		},
		{
			name:     "zero successor is skipped",
			input:    []float64{3, 0, 3},
			ratio:    5,
			expected: []float64{3, 0, 3},
			replaced: 0,
		},
		{
			name:     "ratio at threshold is kept",
			input:    []float64{5, 1},
			ratio:    5,
			expected: []float64{5, 1},
			replaced: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := append([]float64(nil), tt.input...)
			replaced := RejectSpikes(values, tt.ratio)

			if replaced != tt.replaced {
				t.Errorf("expected %d replacements, got %d", tt.replaced, replaced)
			}
			for i := range values {
				if values[i] != tt.expected[i] {
					t.Errorf("point %d: expected %.2f, got %.2f", i, tt.expected[i], values[i])
				}
			}
		})
	}
}

func TestRejectSpikesIdempotent(t *testing.T) {
	series := []float64{4, 0.1, 7, 7, 0.5, -3, -0.2, 9, 1.5, 0.01, 2, 0, 8, 0.3}

	once := append([]float64(nil), series...)
	RejectSpikes(once, DefaultSpikeRatio)

	twice := append([]float64(nil), once...)
	if n := RejectSpikes(twice, DefaultSpikeRatio); n != 0 {
		t.Errorf("second pass replaced %d samples", n)
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("point %d changed on second pass: %.4f -> %.4f", i, once[i], twice[i])
		}
	}
}
