package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chrissnell/curekinetics/internal/types"
)

var defaultColumns = Columns{Time: "Time", HeatFlow: "Unsubtracted", Baseline: "Baseline"}

func TestParseDecimalCommas(t *testing.T) {
	input := `Time	Unsubtracted	Baseline	Temperature
0,0	0,125	0,010	120,1
0,5	0,250	0,011	120,0

1,0	0,500	0,012	119,9
`
	run, err := Parse(strings.NewReader(input), Options{
		Name:         "iso-120",
		TemperatureC: 120,
		SampleMass:   10,
		TimeScale:    60,
		Columns:      defaultColumns,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantTime := []float64{0, 30, 60}
	wantHeat := []float64{0.125, 0.25, 0.5}
	wantBase := []float64{0.01, 0.011, 0.012}
	if run.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", run.Len())
	}
	for i := range wantTime {
		if run.Time[i] != wantTime[i] {
			t.Errorf("time %d: expected %.3f, got %.3f", i, wantTime[i], run.Time[i])
		}
		if run.UnsubtractedHeatFlow[i] != wantHeat[i] {
			t.Errorf("heat flow %d: expected %.3f, got %.3f", i, wantHeat[i], run.UnsubtractedHeatFlow[i])
		}
		if run.BaselineHeatFlow[i] != wantBase[i] {
			t.Errorf("baseline %d: expected %.3f, got %.3f", i, wantBase[i], run.BaselineHeatFlow[i])
		}
	}
	if run.Name != "iso-120" || run.SampleMass != 10 || run.TemperatureC != 120 {
		t.Errorf("run metadata not carried: %+v", run)
	}
}

func TestParseWithoutBaselineColumn(t *testing.T) {
	input := "Time Unsubtracted\n0 1\n1 2\n"
	run, err := Parse(strings.NewReader(input), Options{Name: "r", Columns: defaultColumns})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.BaselineHeatFlow != nil {
		t.Errorf("expected no baseline, got %v", run.BaselineHeatFlow)
	}
	if run.Time[1] != 1 {
		t.Errorf("expected unscaled time 1, got %.3f", run.Time[1])
	}
}

func TestReadTableClipsToHeader(t *testing.T) {
	input := "a b\n1 2 3\n4\n"
	table, err := ReadTable(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := table.Columns["a"]; len(got) != 2 || got[0] != 1 || got[1] != 4 {
		t.Errorf("unexpected column a: %v", got)
	}
	if got := table.Columns["b"]; len(got) != 1 || got[0] != 2 {
		t.Errorf("unexpected column b: %v", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty input", "\n\n"},
		{"missing heat flow column", "Time Baseline\n0 1\n"},
		{"missing time column", "Unsubtracted\n1\n"},
		{"bad number", "Time Unsubtracted\n0 abc\n"},
		{"ragged selected columns", "Time Unsubtracted\n0 1\n1\n"},
		{"duplicate header", "Time Time Unsubtracted\n0 0 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), Options{Name: "r", Columns: defaultColumns})
			if !errors.Is(err, types.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.txt")
	if err := os.WriteFile(path, []byte("Time Unsubtracted Baseline\n0 1 0\n1 2 0\n2 3 0\n"), 0o600); err != nil {
		t.Fatalf("failed to write table: %v", err)
	}

	run, err := Load(path, Options{Name: "file", Columns: defaultColumns})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Len() != 3 {
		t.Errorf("expected 3 samples, got %d", run.Len())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.txt"), Options{Name: "missing", Columns: defaultColumns}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
