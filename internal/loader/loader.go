// Package loader reads isothermal calorimetry tables into RawRuns.
//
// A table is a header line followed by rows of numbers, all separated by
// whitespace. Decimal commas are accepted. A row shorter than the header fills
// only its leading columns; cells beyond the header are ignored.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chrissnell/curekinetics/internal/types"
)

// Columns names the table headers holding each series
type Columns struct {
	Time     string
	HeatFlow string

	// Baseline may be absent from the table, in which case the run has no
	// baseline and conditioning subtracts zero.
	Baseline string
}

// Options describes the run a table belongs to
type Options struct {
	Name         string
	TemperatureC float64
	SampleMass   float64

	// TimeScale multiplies every time value, e.g. 60 for tables in minutes.
	TimeScale float64

	Columns Columns
}

// Table is a parsed whitespace-separated table
type Table struct {
	Header  []string
	Columns map[string][]float64
}

// ReadTable parses a header line and numeric rows from r
func ReadTable(r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var table *Table
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if table == nil {
			table = &Table{
				Header:  fields,
				Columns: make(map[string][]float64, len(fields)),
			}
			for _, h := range fields {
				if _, dup := table.Columns[h]; dup {
					return nil, fmt.Errorf("%w: duplicate column %q", types.ErrConfiguration, h)
				}
				table.Columns[h] = nil
			}
			continue
		}

		for i, cell := range fields {
			if i >= len(table.Header) {
				break
			}
			v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", "."), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %q: %v", types.ErrConfiguration, line, table.Header[i], err)
			}
			h := table.Header[i]
			table.Columns[h] = append(table.Columns[h], v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if table == nil {
		return nil, fmt.Errorf("%w: table has no header", types.ErrConfiguration)
	}
	return table, nil
}

// Parse reads a table from r and assembles a RawRun from the mapped columns
func Parse(r io.Reader, opts Options) (types.RawRun, error) {
	table, err := ReadTable(r)
	if err != nil {
		return types.RawRun{}, fmt.Errorf("run %s: %w", opts.Name, err)
	}
	return table.Run(opts)
}

// Load opens path and parses it as a run table
func Load(path string, opts Options) (types.RawRun, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.RawRun{}, fmt.Errorf("run %s: %w", opts.Name, err)
	}
	defer f.Close()

	return Parse(f, opts)
}

// Run assembles a RawRun from the table's columns
func (t *Table) Run(opts Options) (types.RawRun, error) {
	scale := opts.TimeScale
	if scale == 0 {
		scale = 1
	}
	if scale < 0 {
		return types.RawRun{}, fmt.Errorf("%w: run %s has a negative time scale", types.ErrConfiguration, opts.Name)
	}

	times, ok := t.Columns[opts.Columns.Time]
	if !ok {
		return types.RawRun{}, fmt.Errorf("%w: run %s has no time column %q", types.ErrConfiguration, opts.Name, opts.Columns.Time)
	}
	heat, ok := t.Columns[opts.Columns.HeatFlow]
	if !ok {
		return types.RawRun{}, fmt.Errorf("%w: run %s has no heat-flow column %q", types.ErrConfiguration, opts.Name, opts.Columns.HeatFlow)
	}
	if len(times) != len(heat) {
		return types.RawRun{}, fmt.Errorf("%w: run %s has %d times but %d heat-flow values",
			types.ErrConfiguration, opts.Name, len(times), len(heat))
	}

	run := types.RawRun{
		Name:                 opts.Name,
		Time:                 make([]float64, len(times)),
		UnsubtractedHeatFlow: append([]float64(nil), heat...),
		SampleMass:           opts.SampleMass,
		TemperatureC:         opts.TemperatureC,
	}
	for i, v := range times {
		run.Time[i] = v * scale
	}

	if baseline, ok := t.Columns[opts.Columns.Baseline]; ok && opts.Columns.Baseline != "" {
		if len(baseline) != len(times) {
			return types.RawRun{}, fmt.Errorf("%w: run %s has %d times but %d baseline values",
				types.ErrConfiguration, opts.Name, len(times), len(baseline))
		}
		run.BaselineHeatFlow = append([]float64(nil), baseline...)
	}

	return run, nil
}
