package calorimetry

// DefaultSpikeRatio is the sample-to-successor ratio above which the successor
// is treated as a numerical spike.
const DefaultSpikeRatio = 5.0

// RejectSpikes scans values left to right and, whenever values[i]/values[i+1]
// exceeds ratio, overwrites values[i+1] with values[i]. Only the immediate
// neighbour is corrected. Zero successors are skipped. It edits values in
// place and returns the number of replaced samples.
//
// A second pass over the result changes nothing.
func RejectSpikes(values []float64, ratio float64) int {
	replaced := 0
	for i := 0; i+1 < len(values); i++ {
		next := values[i+1]
		if next == 0 {
			continue
		}
		if values[i]/next > ratio {
			values[i+1] = values[i]
			replaced++
		}
	}
	return replaced
}
