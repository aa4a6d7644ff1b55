package types

import "errors"

// Error kinds surfaced by the estimation pipeline. Components wrap these with
// context, so callers should test with errors.Is.
var (
	// ErrConfiguration reports invalid mass, bounds, grid or solver settings
	// detected before any computation begins.
	ErrConfiguration = errors.New("invalid configuration")

	ErrNoExothermDetected = errors.New("no exotherm detected")
	ErrInvalidStartTime   = errors.New("start time exceeds recorded times")
	ErrNonUniformSampling = errors.New("sampling interval is not uniform")

	// ErrDegenerateCurve reports a curve too short (or with no net heat) to
	// integrate or differentiate.
	ErrDegenerateCurve = errors.New("degenerate curve")

	// ErrNonMonotonicConversion reports a conversion signal that decreases by
	// more than the pooling tolerance.
	ErrNonMonotonicConversion = errors.New("conversion is not monotonic")

	ErrInsufficientData     = errors.New("insufficient data")
	ErrDegenerateRegression = errors.New("degenerate regression")
	ErrFitDidNotConverge    = errors.New("fit did not converge")
	ErrSimulationDivergence = errors.New("simulation diverged")
)
