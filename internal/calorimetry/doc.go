// Package calorimetry turns raw isothermal heat-flow traces into conversion
// and reaction-rate curves, and pools those rates from several temperatures
// onto a shared conversion grid.
//
// Every function returns new slices; only RejectSpikes edits its argument in place.
package calorimetry
