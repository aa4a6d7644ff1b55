package types

import "math"

// GasConstant is R in J/(mol·K).
const GasConstant = 8.314

// KineticParameters describes the autocatalytic cure rate law
//
//	dα/dt = [A1·exp(−E1/RT) + A2·exp(−E2/RT)·α^m]·(1−α)^n
type KineticParameters struct {
	A1 float64 `json:"a1"` // 1/s
	E1 float64 `json:"e1"` // J/mol
	A2 float64 `json:"a2"` // 1/s
	E2 float64 `json:"e2"` // J/mol
	M  float64 `json:"m"`
	N  float64 `json:"n"`
}

// K1 returns the initial-rate Arrhenius constant at temperature T (Kelvin)
func (p KineticParameters) K1(T float64) float64 {
	return p.A1 * math.Exp(-p.E1/(GasConstant*T))
}

// K2 returns the autocatalytic Arrhenius constant at temperature T (Kelvin)
func (p KineticParameters) K2(T float64) float64 {
	return p.A2 * math.Exp(-p.E2/(GasConstant*T))
}

// Rate evaluates dα/dt at conversion alpha and temperature T (Kelvin).
// alpha is expected in [0,1]; the rate is zero at full conversion.
func (p KineticParameters) Rate(alpha, T float64) float64 {
	if alpha >= 1 {
		return 0
	}
	return (p.K1(T) + p.K2(T)*math.Pow(alpha, p.M)) * math.Pow(1-alpha, p.N)
}
