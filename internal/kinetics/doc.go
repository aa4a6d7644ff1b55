// Package kinetics fits and integrates the autocatalytic cure rate law
//
//	dα/dt = [A1·exp(−E1/RT) + A2·exp(−E2/RT)·α^m]·(1−α)^n
//
// Stage 1 (FitArrhenius) recovers A1 and E1 from the initial rates of the
// isothermal runs. Stage 2 (FitAutocatalytic) takes that result explicitly and
// fits A2, E2, m and n against the pooled rates of all temperatures.
// Simulate integrates a fitted law forward in time at one temperature.
package kinetics
