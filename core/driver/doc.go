// Package driver plays a breakpoint schedule against a simulation engine.
// It owns the simulation cursor, resolves the base load of the perturbing
// load once after the flat pre-run and fails fast on the first nonzero
// engine status.
package driver
