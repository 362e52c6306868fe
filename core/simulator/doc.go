// Package simulator defines the contract between the LDDL driver and a
// time-domain dynamic simulation engine. Engines report failures through
// integer status codes where zero means success; callers translate nonzero
// codes into typed errors.
package simulator
