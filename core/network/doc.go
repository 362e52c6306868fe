// Package network holds the static description of the studied grid: the bus
// table used to locate oscillating elements, the network snapshot exposed by
// engines and the selection of elements worth monitoring around a
// perturbing load.
package network
