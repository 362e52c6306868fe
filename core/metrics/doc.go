package metrics

// Package metrics defines the interfaces used to observe LDDL runs. Sinks
// such as PromSink and InfluxSink record breakpoint steps, run outcomes and
// oscillation findings, and can be combined with NewMultiSink. The factory
// helpers return a MultiSink automatically when several sinks are
// configured.
