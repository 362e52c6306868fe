package scheduler

// Package scheduler turns a perturbation scenario into the ordered list of
// simulation-time breakpoints applied to the perturbing load. Scenarios can
// be loaded from JSON or YAML files.
