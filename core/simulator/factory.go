package simulator

import "github.com/kilianp07/lddl/core/factory"

var engineRegistry = factory.NewRegistry[Engine]()

// RegisterEngine adds an engine factory identified by name.
func RegisterEngine(name string, f factory.Factory[Engine]) error {
	return engineRegistry.Register(name, f)
}

// NewEngine creates an Engine from the provided module configuration.
func NewEngine(cfg factory.ModuleConfig) (Engine, error) {
	return engineRegistry.Create(cfg)
}

// EngineTypes lists the registered engine names.
func EngineTypes() []string { return engineRegistry.Names() }
