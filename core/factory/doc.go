// Package factory provides a small generic registry used to build pluggable
// modules (simulation engines, metrics sinks, run log stores) from
// configuration. A module is described by a type name and a map of raw
// settings; each factory decodes the settings into its own typed struct.
//
//	reg := factory.NewRegistry[simulator.Engine]()
//	reg.Register("synthetic", func(conf map[string]any) (simulator.Engine, error) {
//	    var c synthetic.Config
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return synthetic.New(c), nil
//	})
//	eng, err := reg.Create(factory.ModuleConfig{Type: "synthetic"})
package factory
