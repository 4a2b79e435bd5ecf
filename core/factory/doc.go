// Package factory provides a small generic registry used to instantiate
// pluggable modules (scorers, metrics sinks) from configuration. A module is
// described by a type string and a map of raw settings; its factory decodes
// the settings into a typed struct and returns the implementation.
//
//	reg := factory.NewRegistry[scoring.Scorer]()
//	reg.Register("physics", func(conf map[string]any) (scoring.Scorer, error) {
//	    var c struct{ Efficiency float64 `json:"efficiency"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return scoring.Physics{Efficiency: c.Efficiency}, nil
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "physics", Conf: map[string]any{"efficiency": 0.9}})
package factory
