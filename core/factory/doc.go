// Package factory provides a small generic registry used to instantiate
// pluggable modules (allocation policies, planners, metrics sinks) from
// configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[planner.Planner]()
//	reg.Register("lp", func(conf map[string]any) (planner.Planner, error) {
//	    var c struct{ Tolerance float64 `json:"tolerance"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return &planner.LP{Tolerance: c.Tolerance}, nil
//	})
//	p, err := reg.Create(factory.ModuleConfig{Type: "lp", Conf: map[string]any{"tolerance": 1e-7}})
package factory
