package planner

import "github.com/kilianp07/evcharge/core/factory"

var registry = factory.NewRegistry[Planner]()

type lpConf struct {
	Tolerance  float64 `json:"tolerance"`
	Throughput float64 `json:"throughput"`
}

func init() {
	_ = Register("naive", func(map[string]any) (Planner, error) { return Naive{}, nil })
	_ = Register("lp", func(conf map[string]any) (Planner, error) {
		p := NewLP()
		var c lpConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Tolerance > 0 {
			p.Tolerance = c.Tolerance
		}
		if c.Throughput > 0 {
			p.Throughput = c.Throughput
		}
		return p, nil
	})
}

// Register adds a planner factory identified by name.
func Register(name string, f factory.Factory[Planner]) error {
	return registry.Register(name, f)
}

// New creates the planner described by cfg. An empty type selects naive.
func New(cfg factory.ModuleConfig) (Planner, error) {
	if cfg.Type == "" {
		cfg.Type = "naive"
	}
	return registry.Create(cfg)
}
