package allocation

import "github.com/kilianp07/evcharge/core/factory"

var registry = factory.NewRegistry[Policy]()

func init() {
	_ = Register("random_target", func(map[string]any) (Policy, error) { return RandomTarget{}, nil })
	_ = Register("min_imbalance", func(map[string]any) (Policy, error) { return MinImbalance{}, nil })
	_ = Register("min_violation", func(map[string]any) (Policy, error) { return MinViolation{}, nil })
}

// Register adds a policy factory identified by name.
func Register(name string, f factory.Factory[Policy]) error {
	return registry.Register(name, f)
}

// New creates the policy described by cfg.
func New(cfg factory.ModuleConfig) (Policy, error) {
	return registry.Create(cfg)
}
