package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/evcharge/core/eventlog"
	"github.com/kilianp07/evcharge/core/factory"
	"github.com/kilianp07/evcharge/core/metrics"
	"github.com/kilianp07/evcharge/infra/logger"
	"github.com/kilianp07/evcharge/infra/mqtt"
)

type Config struct {
	Simulation SimulationConfig     `json:"simulation"`
	Scenario   string               `json:"scenario"`
	Policy     factory.ModuleConfig `json:"policy"`
	Planner    factory.ModuleConfig `json:"planner"`
	Metrics    metrics.Config       `json:"metrics"`
	EventLog   eventlog.Config      `json:"eventlog"`
	MQTT       mqtt.Config          `json:"mqtt"`
	Output     OutputConfig         `json:"output"`
	Log        logger.Config        `json:"log"`
}

// Load reads the configuration file at path and applies K_ prefixed
// environment overrides, e.g. K_SIMULATION__SEED=7.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if cfg.Scenario != "" && !filepath.IsAbs(cfg.Scenario) {
		cfg.Scenario = filepath.Join(filepath.Dir(path), cfg.Scenario)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills the optional sections.
func (c *Config) SetDefaults() {
	c.Simulation.SetDefaults()
	c.Output.SetDefaults()
	if c.Policy.Type == "" {
		c.Policy.Type = "random_target"
	}
	if c.Planner.Type == "" {
		c.Planner.Type = "naive"
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if c.Scenario == "" {
		return fmt.Errorf("scenario path is required")
	}
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	if err := c.EventLog.Validate(); err != nil {
		return err
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return nil
}
