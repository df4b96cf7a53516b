package eventlog

import "fmt"

// Config selects the event log backend.
type Config struct {
	// Backend is one of memory, jsonl, rotating or sqlite. Empty disables
	// persistence.
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Backend {
	case "", "memory":
		return nil
	case "jsonl", "rotating", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("eventlog: path required for %s backend", c.Backend)
		}
		return nil
	}
	return fmt.Errorf("eventlog: unknown backend %q", c.Backend)
}

// New opens the configured store. It returns nil when persistence is
// disabled.
func New(c Config) (Store, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "jsonl":
		return NewJSONLStore(c.Path)
	case "rotating":
		size := c.MaxSizeMB
		if size <= 0 {
			size = 10
		}
		return NewRotatingJSONLStore(c.Path, size, c.MaxBackups, c.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(c.Path)
	}
	return nil, nil
}
