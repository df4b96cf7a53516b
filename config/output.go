package config

import "fmt"

// OutputConfig selects where the audit table is written.
type OutputConfig struct {
	// AuditPath is the file receiving the audit table, "-" for stdout.
	AuditPath string `json:"audit_path"`
	// Format is csv or json.
	Format string `json:"format"`
}

// SetDefaults writes CSV to stdout.
func (c *OutputConfig) SetDefaults() {
	if c.AuditPath == "" {
		c.AuditPath = "-"
	}
	if c.Format == "" {
		c.Format = "csv"
	}
}

// Validate checks the format.
func (c OutputConfig) Validate() error {
	if c.Format != "csv" && c.Format != "json" {
		return fmt.Errorf("unknown format %s", c.Format)
	}
	return nil
}
