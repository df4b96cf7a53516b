package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFleetLs(t *testing.T) {
	dir := t.TempDir()
	sc := `name: ls
clusters:
  - cluster_id: A
    installed_capacity_kw: 11
    count: 1
    p_max_ch_kw: 11
vehicles:
  - vehicle_id: ev1
    battery_capacity_kwh: 40
    p_max_ch_kw: 11
    p_max_ds_kw: 7
    t_arr_real: 2025-03-01T08:00:00Z
    t_dep_est: 2025-03-01T10:00:00Z
    initial_soc: 0.2
    cluster_target: A
`
	if err := os.WriteFile(filepath.Join(dir, "fleet.yaml"), []byte(sc), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	cfg := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfg, []byte("scenario: fleet.yaml\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"fleet", "ls", "-c", cfg})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), out.String())
	}
	fields := strings.Fields(lines[1])
	if fields[0] != "ev1" || fields[6] != "A" || fields[7] != "true" {
		t.Errorf("unexpected row %q", lines[1])
	}
}

func TestRun_MissingConfig(t *testing.T) {
	rootCmd.SetArgs([]string{"run", "-c", filepath.Join(t.TempDir(), "missing.yaml")})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error")
	}
}
