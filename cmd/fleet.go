package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evcharge/config"
	"github.com/kilianp07/evcharge/scenario"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Fleet related commands",
}

var fleetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the vehicles of the configured scenario",
	RunE:  runFleetLs,
}

func init() {
	fleetCmd.AddCommand(fleetLsCmd)
	rootCmd.AddCommand(fleetCmd)
}

func runFleetLs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	sc, err := scenario.Load(cfg.Scenario)
	if err != nil {
		return err
	}
	f, err := sc.Fleet()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tARRIVAL\tDEPARTURE\tBATTERY_KWH\tSOC\tTARGET\tCLUSTER\tV2G")
	for _, v := range f.Vehicles() {
		cluster := v.ClusterTarget
		if cluster == "" {
			cluster = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%.2f\t%.2f\t%s\t%t\n",
			v.ID, v.Arrival.Format(time.RFC3339), v.Departure.Format(time.RFC3339),
			v.BatteryKWh, v.InitialSoC, v.Target(), cluster, v.CanDischarge())
	}
	return w.Flush()
}
