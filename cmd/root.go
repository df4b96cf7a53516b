package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evcharge/app"
	"github.com/kilianp07/evcharge/config"
	"github.com/kilianp07/evcharge/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "evcharge",
	Short:        "EV charging facility simulator",
	SilenceUsage: true,
	RunE:         run,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured simulation and write the audit table",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.AddCommand(runCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	r, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			logger.New("main").Errorf("runner close: %v", err)
		}
	}()
	return r.Run(ctx)
}
