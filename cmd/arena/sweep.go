package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/arena/internal/config"
	"github.com/zulandar/arena/internal/sweeper"
)

func newSweepCmd() *cobra.Command {
	var (
		configPath string
		maxAgeMin  int
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Fail stale battles once and exit",
		Long:  "Marks battles stuck in pending or running beyond the age limit as failed, along with their unfinished agent runs. The serve command runs this on a schedule; sweep is the one-shot form.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			gormDB, err := openDB(cfg)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}

			maxAge := time.Duration(cfg.Sweeper.MaxAgeMinutes) * time.Minute
			if maxAgeMin > 0 {
				maxAge = time.Duration(maxAgeMin) * time.Minute
			}

			n, err := sweeper.Sweep(gormDB, time.Now(), maxAge)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Swept %d stale battles\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "arena.yaml", "path to Arena config file")
	cmd.Flags().IntVar(&maxAgeMin, "max-age", 0, "age limit in minutes (overrides config)")
	return cmd
}
