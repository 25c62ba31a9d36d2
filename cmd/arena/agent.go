package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/arena/internal/battle"
	"github.com/zulandar/arena/internal/config"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage agent runs",
	}

	cmd.AddCommand(newAgentCreateCmd())
	cmd.AddCommand(newAgentStatusCmd())
	cmd.AddCommand(newAgentResultCmd())
	return cmd
}

func newAgentCreateCmd() *cobra.Command {
	var (
		configPath string
		model      string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Register a new agent run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			gormDB, err := openDB(cfg)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			run, err := battle.CreateAgentRun(gormDB, args[0], model)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created agent run %s (%s)\n", run.ID, run.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "arena.yaml", "path to Arena config file")
	cmd.Flags().StringVarP(&model, "model", "m", "", "model the agent runs on")
	return cmd
}

func newAgentStatusCmd() *cobra.Command {
	var (
		configPath string
		errMsg     string
	)

	cmd := &cobra.Command{
		Use:   "status <run-id> <status>",
		Short: "Update an agent run's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			gormDB, err := openDB(cfg)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			if err := battle.UpdateAgentRunStatus(gormDB, args[0], args[1], errMsg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Agent run %s -> %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "arena.yaml", "path to Arena config file")
	cmd.Flags().StringVar(&errMsg, "error", "", "error message for a failed run")
	return cmd
}

func newAgentResultCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "result <run-id> <agent-type>",
		Short: "Record the agent type a run actually resolved to",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			gormDB, err := openDB(cfg)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			if err := battle.SetAgentRunResult(gormDB, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Agent run %s resolved as %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "arena.yaml", "path to Arena config file")
	return cmd
}
