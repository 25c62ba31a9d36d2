package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/arena/internal/battle"
	"github.com/zulandar/arena/internal/config"
)

func newBattleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "battle",
		Short: "Manage battles",
	}

	cmd.AddCommand(newBattleCreateCmd())
	cmd.AddCommand(newBattleStatusCmd())
	cmd.AddCommand(newBattleVoteCmd())
	return cmd
}

func newBattleCreateCmd() *cobra.Command {
	var (
		configPath  string
		userID      string
		instruction string
	)

	cmd := &cobra.Command{
		Use:   "create <agent-a-run-id> <agent-b-run-id>",
		Short: "Create a battle between two agent runs",
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
			b, err := battle.Create(gormDB, battle.CreateOpts{
				UserID:      userID,
				Instruction: instruction,
				AgentAID:    args[0],
				AgentBID:    args[1],
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created battle %s\n", b.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "arena.yaml", "path to Arena config file")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "creating user ID")
	cmd.Flags().StringVarP(&instruction, "instruction", "i", "", "task instruction both agents execute")
	return cmd
}

func newBattleStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status <battle-id> <status>",
		Short: "Update a battle's status",
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
			if err := battle.UpdateStatus(gormDB, args[0], args[1], nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Battle %s -> %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "arena.yaml", "path to Arena config file")
	return cmd
}

func newBattleVoteCmd() *cobra.Command {
	var (
		configPath string
		userID     string
		winnerID   string
	)

	cmd := &cobra.Command{
		Use:   "vote <battle-id> <winner|tie|both-bad>",
		Short: "Record the human vote for a battle and apply Elo changes",
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
			res, err := battle.SubmitVote(gormDB, battle.VoteOpts{
				BattleID: args[0],
				UserID:   userID,
				VoteType: args[1],
				WinnerID: winnerID,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, side := range []battle.SideResult{res.AgentA, res.AgentB} {
				fmt.Fprintf(out, "%s: %.0f -> %.0f (%+d)\n",
					side.AgentType, side.OldRating, side.NewRating, side.Change)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "arena.yaml", "path to Arena config file")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "voting user ID (must be the battle's creator)")
	cmd.Flags().StringVarP(&winnerID, "winner", "w", "", "winning agent run ID (required for a winner vote)")
	return cmd
}
