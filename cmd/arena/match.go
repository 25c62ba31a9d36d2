package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/arena/internal/config"
	"github.com/zulandar/arena/internal/matchmaking"
	"github.com/zulandar/arena/internal/models"
)

func newMatchCmd() *cobra.Command {
	var (
		configPath    string
		requiredAgent string
		maxElo        float64
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Propose one agent matchup from the current ratings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			gormDB, err := openDB(cfg)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}

			mc := matchConfig(cfg)
			if requiredAgent != "" {
				mc.RequiredAgent = requiredAgent
			}
			if maxElo > 0 {
				mc.MaxEloDifference = maxElo
			}

			match, err := matchmaking.Find(gormDB, mc)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "A: %s\n", describeAgent(match.AgentA))
			fmt.Fprintf(out, "B: %s\n", describeAgent(match.AgentB))
			fmt.Fprintf(out, "Elo gap: %.0f, same framework: %v\n", match.EloDifference, match.SameFramework)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "arena.yaml", "path to Arena config file")
	cmd.Flags().StringVar(&requiredAgent, "required-agent", "", "force one side to this agent type")
	cmd.Flags().Float64Var(&maxElo, "max-elo", 0, "widest allowed rating gap (overrides config)")
	return cmd
}

func describeAgent(a matchmaking.Agent) string {
	if a.Model != "" {
		return fmt.Sprintf("%s (%s, Elo %.0f)", a.AgentType, a.Model, a.EloRating)
	}
	return fmt.Sprintf("%s (Elo %.0f)", a.AgentType, a.EloRating)
}

func newRatingsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "ratings",
		Short: "List all agent ratings, highest Elo first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			gormDB, err := openDB(cfg)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}

			var ratings []models.Rating
			if err := gormDB.Order("elo_rating DESC").Find(&ratings).Error; err != nil {
				return fmt.Errorf("list ratings: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "AGENT\tMODEL\tELO\tBATTLES\tW\tL\tSUCCESS")
			for _, r := range ratings {
				fmt.Fprintf(w, "%s\t%s\t%.0f\t%d\t%d\t%d\t%.0f%%\n",
					r.AgentType, r.Model, r.EloRating, r.TotalBattles, r.Wins, r.Losses, r.SuccessRate*100)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "arena.yaml", "path to Arena config file")
	return cmd
}
