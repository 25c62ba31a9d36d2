package main

import (
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/arena/internal/announce"
	"github.com/zulandar/arena/internal/announce/discord"
	"github.com/zulandar/arena/internal/announce/slack"
	"github.com/zulandar/arena/internal/config"
	"github.com/zulandar/arena/internal/db"
	"github.com/zulandar/arena/internal/matchmaking"
	"github.com/zulandar/arena/internal/server"
	"github.com/zulandar/arena/internal/sweeper"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		noSweeper  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Arena API server",
		Long:  "Starts the HTTP API, the stale-battle sweeper and any configured result announcers. Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, noSweeper)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "arena.yaml", "path to Arena config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")
	cmd.Flags().BoolVar(&noSweeper, "no-sweeper", false, "disable the stale-battle sweeper")
	return cmd
}

// matchConfig maps file settings onto the matchmaking policy, keeping the
// package defaults for anything unset.
func matchConfig(cfg *config.Config) matchmaking.Config {
	mc := matchmaking.DefaultConfig()
	if cfg.Matchmaking.MaxEloDifference > 0 {
		mc.MaxEloDifference = cfg.Matchmaking.MaxEloDifference
	}
	if len(cfg.Matchmaking.EligibleAgents) > 0 {
		mc.EligibleAgents = cfg.Matchmaking.EligibleAgents
	}
	mc.RequiredAgent = cfg.Matchmaking.RequiredAgent
	if cfg.Matchmaking.PreferSameFramework != nil {
		mc.PreferSameFramework = *cfg.Matchmaking.PreferSameFramework
	}
	return mc
}

// buildAnnouncer assembles adapters for every platform with a token. An
// empty config yields a nil announcer, which disables announcements.
func buildAnnouncer(cfg *config.Config) (*announce.Announcer, error) {
	var adapters []announce.Adapter

	if cfg.Announce.Slack.BotToken != "" {
		a, err := slack.New(slack.Opts{
			BotToken:  cfg.Announce.Slack.BotToken,
			ChannelID: cfg.Announce.Slack.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	if cfg.Announce.Discord.BotToken != "" {
		a, err := discord.New(discord.Opts{
			BotToken:  cfg.Announce.Discord.BotToken,
			ChannelID: cfg.Announce.Discord.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	if len(adapters) == 0 {
		return nil, nil
	}
	return announce.New(adapters...), nil
}

func runServe(cmd *cobra.Command, configPath string, port int, noSweeper bool) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	announcer, err := buildAnnouncer(cfg)
	if err != nil {
		return fmt.Errorf("announcer: %w", err)
	}
	if announcer != nil {
		defer announcer.Close()
		fmt.Fprintln(out, "Result announcements enabled")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !noSweeper {
		schedule := cfg.Sweeper.Schedule
		maxAge := time.Duration(cfg.Sweeper.MaxAgeMinutes) * time.Minute
		go func() {
			if err := sweeper.Run(ctx, gormDB, schedule, maxAge); err != nil {
				log.Printf("sweeper: %v", err)
			}
		}()
	}

	if port <= 0 {
		port = cfg.Server.Port
	}

	return server.Start(ctx, server.StartOpts{
		DB:          gormDB,
		Port:        port,
		Out:         out,
		Matchmaking: matchConfig(cfg),
		QuotaMax:    cfg.Quota.MaxQueries,
		Announcer:   announcer,
	})
}
