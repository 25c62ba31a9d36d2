package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/arena/internal/config"
	"github.com/zulandar/arena/internal/db"
	"gorm.io/gorm"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBMigrateCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

// openDB connects to the configured backend. The sqlite driver needs no
// server and is created on first open.
func openDB(cfg *config.Config) (*gorm.DB, error) {
	d := cfg.Database
	if d.Driver == "sqlite" {
		return db.ConnectSQLite(d.Path)
	}
	return db.Connect(d.User, d.Password, d.Host, d.Port, d.Database)
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Arena database",
		Long:  "Creates the database (MySQL only) and migrates all tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "arena.yaml", "path to Arena config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	d := cfg.Database
	if d.Driver == "mysql" {
		adminDB, err := db.ConnectAdmin(d.User, d.Password, d.Host, d.Port)
		if err != nil {
			return fmt.Errorf("connect to MySQL at %s:%d: %w", d.Host, d.Port, err)
		}
		if err := db.CreateDatabase(adminDB, d.Database); err != nil {
			return err
		}
		fmt.Fprintf(out, "Database %s ready\n", d.Database)
	}

	gormDB, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	fmt.Fprintln(out, "\nArena database initialized successfully.")
	return nil
}

func newDBMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations to an existing database",
		RunE: func(cmd *cobra.Command, args []string) error {
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
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d tables\n", len(db.AllModels()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "arena.yaml", "path to Arena config file")
	return cmd
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-initialize the Arena database",
		Long:  "Drops the configured MySQL database after confirmation, then re-creates and migrates it. Not supported for sqlite; delete the file instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "arena.yaml", "path to Arena config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, yes bool) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	d := cfg.Database
	if d.Driver != "mysql" {
		return fmt.Errorf("db reset only supports the mysql driver (got %q)", d.Driver)
	}

	if !yes {
		fmt.Fprintf(out, "This will DROP database %q on %s:%d. Type the database name to confirm: ", d.Database, d.Host, d.Port)
		reader := bufio.NewReader(cmd.InOrStdin())
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read confirmation: %w", err)
		}
		if strings.TrimSpace(line) != d.Database {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	adminDB, err := db.ConnectAdmin(d.User, d.Password, d.Host, d.Port)
	if err != nil {
		return fmt.Errorf("connect to MySQL at %s:%d: %w", d.Host, d.Port, err)
	}
	if err := db.DropDatabase(adminDB, d.Database); err != nil {
		return err
	}
	fmt.Fprintf(out, "Dropped database %s\n", d.Database)

	return runDBInit(cmd, configPath)
}
