package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/aitools-scraper/internal/app"
	"github.com/angelmondragon/aitools-scraper/pkg/config"
	"github.com/angelmondragon/aitools-scraper/pkg/db"
	"github.com/angelmondragon/aitools-scraper/pkg/migrate"
)

var migrateDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the relational schema with goose",
	Long:  "Applies the SQL migrations compiled into the binary, or those in --dir. Only the postgres store uses them.",
}

// withMigrator opens the SQL database named by the config and hands a
// migrator writing to out to fn.
func withMigrator(ctx context.Context, out io.Writer, fn func(*migrate.Migrator) error) error {
	cfg, logg, err := app.Bootstrap("toolsctl")
	if err != nil {
		return err
	}
	if !cfg.Store.IsSQL() {
		return fmt.Errorf("migrations only apply to the sql store (%s=%s)", config.EnvStoreDriver, cfg.Store.Driver)
	}
	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return err
	}
	m, err := migrate.New(sqlDB, migrateDir, out)
	if err != nil {
		return err
	}
	return fn(m)
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd.Context(), cmd.OutOrStdout(), func(m *migrate.Migrator) error {
			return m.Up(cmd.Context())
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the latest migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd.Context(), cmd.OutOrStdout(), func(m *migrate.Migrator) error {
			return m.Down(cmd.Context())
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and when they were applied",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd.Context(), cmd.OutOrStdout(), func(m *migrate.Migrator) error {
			return m.Status(cmd.Context())
		})
	},
}

var migrateToCmd = &cobra.Command{
	Use:   "to <version>",
	Short: "Migrate up or down to a YYYYMMDDHHMMSS version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), cmd.OutOrStdout(), func(m *migrate.Migrator) error {
			return m.ToVersion(cmd.Context(), args[0])
		})
	},
}

var migrateCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Write an empty timestamped migration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := migrateDir
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "created migration:", path)
		return nil
	},
}

var migrateValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check migration file names and goose markers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		fsys, err := migrate.Source(migrateDir)
		if err != nil {
			return err
		}
		if err := migrate.ValidateFS(fsys); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migration validation passed")
		return nil
	},
}

func init() {
	migrateCmd.PersistentFlags().StringVar(&migrateDir, "dir", "", "migrations directory (default: embedded migrations)")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd, migrateToCmd, migrateCreateCmd, migrateValidateCmd)
}
