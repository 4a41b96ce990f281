package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/aitools-scraper/internal/app"
)

var rootCmd = &cobra.Command{
	Use:           "toolsctl",
	Short:         "Operate the AI tools catalog",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(importCmd, scrapeCmd, jobCmd, slugCmd, migrateCmd)
}

// openDeps bootstraps config, logger and clients for commands that touch the
// store. The returned deps must be closed by the caller.
func openDeps(ctx context.Context, requireRedis bool) (*app.Deps, error) {
	cfg, logg, err := app.Bootstrap("toolsctl")
	if err != nil {
		return nil, err
	}
	return app.Open(ctx, cfg, logg, requireRedis)
}
