package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/aitools-scraper/internal/pipeline"
	"github.com/angelmondragon/aitools-scraper/pkg/metrics"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape [url...]",
	Short: "Run the scraping pipeline over the directory, or over the given tool URLs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		deps, err := openDeps(ctx, false)
		if err != nil {
			return err
		}
		defer deps.Close(ctx)

		rl, err := deps.RunLog()
		if err != nil {
			return err
		}
		orchestrator, err := deps.Pipeline(ctx, rl, metrics.NewPipelineMetrics(prometheus.NewRegistry()))
		if err != nil {
			return err
		}

		var summary pipeline.Summary
		if len(args) > 0 {
			summary = orchestrator.RunURLs(ctx, args)
		} else if summary, err = orchestrator.Run(ctx); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), summary.String())
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), summary.String())
		return nil
	},
}
