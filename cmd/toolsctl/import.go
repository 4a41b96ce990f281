package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/aitools-scraper/internal/candidate"
	"github.com/angelmondragon/aitools-scraper/internal/pipeline"
)

var importDryRun bool

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Normalize and persist candidate records from a JSON file",
	Long:  "Reads a JSON array (or a single object) of candidate records, normalizes each one and persists it with the same owner, duplicate and slug rules as the scraper.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		records, err := candidate.DecodeList(data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", args[0], err)
		}

		ctx := cmd.Context()
		deps, err := openDeps(ctx, false)
		if err != nil {
			return err
		}
		defer deps.Close(ctx)

		norm, err := deps.Normalizer()
		if err != nil {
			return err
		}
		rl, err := deps.RunLog()
		if err != nil {
			return err
		}
		persister, err := deps.Persister(rl, importDryRun || deps.Config.Scraper.DryRun)
		if err != nil {
			return err
		}

		var summary pipeline.Summary
		for i, rec := range records {
			src := rec.WebsiteURL
			if src == "" {
				src = fmt.Sprintf("%s#%d", args[0], i)
			}
			tool, err := norm.Normalize(rec)
			if err != nil {
				summary.Add(pipeline.Result{
					URL:     src,
					State:   pipeline.StateFailed,
					Outcome: pipeline.OutcomeFailed,
					Reason:  pipeline.ReasonNormalization,
					Err:     err,
				})
				continue
			}
			summary.Add(persister.Persist(ctx, tool))
		}

		fmt.Fprintln(cmd.OutOrStdout(), summary.String())
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "resolve owners and slugs without writing")
}
