package main

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Inspect and run cron maintenance jobs",
}

var jobListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered jobs in run order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		deps, err := openDeps(ctx, true)
		if err != nil {
			return err
		}
		defer deps.Close(ctx)

		service, err := deps.CronService(ctx, prometheus.NewRegistry())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(service.Registry().Names(), "\n"))
		return nil
	},
}

var jobRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Run one job now, under the cron lock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		deps, err := openDeps(ctx, true)
		if err != nil {
			return err
		}
		defer deps.Close(ctx)

		service, err := deps.CronService(ctx, prometheus.NewRegistry())
		if err != nil {
			return err
		}
		if err := service.RunJob(ctx, args[0]); err != nil {
			return fmt.Errorf("job %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "job %s completed\n", args[0])
		return nil
	},
}

func init() {
	jobCmd.AddCommand(jobListCmd, jobRunCmd)
}
