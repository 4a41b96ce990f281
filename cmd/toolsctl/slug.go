package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/aitools-scraper/internal/slug"
)

var slugCmd = &cobra.Command{
	Use:   "slug <name...>",
	Short: "Print the slug each tool name would get",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range args {
			s := slug.Make(name)
			if s == "" {
				s = slug.Fallback(1)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, s)
		}
		return nil
	},
}
