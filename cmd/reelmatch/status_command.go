package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelmatch/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check directories, data files, and TMDB access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			if jsonOutput {
				return writeJSON(cmd, results)
			}
			rows := make([][]string, len(results))
			for i, r := range results {
				state := "ok"
				if !r.Passed {
					state = "FAIL"
				}
				rows[i] = []string{r.Name, state, r.Detail}
			}
			writeRows(cmd, []string{"Check", "Status", "Detail"}, rows, nil)
			if failed := preflight.Failed(results); len(failed) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d of %d checks failed\n", len(failed), len(results))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
