package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelmatch/internal/catalog"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find catalog titles containing a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cat, err := catalog.Load(cfg.Catalog.Path)
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			matches := cat.Search(query, limit)
			if jsonOutput {
				if matches == nil {
					matches = []catalog.Match{}
				}
				return writeJSON(cmd, matches)
			}
			if len(matches) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No titles match %q\n", query)
				return nil
			}
			rows := make([][]string, len(matches))
			for i, m := range matches {
				rows[i] = []string{strconv.FormatInt(m.Movie.ID, 10), m.Movie.Title}
			}
			writeRows(cmd, []string{"ID", "Title"}, rows, []columnAlignment{alignRight, alignLeft})
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of matches (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
