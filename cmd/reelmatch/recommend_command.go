package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelmatch/internal/recommend"
)

func newRecommendCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool
	var noPosters bool

	cmd := &cobra.Command{
		Use:   "recommend <title>",
		Short: "Recommend movies similar to a catalog title",
		Long: "Recommend movies similar to a catalog title. The title must match a catalog\n" +
			"entry exactly; use `reelmatch search` to find the exact spelling.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cfg, false)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			a, err := openApp(cmd.Context(), cfg, logger, appOptions{posters: !noPosters})
			if err != nil {
				return err
			}
			defer a.Close()

			title := strings.Join(args, " ")
			result, err := a.recommender.RecommendN(cmd.Context(), title, limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, result)
			}
			printRecommendations(cmd, result, !noPosters)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of recommendations (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&noPosters, "no-posters", false, "Skip poster lookups")
	return cmd
}

func printRecommendations(cmd *cobra.Command, result recommend.Result, withPosters bool) {
	out := cmd.OutOrStdout()
	if len(result.Recommendations) == 0 {
		fmt.Fprintf(out, "No other movies to recommend for %q\n", result.Query.Title)
		return
	}
	if isTerminal(out) {
		fmt.Fprintf(out, "Movies similar to %s\n", result.Query.Title)
	}

	headers := []string{"#", "Title", "Score"}
	aligns := []columnAlignment{alignRight, alignLeft, alignRight}
	if withPosters {
		headers = append(headers, "Poster")
		aligns = append(aligns, alignLeft)
	}
	rows := make([][]string, 0, len(result.Recommendations))
	for _, rec := range result.Recommendations {
		row := []string{
			strconv.Itoa(rec.Rank),
			rec.Movie.Title,
			strconv.FormatFloat(float64(rec.Score), 'f', 4, 32),
		}
		if withPosters {
			poster := rec.PosterURL
			if rec.PosterPlaceholder && isTerminal(out) {
				poster = "(placeholder)"
			}
			row = append(row, poster)
		}
		rows = append(rows, row)
	}
	writeRows(cmd, headers, rows, aligns)
}
