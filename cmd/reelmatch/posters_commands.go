package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"reelmatch/internal/postercache"
)

func newPostersCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posters",
		Short: "Inspect the poster URL cache",
	}
	cmd.AddCommand(newPostersListCommand(ctx))
	cmd.AddCommand(newPostersRemoveCommand(ctx))
	cmd.AddCommand(newPostersClearCommand(ctx))
	return cmd
}

func withPosterCache(cmd *cobra.Command, ctx *commandContext, fn func(*postercache.Cache) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.newLogger(cfg, false)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	cache, err := openPosterCache(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("open poster cache: %w", err)
	}
	defer cache.Close()
	if !cache.Enabled() {
		return errors.New("poster cache is disabled (posters.cache_enabled = false)")
	}
	return fn(cache)
}

func newPostersListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached poster URLs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPosterCache(cmd, ctx, func(cache *postercache.Cache) error {
				entries, err := cache.List(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					if entries == nil {
						entries = []postercache.Entry{}
					}
					return writeJSON(cmd, entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Poster cache is empty")
					return nil
				}
				rows := make([][]string, len(entries))
				for i, e := range entries {
					rows[i] = []string{
						strconv.FormatInt(e.MovieID, 10),
						e.CachedAt.Local().Format(time.DateTime),
						e.PosterURL,
					}
				}
				writeRows(cmd, []string{"Movie ID", "Cached", "URL"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft})
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newPostersRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <movie-id>",
		Short: "Forget the cached poster URL for one movie",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid movie id %q", args[0])
			}
			return withPosterCache(cmd, ctx, func(cache *postercache.Cache) error {
				if err := cache.Remove(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed cached poster for movie %d\n", id)
				return nil
			})
		},
	}
}

func newPostersClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached poster URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPosterCache(cmd, ctx, func(cache *postercache.Cache) error {
				removed, err := cache.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached poster URLs\n", removed)
				return nil
			})
		},
	}
}
