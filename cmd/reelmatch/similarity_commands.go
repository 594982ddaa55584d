package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"reelmatch/internal/catalog"
	"reelmatch/internal/dataset"
	"reelmatch/internal/services"
	"reelmatch/internal/similarity"
)

func newSimilarityCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similarity",
		Short: "Manage the cached similarity matrix",
	}
	cmd.AddCommand(newSimilarityFetchCommand(ctx))
	cmd.AddCommand(newSimilarityVerifyCommand(ctx))
	cmd.AddCommand(newSimilarityImportCommand(ctx))
	return cmd
}

func newSimilarityImportCommand(ctx *commandContext) *cobra.Command {
	var format string
	var skipCatalog bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Convert a numpy .npy or dense CSV score matrix into the local cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source := args[0]
			matrix, err := similarity.ImportFile(source, format)
			if err != nil {
				return services.Wrap(services.ErrValidation, "similarity", "import", filepath.Base(source), err)
			}
			if !skipCatalog {
				cat, err := catalog.Load(cfg.Catalog.Path)
				if err != nil {
					return err
				}
				if cat.Len() != matrix.Size() {
					return services.Wrap(services.ErrValidation, "similarity", "import",
						fmt.Sprintf("matrix is %dx%d but the catalog lists %d movies (use --skip-catalog-check to import anyway)",
							matrix.Size(), matrix.Size(), cat.Len()), nil)
				}
			}

			if err := os.MkdirAll(filepath.Dir(cfg.Similarity.Path), 0o755); err != nil {
				return fmt.Errorf("create matrix directory: %w", err)
			}
			lock := flock.New(cfg.Similarity.Path + ".lock")
			locked, err := lock.TryLockContext(cmd.Context(), 250*time.Millisecond)
			if err != nil {
				return fmt.Errorf("lock matrix file: %w", err)
			}
			if !locked {
				return errors.New("lock matrix file: not acquired")
			}
			defer func() { _ = lock.Unlock() }()

			if err := similarity.WriteFile(cfg.Similarity.Path, matrix); err != nil {
				return fmt.Errorf("write matrix: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %dx%d similarity matrix to %s\n", matrix.Size(), matrix.Size(), cfg.Similarity.Path)
			if err := matrix.CheckSymmetry(cfg.Similarity.SymmetryTolerance); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Warning: %v\n", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Input format: npy or csv (default from file extension)")
	cmd.Flags().BoolVar(&skipCatalog, "skip-catalog-check", false, "Import even if the matrix size differs from the catalog")
	return cmd
}

func newSimilarityFetchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download the similarity matrix, replacing any cached copy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Similarity.DownloadURL == "" {
				return errors.New("similarity.download_url is not set (or export REELMATCH_SIMILARITY_URL)")
			}
			logger, err := ctx.newLogger(cfg, false)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			store := newSimilarityStore(cfg, logger)
			matrix, err := store.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cached %dx%d similarity matrix at %s\n", matrix.Size(), matrix.Size(), store.Path())
			return nil
		},
	}
}

type verifyReport struct {
	CatalogPath string `json:"catalog_path"`
	MatrixPath  string `json:"matrix_path"`
	Movies      int    `json:"movies"`
	MatrixSize  int    `json:"matrix_size"`
	Aligned     bool   `json:"aligned"`
	Symmetric   bool   `json:"symmetric"`
	Problem     string `json:"problem,omitempty"`
}

func newSimilarityVerifyCommand(ctx *commandContext) *cobra.Command {
	var tolerance float64
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the matrix matches the catalog and is symmetric",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cfg, false)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if !cmd.Flags().Changed("tolerance") {
				tolerance = cfg.Similarity.SymmetryTolerance
			}

			cat, err := catalog.Load(cfg.Catalog.Path)
			if err != nil {
				return err
			}
			store := newSimilarityStore(cfg, logger)
			matrix, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}

			report := verifyReport{
				CatalogPath: cfg.Catalog.Path,
				MatrixPath:  store.Path(),
				Movies:      cat.Len(),
				MatrixSize:  matrix.Size(),
			}
			if _, err := dataset.New(cat, matrix); err != nil {
				report.Problem = err.Error()
			} else {
				report.Aligned = true
			}
			var asym *similarity.AsymmetryError
			if err := matrix.CheckSymmetry(tolerance); err == nil {
				report.Symmetric = true
			} else if errors.As(err, &asym) {
				if asym.I < cat.Len() && asym.J < cat.Len() {
					err = fmt.Errorf("%w (%q vs %q)", err, cat.At(asym.I).Title, cat.At(asym.J).Title)
				}
				if report.Problem == "" {
					report.Problem = err.Error()
				}
			}

			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Catalog: %s (%d movies)\n", report.CatalogPath, report.Movies)
				fmt.Fprintf(out, "Matrix: %s (%dx%d)\n", report.MatrixPath, report.MatrixSize, report.MatrixSize)
				fmt.Fprintf(out, "Aligned: %s\n", yesNo(report.Aligned))
				fmt.Fprintf(out, "Symmetric: %s\n", yesNo(report.Symmetric))
			}
			if !report.Aligned || !report.Symmetric {
				return fmt.Errorf("similarity data failed verification: %s", report.Problem)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&tolerance, "tolerance", 0, "Allowed |s[i][j]-s[j][i]| (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
