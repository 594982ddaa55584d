// Package dataset pairs the catalog with its similarity matrix. A Dataset is
// built once per process and handed to the recommender.
package dataset

import (
	"context"
	"fmt"
	"log/slog"

	"reelmatch/internal/catalog"
	"reelmatch/internal/logging"
	"reelmatch/internal/services"
	"reelmatch/internal/similarity"
)

// Dataset is a catalog and a matrix of matching size. Both are read-only.
type Dataset struct {
	Catalog *catalog.Catalog
	Matrix  *similarity.Matrix
}

// MatrixLoader yields the similarity matrix. *similarity.Store implements it.
type MatrixLoader interface {
	Load(ctx context.Context) (*similarity.Matrix, error)
}

// Options control validation performed by Open.
type Options struct {
	VerifySymmetry    bool
	SymmetryTolerance float64
	Logger            *slog.Logger
}

// New pairs an in-memory catalog and matrix, checking that their sizes agree.
func New(cat *catalog.Catalog, matrix *similarity.Matrix) (*Dataset, error) {
	if cat == nil || matrix == nil {
		return nil, services.Wrap(services.ErrUnavailable, "dataset", "build", "catalog and matrix are required", nil)
	}
	if cat.Len() != matrix.Size() {
		return nil, services.Wrap(services.ErrUnavailable, "dataset", "build",
			fmt.Sprintf("catalog has %d movies but matrix is %dx%d", cat.Len(), matrix.Size(), matrix.Size()), nil)
	}
	return &Dataset{Catalog: cat, Matrix: matrix}, nil
}

// Open loads the catalog from catalogPath and the matrix from loader.
func Open(ctx context.Context, catalogPath string, loader MatrixLoader, opts Options) (*Dataset, error) {
	logger := logging.NewComponentLogger(opts.Logger, "dataset")

	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "dataset", "load catalog", "", err)
	}
	matrix, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	ds, err := New(cat, matrix)
	if err != nil {
		return nil, err
	}
	if opts.VerifySymmetry {
		if err := matrix.CheckSymmetry(opts.SymmetryTolerance); err != nil {
			return nil, services.Wrap(services.ErrUnavailable, "dataset", "verify symmetry", "", err)
		}
	}
	logger.Debug("dataset ready",
		logging.String("catalog", catalogPath),
		logging.Int("movies", cat.Len()),
		logging.Bool("symmetry_checked", opts.VerifySymmetry),
	)
	return ds, nil
}

// Len is the number of movies.
func (d *Dataset) Len() int {
	return d.Catalog.Len()
}
