package dataset_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"reelmatch/internal/catalog"
	"reelmatch/internal/dataset"
	"reelmatch/internal/services"
	"reelmatch/internal/similarity"
)

type staticLoader struct {
	matrix *similarity.Matrix
	err    error
}

func (l staticLoader) Load(context.Context) (*similarity.Matrix, error) { return l.matrix, l.err }

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "movies.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestOpenPairsCatalogAndMatrix(t *testing.T) {
	path := writeCatalog(t, "movie_id,title\n1,Alpha\n2,Beta\n")
	matrix, _ := similarity.FromRows([][]float32{{1, 0.2}, {0.2, 1}})

	ds, err := dataset.Open(context.Background(), path, staticLoader{matrix: matrix}, dataset.Options{VerifySymmetry: true, SymmetryTolerance: 1e-6})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ds.Len() != 2 || ds.Matrix != matrix {
		t.Fatalf("unexpected dataset: len=%d", ds.Len())
	}
}

func TestOpenRejectsDimensionMismatch(t *testing.T) {
	path := writeCatalog(t, "movie_id,title\n1,Alpha\n2,Beta\n3,Gamma\n")
	matrix, _ := similarity.FromRows([][]float32{{1, 0.2}, {0.2, 1}})

	_, err := dataset.Open(context.Background(), path, staticLoader{matrix: matrix}, dataset.Options{})
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestOpenRejectsAsymmetricMatrixWhenVerifying(t *testing.T) {
	path := writeCatalog(t, "movie_id,title\n1,Alpha\n2,Beta\n")
	matrix, _ := similarity.FromRows([][]float32{{1, 0.2}, {0.9, 1}})

	if _, err := dataset.Open(context.Background(), path, staticLoader{matrix: matrix}, dataset.Options{VerifySymmetry: true, SymmetryTolerance: 1e-6}); !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := dataset.Open(context.Background(), path, staticLoader{matrix: matrix}, dataset.Options{}); err != nil {
		t.Fatalf("expected asymmetric matrix to pass without verification: %v", err)
	}
}

func TestOpenPropagatesLoaderFailure(t *testing.T) {
	path := writeCatalog(t, "movie_id,title\n1,Alpha\n")
	loadErr := services.Wrap(services.ErrUnavailable, "similarity", "load", "offline", nil)
	if _, err := dataset.Open(context.Background(), path, staticLoader{err: loadErr}, dataset.Options{}); !errors.Is(err, loadErr) {
		t.Fatalf("expected loader error, got %v", err)
	}
}

func TestOpenMissingCatalogIsUnavailable(t *testing.T) {
	matrix, _ := similarity.FromRows([][]float32{{1}})
	_, err := dataset.Open(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), staticLoader{matrix: matrix}, dataset.Options{})
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestNewRequiresBothParts(t *testing.T) {
	cat, _ := catalog.New([]catalog.Movie{{ID: 1, Title: "Alpha"}})
	if _, err := dataset.New(cat, nil); err == nil {
		t.Fatal("expected error for missing matrix")
	}
}
