package testsupport

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"reelmatch/internal/similarity"
)

// Movie is a catalog fixture row.
type Movie struct {
	ID    int64
	Title string
}

// SampleMovies is a four-title catalog matching SampleScores.
var SampleMovies = []Movie{
	{ID: 19995, Title: "Avatar"},
	{ID: 285, Title: "Pirates of the Caribbean: At World's End"},
	{ID: 206647, Title: "Spectre"},
	{ID: 49026, Title: "The Dark Knight Rises"},
}

// SampleScores ranks Avatar's neighbours as Pirates, Dark Knight Rises, Spectre.
var SampleScores = [][]float32{
	{1.0, 0.9, 0.2, 0.5},
	{0.9, 1.0, 0.1, 0.3},
	{0.2, 0.1, 1.0, 0.4},
	{0.5, 0.3, 0.4, 1.0},
}

// WriteCatalog writes movies as a movie_id,title CSV file.
func WriteCatalog(t testing.TB, path string, movies []Movie) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	records := [][]string{{"movie_id", "title"}}
	for _, m := range movies {
		records = append(records, []string{strconv.FormatInt(m.ID, 10), m.Title})
	}
	if err := w.WriteAll(records); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteMatrix encodes rows into a similarity matrix file.
func WriteMatrix(t testing.TB, path string, rows [][]float32) {
	t.Helper()

	m, err := similarity.FromRows(rows)
	if err != nil {
		t.Fatalf("build matrix: %v", err)
	}
	if err := similarity.WriteFile(path, m); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteSampleData writes SampleMovies and SampleScores to the given paths.
func WriteSampleData(t testing.TB, catalogPath, matrixPath string) {
	t.Helper()
	WriteCatalog(t, catalogPath, SampleMovies)
	WriteMatrix(t, matrixPath, SampleScores)
}
