package catalog_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelmatch/internal/catalog"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "movies.csv", "movie_id,title,tags\n19995,Avatar,action\n285,Pirates of the Caribbean: At World's End,adventure\n")
	cat, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("expected 2 movies, got %d", cat.Len())
	}
	if got := cat.At(1); got.ID != 285 || !strings.HasPrefix(got.Title, "Pirates") {
		t.Fatalf("unexpected second movie: %+v", got)
	}
}

func TestLoadCSVReportsBadRow(t *testing.T) {
	path := writeFile(t, "movies.csv", "movie_id,title\n1,Alpha\nabc,Beta\n")
	_, err := catalog.Load(path)
	if err == nil || !strings.Contains(err.Error(), "row 3") {
		t.Fatalf("expected row 3 error, got %v", err)
	}
}

func TestLoadCSVRequiresColumns(t *testing.T) {
	path := writeFile(t, "movies.csv", "id_only\n1\n")
	if _, err := catalog.Load(path); err == nil {
		t.Fatal("expected missing column error")
	}
}

func TestLoadJSONRecords(t *testing.T) {
	path := writeFile(t, "movies.json", `[{"movie_id": 1, "title": "Alpha"}, {"movie_id": 2, "title": "Beta"}]`)
	cat, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cat.Len() != 2 || cat.At(0).Title != "Alpha" {
		t.Fatalf("unexpected catalog: %+v", cat.Movies())
	}
}

func TestLoadJSONColumnsOrdersByRowKey(t *testing.T) {
	path := writeFile(t, "movies.json", `{
		"movie_id": {"10": 30, "2": 20, "0": 10},
		"title": {"0": "Alpha", "2": "Beta", "10": "Gamma"}
	}`)
	cat, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []catalog.Movie{{ID: 10, Title: "Alpha"}, {ID: 20, Title: "Beta"}, {ID: 30, Title: "Gamma"}}
	got := cat.Movies()
	if len(got) != len(want) {
		t.Fatalf("expected %d movies, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("movie %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestIndexOfFirstMatchWins(t *testing.T) {
	cat, err := catalog.New([]catalog.Movie{{ID: 1, Title: "Heat"}, {ID: 2, Title: "Alien"}, {ID: 3, Title: "Heat"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	idx, ok := cat.IndexOf("Heat")
	if !ok || idx != 0 {
		t.Fatalf("IndexOf(Heat) = %d, %v; want 0, true", idx, ok)
	}
	if _, ok := cat.IndexOf("heat"); ok {
		t.Fatal("IndexOf must be an exact match")
	}
}

func TestNewRejectsEmptyTitle(t *testing.T) {
	if _, err := catalog.New([]catalog.Movie{{ID: 1, Title: " "}}); err == nil {
		t.Fatal("expected error for empty title")
	}
}

func TestSearchFoldsCaseAndPrefersPrefix(t *testing.T) {
	cat, err := catalog.New([]catalog.Movie{
		{ID: 1, Title: "The Dark Knight"},
		{ID: 2, Title: "Dark City"},
		{ID: 3, Title: "Amélie"},
		{ID: 4, Title: "Darkman"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	matches := cat.Search("DARK", 0)
	var titles []string
	for _, m := range matches {
		titles = append(titles, m.Movie.Title)
	}
	if strings.Join(titles, "|") != "Dark City|Darkman|The Dark Knight" {
		t.Fatalf("unexpected order: %v", titles)
	}
	if got := cat.Search("dark", 1); len(got) != 1 || got[0].Index != 1 {
		t.Fatalf("expected limit to keep the first prefix match, got %+v", got)
	}
	if got := cat.Search("AMÉLIE", 5); len(got) != 1 || got[0].Movie.ID != 3 {
		t.Fatalf("expected folded match for accented title, got %+v", got)
	}
	if got := cat.Search("   ", 5); got != nil {
		t.Fatalf("blank query should return nil, got %+v", got)
	}
}

func TestSuggestRanksByTokenSimilarity(t *testing.T) {
	cat, err := catalog.New([]catalog.Movie{
		{ID: 1, Title: "Avatar"},
		{ID: 2, Title: "Titanic"},
		{ID: 3, Title: "The Dark Knight"},
		{ID: 4, Title: "The Dark Knight Rises"},
		{ID: 5, Title: "Knight and Day"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := cat.Suggest("the avatar movie", 3); len(got) != 1 || got[0] != "Avatar" {
		t.Fatalf("unexpected suggestions: %v", got)
	}
	got := cat.Suggest("dark knight returns", 3)
	if len(got) < 2 || got[0] != "The Dark Knight" || got[1] != "The Dark Knight Rises" {
		t.Fatalf("unexpected suggestions: %v", got)
	}
	if got := cat.Suggest("zzz", 3); len(got) != 0 {
		t.Fatalf("expected no suggestions, got %v", got)
	}
}
