package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Load reads a catalog from path. Files ending in .json hold either an array
// of {movie_id, title} records or the column layout
// {"movie_id": {"0": ...}, "title": {"0": ...}}; anything else is read as CSV
// with a header naming movie_id and title columns.
func Load(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer file.Close()

	var movies []Movie
	if strings.EqualFold(filepath.Ext(path), ".json") {
		movies, err = decodeJSON(file)
	} else {
		movies, err = decodeCSV(file)
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	if len(movies) == 0 {
		return nil, fmt.Errorf("read catalog %s: no movies", path)
	}
	return New(movies)
}

func decodeCSV(r io.Reader) ([]Movie, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := headerIndex(header)
	for _, col := range []string{"movie_id", "title"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %s", col)
		}
	}

	var movies []Movie
	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		movie, err := parseRecord(record, idx)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		movies = append(movies, movie)
	}
	return movies, nil
}

func parseRecord(record []string, idx map[string]int) (Movie, error) {
	field := func(col string) string {
		i := idx[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	id, err := strconv.ParseInt(field("movie_id"), 10, 64)
	if err != nil {
		return Movie{}, fmt.Errorf("invalid movie_id %q", field("movie_id"))
	}
	title := field("title")
	if title == "" {
		return Movie{}, errors.New("empty title")
	}
	return Movie{ID: id, Title: title}, nil
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		if key == "movieid" || key == "id" {
			if _, ok := idx["movie_id"]; !ok {
				idx["movie_id"] = i
			}
			continue
		}
		idx[key] = i
	}
	return idx
}

type columnar struct {
	MovieID map[string]json.Number `json:"movie_id"`
	Title   map[string]string      `json:"title"`
}

func decodeJSON(r io.Reader) ([]Movie, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var movies []Movie
		if err := json.Unmarshal(data, &movies); err != nil {
			return nil, err
		}
		for i, m := range movies {
			if strings.TrimSpace(m.Title) == "" {
				return nil, fmt.Errorf("record %d: empty title", i)
			}
		}
		return movies, nil
	}

	var cols columnar
	if err := json.Unmarshal(data, &cols); err != nil {
		return nil, err
	}
	if len(cols.MovieID) != len(cols.Title) {
		return nil, fmt.Errorf("column lengths differ: movie_id=%d title=%d", len(cols.MovieID), len(cols.Title))
	}
	rows := make([]int, 0, len(cols.Title))
	for key := range cols.Title {
		row, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid row key %q", key)
		}
		rows = append(rows, row)
	}
	sort.Ints(rows)

	movies := make([]Movie, 0, len(rows))
	for _, row := range rows {
		key := strconv.Itoa(row)
		raw, ok := cols.MovieID[key]
		if !ok {
			return nil, fmt.Errorf("row %s: missing movie_id", key)
		}
		id, err := raw.Int64()
		if err != nil {
			return nil, fmt.Errorf("row %s: invalid movie_id %q", key, raw)
		}
		title := strings.TrimSpace(cols.Title[key])
		if title == "" {
			return nil, fmt.Errorf("row %s: empty title", key)
		}
		movies = append(movies, Movie{ID: id, Title: title})
	}
	return movies, nil
}
