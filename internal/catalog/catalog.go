// Package catalog holds the ordered list of movies the similarity matrix is
// indexed by. Position i in the catalog is row and column i of the matrix.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Movie is one catalog entry. ID is the TMDB movie identifier.
type Movie struct {
	ID    int64  `json:"movie_id"`
	Title string `json:"title"`
}

// Catalog is an immutable, ordered movie list.
type Catalog struct {
	movies []Movie
	// first catalog index for each exact title
	byTitle map[string]int
	folded  []string
	idf     map[string]float64
	prints  []*fingerprint
}

// New builds a catalog from in-memory records. Titles must be non-empty.
func New(movies []Movie) (*Catalog, error) {
	c := &Catalog{
		movies:  make([]Movie, len(movies)),
		byTitle: make(map[string]int, len(movies)),
		folded:  make([]string, len(movies)),
	}
	fold := cases.Fold()
	for i, movie := range movies {
		if strings.TrimSpace(movie.Title) == "" {
			return nil, fmt.Errorf("catalog row %d: empty title", i)
		}
		c.movies[i] = movie
		if _, seen := c.byTitle[movie.Title]; !seen {
			c.byTitle[movie.Title] = i
		}
		c.folded[i] = fold.String(movie.Title)
	}

	docs := make([][]string, len(c.folded))
	for i, title := range c.folded {
		docs[i] = tokenize(title)
	}
	c.idf = inverseDocumentFrequency(docs)
	c.prints = make([]*fingerprint, len(docs))
	for i, tokens := range docs {
		c.prints[i] = newFingerprint(tokens, c.idf)
	}
	return c, nil
}

// Len reports the number of movies.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.movies)
}

// At returns the movie at index i. It panics when i is out of range, like a slice.
func (c *Catalog) At(i int) Movie {
	return c.movies[i]
}

// Movies returns a copy of the catalog in index order.
func (c *Catalog) Movies() []Movie {
	return append([]Movie(nil), c.movies...)
}

// IndexOf resolves an exact title. When a title appears more than once the
// lowest index wins.
func (c *Catalog) IndexOf(title string) (int, bool) {
	if c == nil {
		return 0, false
	}
	idx, ok := c.byTitle[title]
	return idx, ok
}

// Match is a search hit.
type Match struct {
	Index int   `json:"index"`
	Movie Movie `json:"movie"`
}

// Search returns movies whose case-folded title contains the case-folded
// query. Prefix matches come first, then catalog order. A limit of zero or
// less returns every match.
func (c *Catalog) Search(query string, limit int) []Match {
	if c == nil {
		return nil
	}
	q := cases.Fold().String(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	type hit struct {
		idx    int
		prefix bool
	}
	var hits []hit
	for i, title := range c.folded {
		if !strings.Contains(title, q) {
			continue
		}
		hits = append(hits, hit{idx: i, prefix: strings.HasPrefix(title, q)})
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].prefix && !hits[b].prefix
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	matches := make([]Match, len(hits))
	for i, h := range hits {
		matches[i] = Match{Index: h.idx, Movie: c.movies[h.idx]}
	}
	return matches
}

// minSuggestScore is the cosine similarity a title needs to be suggested
// when no title contains the query.
const minSuggestScore = 0.4

// Suggest returns up to limit titles close to an unknown title, for
// "did you mean" hints. Titles containing the query come first; failing
// that, titles are ranked by TF-IDF token similarity to the query.
func (c *Catalog) Suggest(title string, limit int) []string {
	if c == nil {
		return nil
	}
	var indexes []int
	for _, m := range c.Search(title, limit) {
		indexes = append(indexes, m.Index)
	}
	if len(indexes) == 0 {
		indexes = c.similarTitles(title, limit)
	}
	out := make([]string, len(indexes))
	for i, idx := range indexes {
		out[i] = c.movies[idx].Title
	}
	return out
}

func (c *Catalog) similarTitles(title string, limit int) []int {
	query := newFingerprint(tokenize(cases.Fold().String(title)), c.idf)
	if query == nil {
		return nil
	}
	type scored struct {
		idx   int
		score float64
	}
	var hits []scored
	for i, fp := range c.prints {
		if score := cosineSimilarity(query, fp); score >= minSuggestScore {
			hits = append(hits, scored{idx: i, score: score})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	indexes := make([]int, len(hits))
	for i, h := range hits {
		indexes[i] = h.idx
	}
	return indexes
}
