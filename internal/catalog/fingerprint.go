package catalog

import (
	"math"
	"strings"
	"unicode"
)

// minTokenLength drops articles and short connectives from fingerprints.
const minTokenLength = 3

// fingerprint is a TF-IDF weighted term vector over a case-folded title.
type fingerprint struct {
	terms map[string]float64
	norm  float64
}

func tokenize(folded string) []string {
	raw := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := raw[:0]
	for _, token := range raw {
		if len([]rune(token)) >= minTokenLength {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// inverseDocumentFrequency computes log((N+1)/(1+df)) for every term.
func inverseDocumentFrequency(docs [][]string) map[string]float64 {
	docFreq := make(map[string]int)
	for _, tokens := range docs {
		seen := make(map[string]struct{}, len(tokens))
		for _, token := range tokens {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			docFreq[token]++
		}
	}
	n := float64(len(docs))
	idf := make(map[string]float64, len(docFreq))
	for term, df := range docFreq {
		idf[term] = math.Log((n + 1) / (1 + float64(df)))
	}
	return idf
}

// newFingerprint weights term counts by idf. Terms missing from idf are
// dropped since no catalog title can match them. Returns nil when nothing remains.
func newFingerprint(tokens []string, idf map[string]float64) *fingerprint {
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	weighted := make(map[string]float64, len(counts))
	var norm float64
	for term, count := range counts {
		w := count * idf[term]
		if w == 0 {
			continue
		}
		weighted[term] = w
		norm += w * w
	}
	if len(weighted) == 0 {
		return nil
	}
	return &fingerprint{terms: weighted, norm: math.Sqrt(norm)}
}

func cosineSimilarity(a, b *fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for term, w := range a.terms {
		if other, ok := b.terms[term]; ok {
			dot += w * other
		}
	}
	return dot / (a.norm * b.norm)
}
