package imagehash

import (
	"fmt"
	"math"
	"sort"
)

// Candidate pairs a stock identifier with its stored fingerprint.
type Candidate struct {
	ID          uint
	Fingerprint string
}

// Match is a ranked candidate with its similarity percentage.
type Match struct {
	ID         uint
	Similarity int
}

// HammingDistance counts differing bit positions between two equal-length
// fingerprints. Fingerprints of different lengths are never compared.
func HammingDistance(a, b string) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("fingerprint length mismatch: %d vs %d", len(a), len(b))
	}
	dist := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			dist++
		}
	}
	return dist, nil
}

// Rank scores every candidate against the query fingerprint and returns those
// at or above minSimilarity, best first. Candidates with a mismatched
// fingerprint length are excluded rather than coerced. The sort is stable so
// equal scores keep their input order.
func Rank(query string, candidates []Candidate, minSimilarity int) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		dist, err := HammingDistance(query, c.Fingerprint)
		if err != nil {
			continue
		}
		similarity := int(math.Round((1 - float64(dist)/float64(len(query))) * 100))
		if similarity >= minSimilarity {
			matches = append(matches, Match{ID: c.ID, Similarity: similarity})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}
