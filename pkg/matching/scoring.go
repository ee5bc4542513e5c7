package matching

import (
	"fmt"
	"strings"
)

// Algorithm selects the name similarity measure
type Algorithm string

const (
	AlgorithmLevenshtein Algorithm = "levenshtein"
	AlgorithmJaroWinkler Algorithm = "jaro_winkler"
)

// ParseAlgorithm validates a configured algorithm name
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case "", AlgorithmLevenshtein:
		return AlgorithmLevenshtein, nil
	case AlgorithmJaroWinkler:
		return AlgorithmJaroWinkler, nil
	default:
		return "", fmt.Errorf("unsupported name similarity algorithm: %s", s)
	}
}

// Scorer compares normalized names. Scores are percentages in [0, 100].
type Scorer struct {
	algorithm Algorithm
}

// NewScorer creates a new Scorer
func NewScorer(algorithm Algorithm) *Scorer {
	if algorithm == "" {
		algorithm = AlgorithmLevenshtein
	}
	return &Scorer{algorithm: algorithm}
}

// Algorithm returns the configured measure
func (s *Scorer) Algorithm() Algorithm {
	return s.algorithm
}

// Score returns the similarity of two already-normalized names
func (s *Scorer) Score(a, b string) float64 {
	if a == b {
		return 100
	}
	switch s.algorithm {
	case AlgorithmJaroWinkler:
		return s.JaroWinkler(a, b) * 100
	default:
		return s.Levenshtein(a, b) * 100
	}
}

// CanReach reports whether two names could possibly score at least threshold.
// Used to skip pairs whose length difference alone rules out a match.
func (s *Scorer) CanReach(a, b string, threshold float64) bool {
	if s.algorithm != AlgorithmLevenshtein {
		return true
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return true
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	return (1-float64(diff)/float64(longest))*100 >= threshold
}

// Levenshtein returns 1 - distance/maxLen over runes, in [0, 1]
func (s *Scorer) Levenshtein(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshteinDistance(ra, rb))/float64(maxLen)
}

// LevenshteinDistance calculates the edit distance between two strings
func (s *Scorer) LevenshteinDistance(a, b string) int {
	return levenshteinDistance([]rune(a), []rune(b))
}

func levenshteinDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(row[j-1]+1, prevRow[j]+1, prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}

// JaroWinkler returns the Jaro-Winkler similarity in [0, 1]
func (s *Scorer) JaroWinkler(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	jaro := jaro(ra, rb)

	prefixLen := 0
	for i := 0; i < len(ra) && i < len(rb) && i < 4; i++ {
		if ra[i] != rb[i] {
			break
		}
		prefixLen++
	}

	return jaro + float64(prefixLen)*0.1*(1.0-jaro)
}

func jaro(a, b []rune) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	matchDist := max(max(len(a), len(b))/2-1, 0)
	aMatches := make([]bool, len(a))
	bMatches := make([]bool, len(b))

	matches := 0
	for i := range a {
		start := max(0, i-matchDist)
		end := min(len(b), i+matchDist+1)
		for j := start; j < end; j++ {
			if bMatches[j] || a[i] != b[j] {
				continue
			}
			aMatches[i] = true
			bMatches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := range a {
		if !aMatches[i] {
			continue
		}
		for !bMatches[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(len(a)) + m/float64(len(b)) + (m-t)/m) / 3
}
