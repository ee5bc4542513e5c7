package matching

import (
	"testing"

	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScorer_Levenshtein(t *testing.T) {
	s := NewScorer(AlgorithmLevenshtein)

	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{"identical", "joao silva", "joao silva", 1.0},
		{"one substitution", "joao silva", "joao silvo", 0.9},
		{"empty both", "", "", 1.0},
		{"empty one", "abc", "", 0.0},
		{"multibyte counts runes", "joão", "joao", 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, s.Levenshtein(tt.a, tt.b), 0.0001)
		})
	}
}

func TestScorer_LevenshteinDistance(t *testing.T) {
	s := NewScorer(AlgorithmLevenshtein)
	assert.Equal(t, 3, s.LevenshteinDistance("kitten", "sitting"))
	assert.Equal(t, 1, s.LevenshteinDistance("ç", "c"))
	assert.Equal(t, 0, s.LevenshteinDistance("same", "same"))
}

func TestScorer_DiacriticInsensitiveNames(t *testing.T) {
	for _, algo := range []Algorithm{AlgorithmLevenshtein, AlgorithmJaroWinkler} {
		t.Run(string(algo), func(t *testing.T) {
			s := NewScorer(algo)
			same := s.Score(normalizers.NormalizeName("João Silva"), normalizers.NormalizeName("Joao Silva"))
			assert.Equal(t, 100.0, same)

			different := s.Score(normalizers.NormalizeName("João Silva"), normalizers.NormalizeName("Maria Santos"))
			assert.Less(t, different, 85.0)
		})
	}
}

func TestScorer_JaroWinkler(t *testing.T) {
	s := NewScorer(AlgorithmJaroWinkler)
	assert.InDelta(t, 0.961, s.JaroWinkler("martha", "marhta"), 0.001)
	assert.Equal(t, 0.0, s.JaroWinkler("abc", ""))
	assert.Equal(t, 1.0, s.JaroWinkler("", ""))
}

func TestScorer_CanReach(t *testing.T) {
	s := NewScorer(AlgorithmLevenshtein)
	assert.True(t, s.CanReach("joao silva", "joao silvas", 85))
	assert.False(t, s.CanReach("ana", "ana maria rodrigues", 85))

	jw := NewScorer(AlgorithmJaroWinkler)
	assert.True(t, jw.CanReach("ana", "ana maria rodrigues", 85))
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmLevenshtein, a)

	a, err = ParseAlgorithm("Jaro_Winkler")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmJaroWinkler, a)

	_, err = ParseAlgorithm("soundex")
	assert.Error(t, err)
}
