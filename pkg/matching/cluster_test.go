package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildClusters(t *testing.T) {
	tests := []struct {
		name     string
		edges    []Edge
		expected []Cluster
	}{
		{
			name:     "no edges",
			edges:    nil,
			expected: []Cluster{},
		},
		{
			name:  "single pair",
			edges: []Edge{{A: "a", B: "b", Weight: 92}},
			expected: []Cluster{
				{Members: []string{"a", "b"}, MinWeight: 92},
			},
		},
		{
			name: "transitive chain keeps weakest link",
			edges: []Edge{
				{A: "a", B: "b", Weight: 97},
				{A: "b", B: "c", Weight: 86},
				{A: "c", B: "d", Weight: 90},
			},
			expected: []Cluster{
				{Members: []string{"a", "b", "c", "d"}, MinWeight: 86},
			},
		},
		{
			name: "separate components",
			edges: []Edge{
				{A: "x", B: "y", Weight: 88},
				{A: "a", B: "b", Weight: 100},
			},
			expected: []Cluster{
				{Members: []string{"a", "b"}, MinWeight: 100},
				{Members: []string{"x", "y"}, MinWeight: 88},
			},
		},
		{
			name: "two chains joined by a late edge",
			edges: []Edge{
				{A: "a", B: "b", Weight: 95},
				{A: "c", B: "d", Weight: 99},
				{A: "b", B: "c", Weight: 87},
			},
			expected: []Cluster{
				{Members: []string{"a", "b", "c", "d"}, MinWeight: 87},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildClusters(tt.edges)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestBuildClusters_EveryClusterHasTwoMembers(t *testing.T) {
	edges := []Edge{
		{A: "1", B: "2", Weight: 90},
		{A: "3", B: "4", Weight: 90},
		{A: "4", B: "5", Weight: 90},
	}
	clusters := BuildClusters(edges)
	require.Len(t, clusters, 2)
	for _, c := range clusters {
		assert.GreaterOrEqual(t, len(c.Members), 2)
	}
}
