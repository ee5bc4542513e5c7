package matching

import "sort"

// Edge is a scored pairwise match between two providers
type Edge struct {
	A      string
	B      string
	Weight float64
}

// Cluster is a connected component of matched providers
type Cluster struct {
	// Members are sorted by id
	Members []string
	// MinWeight is the lowest edge weight inside the component
	MinWeight float64
}

// BuildClusters unions the edges into connected components. Transitive chains
// collapse into a single cluster and the reported weight is the weakest link,
// never an average.
func BuildClusters(edges []Edge) []Cluster {
	uf := newUnionFind()
	for _, e := range edges {
		uf.union(e.A, e.B)
	}

	byRoot := map[string]*Cluster{}
	var roots []string
	for _, e := range edges {
		root := uf.find(e.A)
		c, ok := byRoot[root]
		if !ok {
			c = &Cluster{MinWeight: e.Weight}
			byRoot[root] = c
			roots = append(roots, root)
		}
		if e.Weight < c.MinWeight {
			c.MinWeight = e.Weight
		}
	}

	for _, id := range uf.ids {
		if c, ok := byRoot[uf.find(id)]; ok {
			c.Members = append(c.Members, id)
		}
	}

	clusters := make([]Cluster, 0, len(roots))
	for _, root := range roots {
		c := byRoot[root]
		sort.Strings(c.Members)
		clusters = append(clusters, *c)
	}
	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i].Members[0] < clusters[j].Members[0]
	})
	return clusters
}

type unionFind struct {
	parent map[string]string
	rank   map[string]int
	ids    []string
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: map[string]string{},
		rank:   map[string]int{},
	}
}

func (u *unionFind) add(id string) {
	if _, ok := u.parent[id]; ok {
		return
	}
	u.parent[id] = id
	u.ids = append(u.ids, id)
}

func (u *unionFind) find(id string) string {
	u.add(id)
	root := id
	for u.parent[root] != root {
		root = u.parent[root]
	}
	// path compression
	for u.parent[id] != root {
		next := u.parent[id]
		u.parent[id] = root
		id = next
	}
	return root
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}
