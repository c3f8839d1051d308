// Package network builds a read-only citation-network view over a
// completed job's clusters. It is additive to the core pipeline: it never
// feeds back into clustering or verification, and nothing in §3/§6 depends
// on it. Adapted from the teacher's citation NetworkAnalyzer, which
// performed PageRank-style influence scoring and a BFS chain lookup over a
// Case/Citation storage model; only the influence scoring is carried over,
// and here the nodes are one job's clusters instead of cross-job stored
// cases.
package network

import "github.com/casestrainer/casestrainer/pkg/models"

// Node is one cluster's position in the network.
type Node struct {
	ClusterID         string  `json:"cluster_id"`
	CanonicalName      string  `json:"canonical_name"`
	InfluenceScore     float64 `json:"influence_score"`
}

// Edge is undirected: both clusters have occurrences within a fixed
// 400-character window of each other (wider than the cluster builder's
// 200-character rule, which would double-count).
type Edge struct {
	FromClusterID string  `json:"from_cluster_id"`
	ToClusterID   string  `json:"to_cluster_id"`
	Weight        float64 `json:"weight"`
}

// Graph is the computed network for one job's clusters.
type Graph struct {
	Nodes map[string]*Node `json:"nodes"`
	Edges []*Edge          `json:"edges"`
}

// Build constructs a graph from a job's clusters, one node per cluster.
// A node with no edges keeps the base influence score of 1-damping.
func Build(clusters []models.Cluster) *Graph {
	g := &Graph{Nodes: make(map[string]*Node), Edges: make([]*Edge, 0)}

	for _, c := range clusters {
		name := ""
		if c.CanonicalName != nil {
			name = *c.CanonicalName
		} else if c.ExtractedName != nil {
			name = *c.ExtractedName
		}
		g.Nodes[c.ClusterID] = &Node{ClusterID: c.ClusterID, CanonicalName: name}
	}

	// Clusters whose occurrences are within 400 characters of each other
	// are linked as co-occurring — a coarse proximity signal, not a
	// citation-direction edge (the pipeline does not track which cluster
	// cites which; it only knows textual co-occurrence).
	for i := 0; i < len(clusters); i++ {
		for j := i + 1; j < len(clusters); j++ {
			if coOccurs(clusters[i], clusters[j], 400) {
				g.Edges = append(g.Edges, &Edge{
					FromClusterID: clusters[i].ClusterID,
					ToClusterID:   clusters[j].ClusterID,
					Weight:        1,
				})
			}
		}
	}

	g.scoreInfluence()
	return g
}

func coOccurs(a, b models.Cluster, window int) bool {
	aEnd := a.Occurrences[len(a.Occurrences)-1].EndOffset
	bStart := b.Occurrences[0].StartOffset
	bEnd := b.Occurrences[len(b.Occurrences)-1].EndOffset
	aStart := a.Occurrences[0].StartOffset
	gap := bStart - aEnd
	if gap < 0 {
		gap = aStart - bEnd
	}
	return gap >= 0 && gap <= window
}

// scoreInfluence runs a simplified PageRank-style damped iteration, the
// same shape the teacher used over its cross-case citation graph.
func (g *Graph) scoreInfluence() {
	const damping = 0.85
	const iterations = 10

	degree := make(map[string]int)
	for _, e := range g.Edges {
		degree[e.FromClusterID]++
		degree[e.ToClusterID]++
	}

	scores := make(map[string]float64)
	for id := range g.Nodes {
		scores[id] = 1.0
	}

	for i := 0; i < iterations; i++ {
		next := make(map[string]float64)
		for id := range g.Nodes {
			next[id] = 1.0 - damping
		}
		for _, e := range g.Edges {
			if degree[e.FromClusterID] > 0 {
				next[e.ToClusterID] += damping * scores[e.FromClusterID] / float64(degree[e.FromClusterID])
			}
			if degree[e.ToClusterID] > 0 {
				next[e.FromClusterID] += damping * scores[e.ToClusterID] / float64(degree[e.ToClusterID])
			}
		}
		scores = next
	}

	for id, score := range scores {
		g.Nodes[id].InfluenceScore = score
	}
}

// MostInfluential returns up to limit nodes ranked by influence score.
func (g *Graph) MostInfluential(limit int) []*Node {
	nodes := make([]*Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, n)
	}
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			if nodes[j].InfluenceScore > nodes[i].InfluenceScore {
				nodes[i], nodes[j] = nodes[j], nodes[i]
			}
		}
	}
	if limit > len(nodes) {
		limit = len(nodes)
	}
	return nodes[:limit]
}
