package network

import (
	"testing"

	"github.com/casestrainer/casestrainer/pkg/models"
)

func clusterAt(id, name string, start, end int) models.Cluster {
	n := name
	return models.Cluster{
		ClusterID:     id,
		CanonicalName: &n,
		Occurrences: []models.CitationOccurrence{
			{StartOffset: start, EndOffset: end},
		},
	}
}

func TestBuildCreatesOneNodePerCluster(t *testing.T) {
	clusters := []models.Cluster{
		clusterAt("c0", "Roe v. Wade", 0, 10),
		clusterAt("c1", "Brown v. Board", 20, 30),
	}

	g := Build(clusters)
	if len(g.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(g.Nodes))
	}
	if g.Nodes["c0"].CanonicalName != "Roe v. Wade" {
		t.Fatalf("unexpected node name: %q", g.Nodes["c0"].CanonicalName)
	}
}

func TestBuildLinksCoOccurringClusters(t *testing.T) {
	clusters := []models.Cluster{
		clusterAt("c0", "Roe v. Wade", 0, 10),
		clusterAt("c1", "Brown v. Board", 50, 60),
	}

	g := Build(clusters)
	if len(g.Edges) != 1 {
		t.Fatalf("expected 1 edge for clusters within the proximity window, got %d", len(g.Edges))
	}
}

func TestBuildDoesNotLinkDistantClusters(t *testing.T) {
	clusters := []models.Cluster{
		clusterAt("c0", "Roe v. Wade", 0, 10),
		clusterAt("c1", "Brown v. Board", 1000, 1010),
	}

	g := Build(clusters)
	if len(g.Edges) != 0 {
		t.Fatalf("expected no edges for clusters beyond the proximity window, got %d", len(g.Edges))
	}
}

func TestMostInfluentialRanksConnectedNodesHigher(t *testing.T) {
	clusters := []models.Cluster{
		clusterAt("hub", "Hub Case", 0, 10),
		clusterAt("c1", "Case One", 20, 30),
		clusterAt("c2", "Case Two", 40, 50),
		clusterAt("isolated", "Isolated Case", 10000, 10010),
	}

	g := Build(clusters)
	top := g.MostInfluential(1)
	if len(top) != 1 {
		t.Fatalf("expected 1 node, got %d", len(top))
	}
	if top[0].ClusterID == "isolated" {
		t.Fatalf("expected the isolated node to rank last, not first")
	}
}

func TestMostInfluentialLimitNeverExceedsNodeCount(t *testing.T) {
	clusters := []models.Cluster{clusterAt("c0", "Roe v. Wade", 0, 10)}
	g := Build(clusters)

	top := g.MostInfluential(5)
	if len(top) != 1 {
		t.Fatalf("expected limit to clamp to node count (1), got %d", len(top))
	}
}
