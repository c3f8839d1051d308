package cluster

import (
	"testing"

	"github.com/casestrainer/casestrainer/pkg/models"
)

func occ(kind models.CitationKind, reporter string, page, start, end int) models.CitationOccurrence {
	return models.CitationOccurrence{
		RawText:     reporter,
		Reporter:    reporter,
		Page:        page,
		StartOffset: start,
		EndOffset:   end,
		Kind:        kind,
	}
}

func name(s string, date *int, confidence float64) models.ExtractedName {
	var n *string
	if s != "" {
		n = &s
	}
	return models.ExtractedName{CaseName: n, Date: date, Confidence: confidence}
}

func TestBuildMergesProximateOccurrences(t *testing.T) {
	// "410 U.S. 113 and 94 S.Ct. 200 decided it."
	// occ1 = indices [0,12) "410 U.S. 113", occ2 = indices [17,29) "94 S.Ct. 200",
	// separated by the literal connective " and ".
	text := "410 U.S. 113 and 94 S.Ct. 200 decided it."
	occs := []models.CitationOccurrence{
		occ(models.KindCase, "U.S.", 113, 0, 12),
		occ(models.KindCase, "S.Ct.", 200, 17, 29),
	}
	names := []models.ExtractedName{
		name("Smith v. Jones", nil, 0.9),
		name("", nil, 0),
	}

	clusters := Build(text, occs, names)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if len(clusters[0].Occurrences) != 2 {
		t.Fatalf("expected 2 occurrences merged, got %d", len(clusters[0].Occurrences))
	}
	if clusters[0].ExtractedName == nil || *clusters[0].ExtractedName != "Smith v. Jones" {
		t.Fatalf("expected canonical name 'Smith v. Jones', got %v", clusters[0].ExtractedName)
	}
}

func TestBuildSplitsOnConflictingDates(t *testing.T) {
	text := "Smith v. Jones (1973) and Smith v. Jones (1999) differ."
	d1973, d1999 := 1973, 1999
	occs := []models.CitationOccurrence{
		occ(models.KindCase, "U.S.", 1, 0, 14),
		occ(models.KindCase, "U.S.", 1, 27, 41),
	}
	names := []models.ExtractedName{
		name("Smith v. Jones", &d1973, 0.9),
		name("Smith v. Jones", &d1999, 0.9),
	}

	clusters := Build(text, occs, names)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters for conflicting dates, got %d", len(clusters))
	}
}

func TestBuildKeepsDistantOccurrencesSeparate(t *testing.T) {
	text := make([]byte, 500)
	for i := range text {
		text[i] = ' '
	}
	occs := []models.CitationOccurrence{
		occ(models.KindCase, "U.S.", 1, 0, 5),
		occ(models.KindCase, "U.S.", 1, 490, 495),
	}
	names := []models.ExtractedName{
		name("Smith v. Jones", nil, 0.9),
		name("Smith v. Jones", nil, 0.9),
	}

	clusters := Build(string(text), occs, names)
	if len(clusters) != 2 {
		t.Fatalf("expected occurrences beyond the proximity window to stay separate, got %d clusters", len(clusters))
	}
}

func TestBuildExcludesStatutesFromClusters(t *testing.T) {
	text := "28 U.S.C. § 1331 grants jurisdiction."
	occs := []models.CitationOccurrence{
		occ(models.KindStatute, "U.S.C.", 1331, 0, 16),
	}
	names := []models.ExtractedName{name("", nil, 0)}

	clusters := Build(text, occs, names)
	if len(clusters) != 0 {
		t.Fatalf("expected statutes to never surface as a cluster, got %d", len(clusters))
	}
}

// TestBuildScenario4MixedStatuteAndCaseYieldsOneCluster mirrors the spec's
// §8 boundary scenario: a statute and a single case citation in the same
// text must produce exactly one cluster, with the statute excluded.
func TestBuildScenario4MixedStatuteAndCaseYieldsOneCluster(t *testing.T) {
	text := "42 U.S.C. § 1983 and 347 U.S. 483 both apply."
	occs := []models.CitationOccurrence{
		occ(models.KindStatute, "U.S.C.", 1983, 0, 16),
		occ(models.KindCase, "U.S.", 483, 22, 34),
	}
	names := []models.ExtractedName{
		name("", nil, 0),
		name("Brown v. Board", nil, 0.9),
	}

	clusters := Build(text, occs, names)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster (statute excluded), got %d", len(clusters))
	}
	if len(clusters[0].Occurrences) != 1 || clusters[0].Occurrences[0].Kind != models.KindCase {
		t.Fatalf("expected the remaining cluster to hold only the case occurrence, got %+v", clusters[0])
	}
}

func TestBuildMergesParallelCitationsBySameName(t *testing.T) {
	text := "Smith v. Jones, 410 U.S. 113, also reported at 94 S. Ct. 200, holds that."
	occs := []models.CitationOccurrence{
		occ(models.KindCase, "U.S.", 113, 16, 27),
		occ(models.KindCase, "S.Ct.", 200, 48, 59),
	}
	names := []models.ExtractedName{
		name("Smith v. Jones", nil, 0.9),
		name("Smith v. Jones", nil, 0.9),
	}

	clusters := Build(text, occs, names)
	if len(clusters) != 1 {
		t.Fatalf("expected parallel citations with the same name to merge, got %d clusters", len(clusters))
	}
}
