// Package cluster implements the Cluster Builder (§4.4): it groups citation
// occurrences that refer to the same case into stable, order-independent
// clusters. Statutes and regulations are never clustered — they already
// appear in the job result's citations list and are excluded here (§8).
package cluster

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/casestrainer/casestrainer/pkg/models"
)

// proximityWindow is the maximum character gap for the proximity rule.
const proximityWindow = 200

// connective matches the only filler allowed between two occurrences for
// the proximity rule: whitespace, commas, semicolons, or the word "and".
var connective = regexp.MustCompile(`(?i)^[\s,;]*(and[\s,;]*)?$`)

type clusterState struct {
	occurrences    []models.CitationOccurrence
	names          []models.ExtractedName
	lastEnd        int
	normalizedName string
}

// Build groups case occurrences into clusters. Statute and regulation
// occurrences are skipped entirely — they stay in the citations list and
// never surface as a cluster (§8). text is the exact source the
// occurrences were extracted from (needed for the connective-text check);
// occs and names must be the same length and index-aligned, both already
// in source order.
func Build(text string, occs []models.CitationOccurrence, names []models.ExtractedName) []models.Cluster {
	var open []*clusterState

	for i, occ := range occs {
		if occ.Kind != models.KindCase {
			continue
		}

		name := names[i]
		normName := normalizeName(name.CaseName)

		best := -1
		bestEnd := -1
		for ci, cs := range open {
			if !eligible(text, occ, name, normName, cs) {
				continue
			}
			if cs.lastEnd > bestEnd {
				best = ci
				bestEnd = cs.lastEnd
			}
		}

		if best == -1 {
			open = append(open, &clusterState{
				occurrences:    []models.CitationOccurrence{occ},
				names:          []models.ExtractedName{name},
				lastEnd:        occ.EndOffset,
				normalizedName: normName,
			})
			continue
		}

		cs := open[best]
		cs.occurrences = append(cs.occurrences, occ)
		cs.names = append(cs.names, name)
		cs.lastEnd = occ.EndOffset
		if cs.normalizedName == "" {
			cs.normalizedName = normName
		}
	}

	clusters := make([]models.Cluster, 0, len(open))
	for i, cs := range open {
		clusters = append(clusters, canonicalize(clusterID(i), cs))
	}

	return clusters
}

// eligible tests occ against an open cluster under the three clustering
// rules, vetoed outright if both have present, differing extracted dates.
func eligible(text string, occ models.CitationOccurrence, name models.ExtractedName, normName string, cs *clusterState) bool {
	last := cs.occurrences[len(cs.occurrences)-1]
	lastName := cs.names[len(cs.names)-1]

	if datesConflict(name, lastName) {
		return false
	}

	gap := occ.StartOffset - cs.lastEnd
	proximityOK := gap >= 0 && gap <= proximityWindow

	if proximityOK && connective.MatchString(text[cs.lastEnd:occ.StartOffset]) {
		return true
	}

	if occ.Parenthetical && proximityOK && gap >= 0 {
		return true
	}

	if normName != "" && normName == cs.normalizedName && parallelCitation(occ, last) {
		return true
	}

	return false
}

// parallelCitation reports whether occ and last look like two reporters for
// the same decision: same extracted name, but differing reporter or page.
func parallelCitation(a, b models.CitationOccurrence) bool {
	return a.Reporter != b.Reporter || a.Page != b.Page
}

func datesConflict(a, b models.ExtractedName) bool {
	return a.Date != nil && b.Date != nil && *a.Date != *b.Date
}

func normalizeName(name *string) string {
	if name == nil {
		return ""
	}
	return strings.ToLower(strings.Join(strings.Fields(*name), " "))
}

// canonicalize picks extracted_name as the highest-confidence non-null
// extraction among members (ties broken by earliest offset), and sets the
// cluster's initial verification_status (the Verifier overwrites this).
func canonicalize(id string, cs *clusterState) models.Cluster {
	var bestName *string
	var bestDate *int
	bestConfidence := -1.0

	for _, n := range cs.names {
		if n.CaseName == nil {
			continue
		}
		if n.Confidence > bestConfidence {
			bestConfidence = n.Confidence
			bestName = n.CaseName
		}
		if bestDate == nil && n.Date != nil {
			bestDate = n.Date
		}
	}

	return models.Cluster{
		ClusterID:          id,
		Occurrences:        cs.occurrences,
		ExtractedName:      bestName,
		ExtractedDate:      bestDate,
		VerificationStatus: models.StatusUnverified,
	}
}

func clusterID(i int) string {
	return "c" + strconv.Itoa(i)
}
