package citation

import "regexp"

// reporter is one entry in the closed table of recognized case reporters.
// Pattern is the regex fragment matching the reporter token as it appears
// in source text (with optional internal punctuation/whitespace variance);
// Canonical is the spelling canonicalReporter maps it to.
type reporter struct {
	Pattern   string
	Canonical string
}

// reporterTable is the closed set of recognized case reporters shipped with
// the extractor, per §4.1. It is deliberately not user-extensible: adding a
// reporter means adding a table entry and a test, not a config knob.
var reporterTable = []reporter{
	{`U\.\s*S\.`, "U.S."},
	{`S\.\s*Ct\.`, "S. Ct."},
	{`L\.\s*Ed\.\s*2d`, "L. Ed. 2d"},
	{`L\.\s*Ed\.`, "L. Ed."},
	{`F\.\s*Supp\.\s*3d`, "F. Supp. 3d"},
	{`F\.\s*Supp\.\s*2d`, "F. Supp. 2d"},
	{`F\.\s*Supp\.`, "F. Supp."},
	{`F\.\s*3d`, "F.3d"},
	{`F\.\s*2d`, "F.2d"},
	{`F\.`, "F."},
	// Regional reporters.
	{`A\.\s*3d`, "A.3d"},
	{`A\.\s*2d`, "A.2d"},
	{`N\.\s*E\.\s*3d`, "N.E.3d"},
	{`N\.\s*E\.\s*2d`, "N.E.2d"},
	{`N\.\s*W\.\s*2d`, "N.W.2d"},
	{`P\.\s*3d`, "P.3d"},
	{`P\.\s*2d`, "P.2d"},
	{`S\.\s*E\.\s*2d`, "S.E.2d"},
	{`S\.\s*W\.\s*3d`, "S.W.3d"},
	{`S\.\s*W\.\s*2d`, "S.W.2d"},
	{`So\.\s*3d`, "So.3d"},
	{`So\.\s*2d`, "So.2d"},
	// Representative state reporters.
	{`Cal\.\s*4th`, "Cal.4th"},
	{`Cal\.\s*3d`, "Cal.3d"},
	{`N\.Y\.\s*3d`, "N.Y.3d"},
	{`N\.Y\.\s*2d`, "N.Y.2d"},
	{`Mass\.`, "Mass."},
	{`Ill\.\s*2d`, "Ill.2d"},
	{`Tex\.`, "Tex."},
}

// reporterAlternation is the combined regex fragment matching any table
// reporter, longest/most-specific entries first so e.g. "F. Supp. 2d"
// never partially matches as "F.".
func reporterAlternation() string {
	pattern := ""
	for i, r := range reporterTable {
		if i > 0 {
			pattern += "|"
		}
		pattern += "(?:" + r.Pattern + ")"
	}
	return pattern
}

// canonicalReporter maps a raw reporter token to its canonical spelling by
// testing it against each table entry's pattern.
func canonicalReporter(raw string) string {
	for _, r := range reporterTable {
		if regexp.MustCompile(`^(?:` + r.Pattern + `)$`).MatchString(raw) {
			return r.Canonical
		}
	}
	return raw
}
