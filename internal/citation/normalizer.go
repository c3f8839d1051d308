package citation

import (
	"regexp"
	"strings"
)

// ligatureReplacer maps smart quotes, ligatures and non-breaking spaces to
// their ASCII equivalents, applied before whitespace collapsing.
var ligatureReplacer = strings.NewReplacer(
	" ", " ", // non-breaking space
	"‘", "'", "’", "'", // smart single quotes
	"“", `"`, "”", `"`, // smart double quotes
	"ﬁ", "fi", "ﬂ", "fl", // fi/fl ligatures
	"–", "-", "—", "-", // en/em dash
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeCitationText produces the canonical spacing/punctuation form of
// a raw citation match. raw_text is left untouched by callers; this output
// only ever populates normalized_text (§4.1 normalization rule).
func NormalizeCitationText(raw string) string {
	s := ligatureReplacer.Replace(raw)
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	for _, r := range reporterTable {
		re := regexp.MustCompile(r.Pattern)
		s = re.ReplaceAllString(s, r.Canonical)
	}

	return s
}
