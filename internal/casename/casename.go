// Package casename implements the Case Name Extractor (§4.3): a ranked
// pattern set run against an isolated context, followed by contamination
// cleaning, abbreviation normalization and confidence scoring.
package casename

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/casestrainer/casestrainer/pkg/models"
)

// namePattern is one ranked entry in the pattern set.
type namePattern struct {
	ID          string
	Regexp      *regexp.Regexp
	BaseConfidence float64
	// Format builds the full case name from the regexp's submatches.
	Format func(groups []string) string
}

var patterns = []namePattern{
	{
		ID:             "state_or_people_v",
		Regexp:         regexp.MustCompile(`(State|People)\s+v\.?\s+([A-Z][A-Za-z.,'&-]*(?:\s+[A-Za-z.,'&-]+)*)\s*,?\s*$`),
		BaseConfidence: 0.9,
		Format: func(g []string) string { return g[1] + " v. " + g[2] },
	},
	{
		ID:             "united_states_v",
		Regexp:         regexp.MustCompile(`(United States)\s+v\.?\s+([A-Z][A-Za-z.,'&-]*(?:\s+[A-Za-z.,'&-]+)*)\s*,?\s*$`),
		BaseConfidence: 0.9,
		Format: func(g []string) string { return g[1] + " v. " + g[2] },
	},
	{
		ID:             "in_re_matter_estate",
		Regexp:         regexp.MustCompile(`(In re|Matter of|Estate of)\s+([A-Z][A-Za-z.,'&-]*(?:\s+[A-Za-z.,'&-]+)*)\s*,?\s*$`),
		BaseConfidence: 0.85,
		Format: func(g []string) string { return g[1] + " " + g[2] },
	},
	{
		ID:             "generic_v",
		Regexp:         regexp.MustCompile(`([A-Z][A-Za-z.,'&-]*(?:\s+[A-Za-z.,'&-]+)*?)\s+v\.?\s+([A-Z][A-Za-z.,'&-]*(?:\s+[A-Za-z.,'&-]+)*)\s*,?\s*$`),
		BaseConfidence: 0.75,
		Format: func(g []string) string { return g[1] + " v. " + g[2] },
	},
}

var dateAfter = regexp.MustCompile(`^[\s,]*\(\s*(\d{4})\s*\)`)

var actionWords = map[string]bool{
	"vacated": true, "affirmed": true, "reversed": true, "overruled": true, "held": true,
}

var smallJoiningWords = map[string]bool{
	"v.": true, "of": true, "the": true, "and": true, "in": true, "re": true, "a": true, "an": true,
}

// allCapsToken reports whether s is a run of uppercase letters/periods of
// at least two characters, used to detect document-title contamination.
var allCapsToken = regexp.MustCompile(`^[A-Z][A-Z.]+$`)

// Extractor runs the ranked pattern set against isolated contexts.
type Extractor struct{}

// New constructs a stateless Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract runs the pattern set against ctx.Backward (for the name) and
// ctx.Forward (for a trailing parenthetical date). A nil CaseName is a
// valid result, never an error.
func (x *Extractor) Extract(ctx models.IsolatedContext) models.ExtractedName {
	result := models.ExtractedName{CaseName: nil, Date: nil, Confidence: 0}

	for _, p := range patterns {
		m := p.Regexp.FindStringSubmatch(ctx.Backward)
		if m == nil {
			continue
		}

		raw := strings.TrimRight(p.Format(m), ", ")
		cleaned, removedChars := clean(raw)
		if cleaned == "" {
			break
		}

		confidence := p.BaseConfidence
		if removedChars {
			confidence *= 0.85
		}
		if len(cleaned) < 6 {
			confidence *= 0.7
		}

		name := normalize(cleaned)
		result.PatternID = p.ID
		result.Confidence = confidence
		if confidence >= 0.4 {
			result.CaseName = &name
		}
		break
	}

	if m := dateAfter.FindStringSubmatch(ctx.Forward); m != nil {
		if year, err := strconv.Atoi(m[1]); err == nil {
			result.Date = &year
		}
	}

	return result
}

// clean applies contamination cleaning: strip leading signal words,
// all-caps title runs, leading articles/punctuation, and reject action-word
// leads outright. removed reports whether any characters were stripped.
func clean(name string) (cleaned string, removed bool) {
	original := name
	name = strings.TrimSpace(name)

	// Strip leading signal words (longest phrase first, e.g. "see also"
	// before "see").
	lower := strings.ToLower(name)
	for _, sig := range []string{"see also", "citing", "quoting", "see", "compare", "accord", "cf.", "e.g."} {
		if strings.HasPrefix(lower, sig) {
			name = strings.TrimSpace(name[len(sig):])
			lower = strings.ToLower(name)
		}
	}

	// Strip a leading run of 4+ all-caps tokens (document-title bleed).
	tokens := strings.Fields(name)
	capRun := 0
	for capRun < len(tokens) && allCapsToken.MatchString(strings.TrimRight(tokens[capRun], ".,")) {
		capRun++
	}
	if capRun >= 4 {
		name = strings.Join(tokens[capRun:], " ")
	}

	// Strip leading articles and stray punctuation.
	name = strings.TrimLeft(name, " ,;:-")
	for _, article := range []string{"The ", "A ", "An "} {
		if strings.HasPrefix(name, article) {
			name = name[len(article):]
		}
	}
	name = strings.TrimSpace(name)

	if name == "" {
		return "", original != ""
	}

	leadToken := strings.ToLower(strings.TrimRight(strings.Fields(name)[0], ".,"))
	if actionWords[leadToken] {
		return "", true
	}

	return name, name != original
}

// normalize collapses whitespace, maps closed-table abbreviations, and
// Title Cases the result except small joining words.
func normalize(name string) string {
	name = strings.Join(strings.Fields(name), " ")

	tokens := strings.Split(name, " ")
	for i, t := range tokens {
		if repl, ok := caseNameAbbreviation(t); ok {
			tokens[i] = repl
		}
	}
	name = strings.Join(tokens, " ")

	tokens = strings.Split(name, " ")
	for i, t := range tokens {
		lower := strings.ToLower(t)
		if i != 0 && smallJoiningWords[lower] {
			tokens[i] = lower
			continue
		}
		tokens[i] = titleCaseToken(t)
	}

	return strings.Join(tokens, " ")
}

func caseNameAbbreviation(token string) (string, bool) {
	key := strings.ToLower(strings.TrimRight(token, ","))
	switch key {
	case "r.r.":
		return "Railroad", true
	case "ry.":
		return "Railway", true
	default:
		return "", false
	}
}

func titleCaseToken(token string) string {
	if token == "" {
		return token
	}
	if strings.ToLower(token) == "v." {
		return "v."
	}
	runes := []rune(token)
	runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
	return string(runes)
}
