// Package isolator implements the Context Isolator (§4.2): it bounds the
// text window around each citation occurrence so that downstream case-name
// extraction never bleeds across a citation boundary.
package isolator

import (
	"regexp"
	"strings"

	"github.com/casestrainer/casestrainer/pkg/models"
)

// maxWindow is the hard cap on a backward window, in characters.
const maxWindow = 200

// forwardWindow bounds the date-detection lookahead.
const forwardWindow = 16

// abbreviations suppress false sentence-boundary splits on a trailing ".".
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "v": true, "no": true,
	"vs": true, "inc": true, "co": true, "corp": true, "ltd": true,
	"jr": true, "sr": true, "st": true, "ste": true, "u.s": true,
}

var sentenceEnd = regexp.MustCompile(`[.?!]\s+[A-Z]`)
var newlinePair = regexp.MustCompile(`\n\s*\n`)

// Isolator computes IsolatedContext values for an ordered occurrence list.
type Isolator struct{}

// New constructs an Isolator. It holds no state; all inputs are per-call.
func New() *Isolator {
	return &Isolator{}
}

// Isolate returns one IsolatedContext per occurrence, in the same order.
// Distinct occurrences' backward windows never overlap except at exact
// boundaries (§4.2 invariant).
func (iso *Isolator) Isolate(text string, occs []models.CitationOccurrence) []models.IsolatedContext {
	out := make([]models.IsolatedContext, len(occs))
	prevEnd := 0

	for i, occ := range occs {
		sentenceStart := lastSentenceBoundaryBefore(text, occ.StartOffset)
		hardFloor := occ.StartOffset - maxWindow
		if hardFloor < 0 {
			hardFloor = 0
		}

		start := max3(prevEnd, sentenceStart, hardFloor)
		if start > occ.StartOffset {
			start = occ.StartOffset
		}

		forwardEnd := occ.EndOffset + forwardWindow
		if forwardEnd > len(text) {
			forwardEnd = len(text)
		}

		out[i] = models.IsolatedContext{
			OccurrenceIndex: i,
			Backward:        text[start:occ.StartOffset],
			BackwardStart:   start,
			BackwardEnd:     occ.StartOffset,
			Forward:         text[occ.EndOffset:forwardEnd],
			ForwardStart:    occ.EndOffset,
			ForwardEnd:      forwardEnd,
		}

		prevEnd = occ.EndOffset
	}

	return out
}

func max3(a, b, c int) int {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

// lastSentenceBoundaryBefore finds the offset just after the nearest
// sentence-ending punctuation before pos, skipping boundaries suppressed
// by a preceding abbreviation. Returns 0 if no boundary is found.
func lastSentenceBoundaryBefore(text string, pos int) int {
	if pos > len(text) {
		pos = len(text)
	}
	window := text[:pos]

	best := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(window, -1) {
		if loc[0] >= pos {
			continue
		}
		if isSuppressedByAbbreviation(window, loc[0]) {
			continue
		}
		// boundary sits just after the punctuation+whitespace run; the
		// capital letter at loc[1]-1 belongs to the next sentence.
		boundary := loc[1] - 1
		if boundary > best {
			best = boundary
		}
	}
	for _, loc := range newlinePair.FindAllStringIndex(window, -1) {
		if loc[1] > best && loc[1] <= pos {
			best = loc[1]
		}
	}
	return best
}

// isSuppressedByAbbreviation checks whether the token ending at the "."
// found at index dotIdx is a known abbreviation.
func isSuppressedByAbbreviation(text string, dotIdx int) bool {
	if dotIdx >= len(text) || text[dotIdx] != '.' {
		return false
	}
	start := dotIdx
	for start > 0 && (isLetter(text[start-1]) || text[start-1] == '.') {
		start--
	}
	token := strings.ToLower(text[start:dotIdx])
	return abbreviations[token]
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
