// Package citation implements the Citation Extractor and its normalization
// tables. The text is scanned once per citation form (U.S.C. et seq.,
// U.S.C., C.F.R., case reporters), not in a single pass; the matches are
// merged in start-offset order with exact offsets, and a match starting at
// an offset already taken by an earlier form is dropped.
package citation

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/casestrainer/casestrainer/pkg/models"
)

// signalPhrases are legal-writing cues that introduce a citation without
// being part of the case name (§4.1 edge cases, §4.3 contamination list).
var signalPhrases = []string{
	"see also", "see", "citing", "quoting", "compare", "accord", "cf.", "e.g.",
	"id.", "supra",
}

// Extractor scans text for citation occurrences, one scan per form.
type Extractor struct {
	casePattern     *regexp.Regexp
	uscPattern      *regexp.Regexp
	uscEtSeqPattern *regexp.Regexp
	cfrPattern      *regexp.Regexp
	signalPattern   *regexp.Regexp
}

// NewExtractor compiles the closed pattern set once.
func NewExtractor() *Extractor {
	caseRe := regexp.MustCompile(
		`(\d{1,4})\s+(` + reporterAlternation() + `)\s+(\d{1,5})(?:\s*,\s*(\d{1,5}))?`,
	)
	uscEtSeq := regexp.MustCompile(`(\d+)\s+U\.?S\.?C\.?\s+(?:Section|Sec\.?|§)\s*(\d+[a-zA-Z]?)\s+et\s+seq\.?`)
	usc := regexp.MustCompile(`(\d+)\s+U\.?S\.?C\.?\s+§§?\s*(\d+[a-zA-Z]?)`)
	cfr := regexp.MustCompile(`(\d+)\s+C\.?F\.?R\.?\s+(?:Part\s+|§\s*)?(\d+)(?:\.(\d+))?`)

	var signalAlts []string
	for _, s := range signalPhrases {
		signalAlts = append(signalAlts, regexp.QuoteMeta(s))
	}
	signalPattern := regexp.MustCompile(`(?i)(` + strings.Join(signalAlts, "|") + `)\s*$`)

	return &Extractor{
		casePattern:     caseRe,
		uscPattern:      usc,
		uscEtSeqPattern: uscEtSeq,
		cfrPattern:      cfr,
		signalPattern:   signalPattern,
	}
}

// Extract returns ordered, non-overlapping occurrences for text. Extraction
// never fails: pathological input yields fewer or zero occurrences, never
// an error (§7 propagation rule for the extraction stage).
func (e *Extractor) Extract(text string) []models.CitationOccurrence {
	matched := make(map[int]bool)
	var occs []models.CitationOccurrence

	occs = append(occs, e.extractUSCEtSeq(text, matched)...)
	occs = append(occs, e.extractUSC(text, matched)...)
	occs = append(occs, e.extractCFR(text, matched)...)
	occs = append(occs, e.extractCases(text, matched)...)

	sort.Slice(occs, func(i, j int) bool { return occs[i].StartOffset < occs[j].StartOffset })

	e.tagParentheticals(text, occs)
	e.tagSignalPhrases(text, occs)

	return occs
}

func (e *Extractor) extractUSCEtSeq(text string, matched map[int]bool) []models.CitationOccurrence {
	var occs []models.CitationOccurrence
	for _, m := range e.uscEtSeqPattern.FindAllStringSubmatchIndex(text, -1) {
		if matched[m[0]] {
			continue
		}
		matched[m[0]] = true
		occs = append(occs, models.CitationOccurrence{
			RawText:        text[m[0]:m[1]],
			NormalizedText: NormalizeCitationText(text[m[0]:m[1]]),
			Kind:           models.KindStatute,
			StartOffset:    m[0],
			EndOffset:      m[1],
		})
	}
	return occs
}

func (e *Extractor) extractUSC(text string, matched map[int]bool) []models.CitationOccurrence {
	var occs []models.CitationOccurrence
	for _, m := range e.uscPattern.FindAllStringSubmatchIndex(text, -1) {
		if matched[m[0]] {
			continue
		}
		matched[m[0]] = true
		occs = append(occs, models.CitationOccurrence{
			RawText:        text[m[0]:m[1]],
			NormalizedText: NormalizeCitationText(text[m[0]:m[1]]),
			Kind:           models.KindStatute,
			StartOffset:    m[0],
			EndOffset:      m[1],
		})
	}
	return occs
}

func (e *Extractor) extractCFR(text string, matched map[int]bool) []models.CitationOccurrence {
	var occs []models.CitationOccurrence
	for _, m := range e.cfrPattern.FindAllStringSubmatchIndex(text, -1) {
		if matched[m[0]] {
			continue
		}
		matched[m[0]] = true
		occs = append(occs, models.CitationOccurrence{
			RawText:        text[m[0]:m[1]],
			NormalizedText: NormalizeCitationText(text[m[0]:m[1]]),
			Kind:           models.KindRegulation,
			StartOffset:    m[0],
			EndOffset:      m[1],
		})
	}
	return occs
}

func (e *Extractor) extractCases(text string, matched map[int]bool) []models.CitationOccurrence {
	var occs []models.CitationOccurrence
	for _, m := range e.casePattern.FindAllStringSubmatchIndex(text, -1) {
		if matched[m[0]] {
			continue
		}
		matched[m[0]] = true

		volume, _ := strconv.Atoi(text[m[2]:m[3]])
		reporterRaw := text[m[4]:m[5]]
		page, _ := strconv.Atoi(text[m[6]:m[7]])

		var pinCite *int
		if m[8] != -1 {
			if p, err := strconv.Atoi(text[m[8]:m[9]]); err == nil {
				pinCite = &p
			}
		}

		occs = append(occs, models.CitationOccurrence{
			RawText:        text[m[0]:m[1]],
			NormalizedText: NormalizeCitationText(text[m[0]:m[1]]),
			Reporter:       canonicalReporter(reporterRaw),
			Volume:         volume,
			Page:           page,
			PinCite:        pinCite,
			Kind:           models.KindCase,
			StartOffset:    m[0],
			EndOffset:      m[1],
		})
	}
	return occs
}

// tagParentheticals marks occurrences that sit inside an unmatched "(" that
// opened since the previous occurrence's end — i.e. a citation wholly
// inside "(...)" immediately following the prior citation.
func (e *Extractor) tagParentheticals(text string, occs []models.CitationOccurrence) {
	prevEnd := 0
	for i := range occs {
		between := text[prevEnd:occs[i].StartOffset]
		if strings.Count(between, "(") > strings.Count(between, ")") {
			occs[i].Parenthetical = true
		}
		prevEnd = occs[i].EndOffset
	}
}

// tagSignalPhrases records a signal phrase immediately preceding the
// occurrence, if present, trimming trailing punctuation/whitespace first.
func (e *Extractor) tagSignalPhrases(text string, occs []models.CitationOccurrence) {
	for i := range occs {
		before := text[:occs[i].StartOffset]
		before = strings.TrimRight(before, " \t\n,;")
		if m := e.signalPattern.FindStringSubmatch(before); m != nil {
			occs[i].SignalPhrase = strings.ToLower(strings.TrimSpace(m[1]))
		}
	}
}
