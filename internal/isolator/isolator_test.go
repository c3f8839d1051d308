package isolator

import (
	"strings"
	"testing"

	"github.com/casestrainer/casestrainer/pkg/models"
)

func occAt(start, end int) models.CitationOccurrence {
	return models.CitationOccurrence{StartOffset: start, EndOffset: end}
}

func TestIsolateCapsBackwardWindowAtMaxWindow(t *testing.T) {
	prefix := strings.Repeat("a ", 150) // 300 chars, no sentence punctuation
	text := prefix + "410 U.S. 113"
	occ := occAt(len(prefix), len(prefix)+len("410 U.S. 113"))

	iso := New()
	ctx := iso.Isolate(text, []models.CitationOccurrence{occ})[0]

	if ctx.BackwardStart != len(prefix)-maxWindow {
		t.Fatalf("BackwardStart = %d, want %d", ctx.BackwardStart, len(prefix)-maxWindow)
	}
	if len(ctx.Backward) != maxWindow {
		t.Fatalf("Backward window length = %d, want %d", len(ctx.Backward), maxWindow)
	}
}

func TestIsolateStopsAtSentenceBoundary(t *testing.T) {
	text := "First sentence ends here. Second sentence has 410 U.S. 113 in it."
	start := strings.Index(text, "410")
	end := strings.Index(text, "113") + len("113")
	occ := occAt(start, end)

	iso := New()
	ctx := iso.Isolate(text, []models.CitationOccurrence{occ})[0]

	if strings.Contains(ctx.Backward, "First sentence") {
		t.Fatalf("expected the prior sentence to be excluded from the backward window, got %q", ctx.Backward)
	}
	if !strings.Contains(ctx.Backward, "Second sentence") {
		t.Fatalf("expected the current sentence to be included, got %q", ctx.Backward)
	}
}

func TestIsolateAbbreviationDoesNotSplitSentence(t *testing.T) {
	text := "Dr. Smith cited 410 U.S. 113."
	start := strings.Index(text, "410")
	end := strings.Index(text, "113") + len("113")
	occ := occAt(start, end)

	iso := New()
	ctx := iso.Isolate(text, []models.CitationOccurrence{occ})[0]

	if ctx.BackwardStart != 0 {
		t.Fatalf("expected the abbreviation \"Dr.\" not to be treated as a sentence boundary, BackwardStart = %d", ctx.BackwardStart)
	}
}

func TestIsolateConsecutiveOccurrencesDoNotOverlap(t *testing.T) {
	text := "410 U.S. 113 and 347 U.S. 483 are cited together."
	firstEnd := strings.Index(text, "113") + len("113")
	secondStart := strings.Index(text, "347")
	secondEnd := strings.Index(text, "483") + len("483")

	occs := []models.CitationOccurrence{
		occAt(0, firstEnd),
		occAt(secondStart, secondEnd),
	}

	iso := New()
	ctxs := iso.Isolate(text, occs)

	if ctxs[1].BackwardStart != firstEnd {
		t.Fatalf("expected the second occurrence's backward window to start where the first ended (%d), got %d", firstEnd, ctxs[1].BackwardStart)
	}
}
