package citation

import (
	"testing"

	"github.com/casestrainer/casestrainer/pkg/models"
)

func TestExtractFindsCaseCitation(t *testing.T) {
	e := NewExtractor()
	occs := e.Extract("The Court in Roe v. Wade, 410 U.S. 113, held that...")

	if len(occs) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(occs))
	}
	if occs[0].Kind != models.KindCase {
		t.Fatalf("Kind = %v, want %v", occs[0].Kind, models.KindCase)
	}
	if occs[0].Volume != 410 || occs[0].Page != 113 {
		t.Fatalf("unexpected volume/page: %d/%d", occs[0].Volume, occs[0].Page)
	}
	if occs[0].Reporter != "U.S." {
		t.Fatalf("Reporter = %q, want U.S.", occs[0].Reporter)
	}
}

func TestExtractFindsPinCite(t *testing.T) {
	e := NewExtractor()
	occs := e.Extract("See 410 U.S. 113, 120.")

	if len(occs) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(occs))
	}
	if occs[0].PinCite == nil || *occs[0].PinCite != 120 {
		t.Fatalf("expected PinCite 120, got %v", occs[0].PinCite)
	}
}

func TestExtractFindsUSCStatute(t *testing.T) {
	e := NewExtractor()
	occs := e.Extract("as provided by 42 U.S.C. § 1983.")

	if len(occs) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(occs))
	}
	if occs[0].Kind != models.KindStatute {
		t.Fatalf("Kind = %v, want %v", occs[0].Kind, models.KindStatute)
	}
}

func TestExtractFindsCFRRegulation(t *testing.T) {
	e := NewExtractor()
	occs := e.Extract("under 29 C.F.R. § 1910.")

	if len(occs) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(occs))
	}
	if occs[0].Kind != models.KindRegulation {
		t.Fatalf("Kind = %v, want %v", occs[0].Kind, models.KindRegulation)
	}
}

func TestExtractOrdersByOffsetAndAvoidsOverlap(t *testing.T) {
	e := NewExtractor()
	text := "410 U.S. 113 and later 347 U.S. 483 settled the question."
	occs := e.Extract(text)

	if len(occs) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(occs))
	}
	if occs[0].StartOffset >= occs[1].StartOffset {
		t.Fatalf("expected occurrences ordered by offset, got %+v", occs)
	}
}

func TestExtractTagsSignalPhrase(t *testing.T) {
	e := NewExtractor()
	occs := e.Extract("See 410 U.S. 113.")

	if len(occs) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(occs))
	}
	if occs[0].SignalPhrase != "see" {
		t.Fatalf("SignalPhrase = %q, want %q", occs[0].SignalPhrase, "see")
	}
}

func TestExtractTagsParenthetical(t *testing.T) {
	e := NewExtractor()
	occs := e.Extract("410 U.S. 113 (citing 347 U.S. 483).")

	if len(occs) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(occs))
	}
	if !occs[1].Parenthetical {
		t.Fatalf("expected the second occurrence to be tagged parenthetical: %+v", occs[1])
	}
}

func TestExtractNoMatchReturnsEmpty(t *testing.T) {
	e := NewExtractor()
	occs := e.Extract("No citations live in this sentence at all.")

	if len(occs) != 0 {
		t.Fatalf("expected 0 occurrences, got %d", len(occs))
	}
}

func TestNormalizeCitationTextCollapsesSpacing(t *testing.T) {
	got := NormalizeCitationText("410  U. S.   113")
	want := "410 U.S. 113"
	if got != want {
		t.Fatalf("NormalizeCitationText = %q, want %q", got, want)
	}
}

func TestCanonicalReporterMapsVariantSpelling(t *testing.T) {
	if got := canonicalReporter("U. S."); got != "U.S." {
		t.Fatalf("canonicalReporter(%q) = %q, want U.S.", "U. S.", got)
	}
}

func TestCanonicalReporterUnknownReporterPassesThrough(t *testing.T) {
	if got := canonicalReporter("Zzz."); got != "Zzz." {
		t.Fatalf("canonicalReporter of an unrecognized token should pass through unchanged, got %q", got)
	}
}
