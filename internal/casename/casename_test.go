package casename

import (
	"testing"

	"github.com/casestrainer/casestrainer/pkg/models"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name         string
		backward     string
		forward      string
		wantName     string
		wantNil      bool
		wantDate     *int
	}{
		{
			name:     "state v defendant",
			backward: "as the court held in State v. Smith,",
			wantName: "State v. Smith",
		},
		{
			name:     "united states v defendant with trailing date",
			backward: "see United States v. Jones",
			forward:  " (1987) for the governing rule",
			wantName: "United States v. Jones",
			wantDate: intPtr(1987),
		},
		{
			name:     "in re matter",
			backward: "the petition in In re Estate of Doe",
			wantName: "In re Estate of Doe",
		},
		{
			name:     "signal word stripped",
			backward: "See also Smith v. Jones",
			wantName: "Smith v. Jones",
		},
		{
			name:     "action word lead rejected",
			backward: "Affirmed Smith v. Jones",
			wantNil:  true,
		},
		{
			name:     "no match",
			backward: "this text has no case name pattern in it at all",
			wantNil:  true,
		},
	}

	x := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := models.IsolatedContext{Backward: tt.backward, Forward: tt.forward}
			got := x.Extract(ctx)

			if tt.wantNil {
				if got.CaseName != nil {
					t.Fatalf("expected nil CaseName, got %q", *got.CaseName)
				}
				return
			}

			if got.CaseName == nil {
				t.Fatalf("expected CaseName %q, got nil", tt.wantName)
			}
			if *got.CaseName != tt.wantName {
				t.Fatalf("CaseName = %q, want %q", *got.CaseName, tt.wantName)
			}
			if tt.wantDate != nil {
				if got.Date == nil || *got.Date != *tt.wantDate {
					t.Fatalf("Date = %v, want %d", got.Date, *tt.wantDate)
				}
			}
		})
	}
}

func TestExtractUnmatchableFragmentOmitsName(t *testing.T) {
	x := New()
	ctx := models.IsolatedContext{Backward: "XX"}
	got := x.Extract(ctx)
	if got.CaseName != nil {
		t.Fatalf("expected no extraction from an unmatchable fragment, got %q", *got.CaseName)
	}
}

func intPtr(v int) *int { return &v }
