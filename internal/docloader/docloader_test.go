package docloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/casestrainer/casestrainer/pkg/models"
)

func TestLoadTextPassesThroughUnchanged(t *testing.T) {
	loader := New(time.Second)
	got, err := loader.Load(context.Background(), models.InputDescriptor{Kind: models.InputText}, "Smith v. Jones, 410 U.S. 113.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Smith v. Jones, 410 U.S. 113." {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestLoadTextRejectsEmpty(t *testing.T) {
	loader := New(time.Second)
	_, err := loader.Load(context.Background(), models.InputDescriptor{Kind: models.InputText}, "   ")
	if err == nil {
		t.Fatal("expected an error for empty submission text")
	}
}

func TestLoadFileRejectedAsUnsupported(t *testing.T) {
	loader := New(time.Second)
	_, err := loader.Load(context.Background(), models.InputDescriptor{Kind: models.InputFile, Name: "brief.pdf"}, "")
	if err == nil {
		t.Fatal("expected file submissions to be rejected")
	}
}

func TestLoadURLFetchesAndStripsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><script>evil()</script></head><body><p>Smith v. Jones, 410 U.S. 113.</p></body></html>`))
	}))
	defer srv.Close()

	loader := New(5 * time.Second)
	got, err := loader.Load(context.Background(), models.InputDescriptor{Kind: models.InputURL, URL: srv.URL}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "Smith v. Jones, 410 U.S. 113.") {
		t.Fatalf("expected extracted text to contain the case name, got %q", got)
	}
	if strings.Contains(got, "evil()") {
		t.Fatalf("expected script content to be stripped, got %q", got)
	}
}

func TestLoadURLPropagatesFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	loader := New(5 * time.Second)
	_, err := loader.Load(context.Background(), models.InputDescriptor{Kind: models.InputURL, URL: srv.URL}, "")
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}

func TestLoadURLMissingURLRejected(t *testing.T) {
	loader := New(time.Second)
	_, err := loader.Load(context.Background(), models.InputDescriptor{Kind: models.InputURL, URL: ""}, "")
	if err == nil {
		t.Fatal("expected an error for a url submission with no url")
	}
}
