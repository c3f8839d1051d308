package citationdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClientLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Fatalf("expected bearer auth header, got %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(LookupResult{
			Found:         true,
			CanonicalName: "Roe v. Wade",
			CanonicalDate: 1973,
			URL:           "https://example.invalid/410us113",
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-key", 5*time.Second)
	result, err := client.Lookup(context.Background(), "410 U.S. 113")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Found || result.CanonicalName != "Roe v. Wade" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestHTTPClientLookupErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", time.Second)
	_, err := client.Lookup(context.Background(), "410 U.S. 113")
	if err == nil {
		t.Fatal("expected an error for a 429 response")
	}

	statusErr, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("expected *StatusError, got %T", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("StatusCode = %d, want 429", statusErr.StatusCode)
	}
	if statusErr.RetryAfter != 30*time.Second {
		t.Fatalf("RetryAfter = %v, want 30s", statusErr.RetryAfter)
	}
}

func TestHTTPClientRemainingQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]int{"remaining": 42})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", time.Second)
	remaining, err := client.RemainingQuota(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remaining != 42 {
		t.Fatalf("remaining = %d, want 42", remaining)
	}
}

func TestFakeClientSeedAndQuota(t *testing.T) {
	fake := NewFakeClient(1)
	fake.Seed("410 U.S. 113", LookupResult{Found: true, CanonicalName: "Roe v. Wade"})

	result, err := fake.Lookup(context.Background(), "410 U.S. 113")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Found || result.CanonicalName != "Roe v. Wade" {
		t.Fatalf("unexpected result: %+v", result)
	}

	if _, err := fake.Lookup(context.Background(), "999 U.S. 1"); err == nil {
		t.Fatal("expected quota exhaustion error on the second lookup")
	}
}

func TestFakeClientUnseededCitationNotFound(t *testing.T) {
	fake := NewFakeClient(10)
	result, err := fake.Lookup(context.Background(), "unknown citation")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Found {
		t.Fatal("expected Found=false for an unseeded citation")
	}
}
