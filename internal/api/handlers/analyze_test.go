package handlers

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casestrainer/casestrainer/internal/api/middleware"
	"github.com/casestrainer/casestrainer/internal/cache"
	"github.com/casestrainer/casestrainer/internal/citationdb"
	"github.com/casestrainer/casestrainer/internal/config"
	"github.com/casestrainer/casestrainer/internal/docloader"
	"github.com/casestrainer/casestrainer/internal/jobs"
	"github.com/casestrainer/casestrainer/internal/kvstore"
	"github.com/casestrainer/casestrainer/internal/observability"
	"github.com/casestrainer/casestrainer/internal/queue"
	"github.com/casestrainer/casestrainer/internal/verify"
)

func newTestRuntime(t *testing.T) *jobs.Runtime {
	t.Helper()
	runtime, _ := newTestRuntimeWithQueue(t)
	return runtime
}

func newTestRuntimeWithQueue(t *testing.T) (*jobs.Runtime, queue.Queue) {
	t.Helper()

	store := kvstore.NewMemoryStore()
	q := queue.NewMemoryQueue()
	backend := cache.NewMemoryCache(&cache.Config{MaxKeys: 1000, TTL: time.Hour})
	vc := cache.NewVerificationCache(backend)
	db := citationdb.NewFakeClient(100)
	verifierCfg := config.VerifierConfig{
		RateLimitPerHour: 36000,
		Burst:            10,
		RetryBaseDelay:   time.Millisecond,
		RetryMaxDelay:    10 * time.Millisecond,
		RetryMaxAttempts: 2,
	}
	verifier := verify.New(db, vc, verifierCfg, nil)
	loader := docloader.New(5 * time.Second)

	return jobs.New(store, q, vc, loader, verifier, time.Minute, 10*time.Second, nil, nil), q
}

func newTestApp() *fiber.App {
	logger := observability.NewLogger("error", "json")
	return fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
	})
}

func TestAnalyzeSubmitsTextJob(t *testing.T) {
	runtime := newTestRuntime(t)
	app := newTestApp()
	app.Post("/api/analyze", Analyze(runtime))

	body := []byte(`{"type":"text","text":"Roe v. Wade, 410 U.S. 113 (1973)."}`)
	req := httptest.NewRequest("POST", "/api/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
}

func TestAnalyzeRejectsEmptyText(t *testing.T) {
	runtime := newTestRuntime(t)
	app := newTestApp()
	app.Post("/api/analyze", Analyze(runtime))

	body := []byte(`{"type":"text","text":""}`)
	req := httptest.NewRequest("POST", "/api/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeRejectsUnknownType(t *testing.T) {
	runtime := newTestRuntime(t)
	app := newTestApp()
	app.Post("/api/analyze", Analyze(runtime))

	body := []byte(`{"type":"carrier-pigeon"}`)
	req := httptest.NewRequest("POST", "/api/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeRejectsMalformedBody(t *testing.T) {
	runtime := newTestRuntime(t)
	app := newTestApp()
	app.Post("/api/analyze", Analyze(runtime))

	req := httptest.NewRequest("POST", "/api/analyze", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
