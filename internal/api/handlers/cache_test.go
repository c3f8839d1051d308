package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casestrainer/casestrainer/internal/cache"
	"github.com/casestrainer/casestrainer/pkg/models"
)

func TestClearUnverifiedReportsClearedCount(t *testing.T) {
	backend := cache.NewMemoryCache(&cache.Config{MaxKeys: 1000, TTL: time.Hour})
	vc := cache.NewVerificationCache(backend)

	ctx := context.Background()
	require.NoError(t, vc.Store(ctx, "fp-1", models.CacheEntry{VerifiedFlag: false}))
	require.NoError(t, vc.Store(ctx, "fp-2", models.CacheEntry{VerifiedFlag: false}))
	require.NoError(t, vc.Store(ctx, "fp-3", models.CacheEntry{VerifiedFlag: true}))

	app := newTestApp()
	app.Post("/api/cache/clear-unverified", ClearUnverified(vc))

	req := httptest.NewRequest("POST", "/api/cache/clear-unverified", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body["cleared"])
}
