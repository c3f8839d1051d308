package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// Base URL for the API server - set via environment variable or use default
	baseURL = "http://localhost:8080"
)

// TestHealthEndpoint verifies the health check endpoint returns 200 OK
func TestHealthEndpoint(t *testing.T) {
	t.Skip("Requires a running casestrainer-api instance")

	resp, err := http.Get(baseURL + "/health")
	require.NoError(t, err, "Failed to call health endpoint")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "Health check should return 200 OK")

	var health map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&health)
	require.NoError(t, err, "Failed to decode health response")

	assert.Equal(t, "healthy", health["status"], "Status should be healthy")
}

// TestMetricsEndpoint verifies Prometheus metrics are exposed
func TestMetricsEndpoint(t *testing.T) {
	t.Skip("Requires a running casestrainer-api instance")

	resp, err := http.Get(baseURL + "/metrics")
	require.NoError(t, err, "Failed to call metrics endpoint")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "Metrics endpoint should return 200 OK")
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain", "Metrics should be in Prometheus format")
}

// TestAnalyzeTextSubmission verifies a text submission is accepted and
// returns a job_id the client can poll.
func TestAnalyzeTextSubmission(t *testing.T) {
	t.Skip("Requires a running casestrainer-api instance")

	body, err := json.Marshal(map[string]string{
		"type": "text",
		"text": "See Brown v. Board of Education, 347 U.S. 483 (1954).",
	})
	require.NoError(t, err)

	resp, err := http.Post(baseURL+"/api/analyze", "application/json", bytes.NewReader(body))
	require.NoError(t, err, "Failed to call analyze endpoint")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode, "Analyze should return 202 Accepted")

	var submitted map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&submitted)
	require.NoError(t, err, "Failed to decode analyze response")
	assert.NotEmpty(t, submitted["job_id"], "Response should include a job_id")
}

// TestAnalyzeRejectsEmptyText verifies the validator rejects a text
// submission with no body text.
func TestAnalyzeRejectsEmptyText(t *testing.T) {
	t.Skip("Requires a running casestrainer-api instance")

	body, err := json.Marshal(map[string]string{"type": "text", "text": ""})
	require.NoError(t, err)

	resp, err := http.Post(baseURL+"/api/analyze", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "Empty text should be rejected")
}

// TestTaskStatusPolling verifies we can poll a submitted job to completion.
func TestTaskStatusPolling(t *testing.T) {
	t.Skip("Requires a running casestrainer-api instance and a submitted job")

	jobID := "test-job-id-456"

	timeout := time.After(30 * time.Second)
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			t.Fatal("Job did not complete within timeout")
		case <-ticker.C:
			resp, err := http.Get(baseURL + "/api/task_status/" + jobID)
			require.NoError(t, err)
			defer resp.Body.Close()

			var status map[string]interface{}
			err = json.NewDecoder(resp.Body).Decode(&status)
			require.NoError(t, err)

			state := status["status"].(string)
			if state == "completed" || state == "failed" {
				t.Logf("Job finished with status: %s", state)
				return
			}
		}
	}
}

// TestCacheClearUnverified verifies the admin cache-clearing endpoint.
func TestCacheClearUnverified(t *testing.T) {
	t.Skip("Requires a running casestrainer-api instance")

	resp, err := http.Post(baseURL+"/api/cache/clear-unverified", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&result)
	require.NoError(t, err)
	_, ok := result["cleared"]
	assert.True(t, ok, "Response should report how many entries were cleared")
}

// TestCORSHeaders verifies CORS headers are set correctly
func TestCORSHeaders(t *testing.T) {
	t.Skip("Requires a running casestrainer-api instance")

	req, err := http.NewRequest("OPTIONS", baseURL+"/api/health", nil)
	require.NoError(t, err)

	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")

	client := &http.Client{}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode, "OPTIONS request should return 204")
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"), "CORS headers should be present")
}

// TestRateLimiting verifies rate limiting is enforced on the health endpoint
func TestRateLimiting(t *testing.T) {
	t.Skip("Rate limiting configuration may vary by environment")

	const requestCount = 100
	statusCodes := make(map[int]int)

	for i := 0; i < requestCount; i++ {
		resp, err := http.Get(baseURL + "/api/health")
		if err != nil {
			continue
		}
		statusCodes[resp.StatusCode]++
		resp.Body.Close()
	}

	assert.Greater(t, statusCodes[http.StatusTooManyRequests], 0,
		"Rate limiting should trigger 429 responses")
}
