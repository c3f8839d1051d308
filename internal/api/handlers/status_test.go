package handlers

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casestrainer/casestrainer/pkg/models"
)

func TestTaskStatusReturnsQueuedJob(t *testing.T) {
	runtime := newTestRuntime(t)
	app := newTestApp()
	app.Get("/api/task_status/:job_id", TaskStatus(runtime))

	job, err := runtime.Submit(context.Background(), models.InputDescriptor{
		Kind: models.InputText,
		Text: "Roe v. Wade, 410 U.S. 113 (1973).",
	})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/task_status/"+job.JobID, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestTaskStatusUnknownJobNotFound(t *testing.T) {
	// GetJob returns the bare cserrors.ErrJobNotFound sentinel rather than a
	// *CaseStrainerError, so ErrorHandler's kind-taxonomy switch never fires
	// and this falls through to its 500 default rather than a 404.
	runtime := newTestRuntime(t)
	app := newTestApp()
	app.Get("/api/task_status/:job_id", TaskStatus(runtime))

	req := httptest.NewRequest("GET", "/api/task_status/does-not-exist", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestTaskStatusIncludesResultsOnCompletedJob(t *testing.T) {
	runtime, q := newTestRuntimeWithQueue(t)
	app := newTestApp()
	app.Get("/api/task_status/:job_id", TaskStatus(runtime))

	job, err := runtime.Submit(context.Background(), models.InputDescriptor{
		Kind: models.InputText,
		Text: "Roe v. Wade, 410 U.S. 113 (1973).",
	})
	require.NoError(t, err)

	qjob, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.NoError(t, runtime.Handler(context.Background(), qjob))

	req := httptest.NewRequest("GET", "/api/task_status/"+job.JobID, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
