package handlers

import (
	"github.com/gofiber/fiber/v2"

	cserrors "github.com/casestrainer/casestrainer/internal/errors"
	"github.com/casestrainer/casestrainer/internal/jobs"
	"github.com/casestrainer/casestrainer/pkg/models"
)

// TaskStatus handles GET /api/task_status/:job_id.
func TaskStatus(runtime *jobs.Runtime) fiber.Handler {
	return func(c *fiber.Ctx) error {
		jobID := c.Params("job_id")
		if jobID == "" {
			return cserrors.Input("job_id is required", nil)
		}

		job, err := runtime.Status(c.Context(), jobID)
		if err != nil {
			return err
		}

		body := fiber.Map{
			"status":              job.State,
			"progress":            job.Progress,
			"current_step":        job.CurrentStep,
			"eta_seconds":         job.ETASeconds,
			"total_citations":     job.TotalCitations,
			"processed_citations": job.ProcessedCitations,
		}
		if job.State == models.JobCompleted && job.Result != nil {
			body["results"] = job.Result
		}
		if job.State == models.JobFailed && job.Error != nil {
			body["error"] = job.Error
		}

		return c.JSON(body)
	}
}
