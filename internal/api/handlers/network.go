package handlers

import (
	"github.com/gofiber/fiber/v2"

	cserrors "github.com/casestrainer/casestrainer/internal/errors"
	"github.com/casestrainer/casestrainer/internal/jobs"
	"github.com/casestrainer/casestrainer/internal/network"
	"github.com/casestrainer/casestrainer/pkg/models"
)

// CitationNetwork handles GET /api/network/:job_id: a side query over a
// completed job's clusters, additive to task_status and never consulted by
// clustering or verification.
func CitationNetwork(runtime *jobs.Runtime) fiber.Handler {
	return func(c *fiber.Ctx) error {
		jobID := c.Params("job_id")
		if jobID == "" {
			return cserrors.Input("job_id is required", nil)
		}

		job, err := runtime.Status(c.Context(), jobID)
		if err != nil {
			return err
		}
		if job.State != models.JobCompleted || job.Result == nil {
			return cserrors.Input("job has no network view until it completes", nil)
		}

		graph := network.Build(job.Result.Clusters)
		return c.JSON(fiber.Map{
			"nodes":       graph.Nodes,
			"edges":       graph.Edges,
			"most_cited":  graph.MostInfluential(5),
		})
	}
}
