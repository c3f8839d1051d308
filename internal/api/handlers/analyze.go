package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	cserrors "github.com/casestrainer/casestrainer/internal/errors"
	"github.com/casestrainer/casestrainer/internal/jobs"
	"github.com/casestrainer/casestrainer/pkg/models"
)

var validate = validator.New()

// AnalyzeRequest is the /api/analyze request body for text/url submissions.
// File submissions (multipart, type=file) are out of scope per the spec's
// non-goals on file-format decoding and are rejected by the DocumentLoader.
type AnalyzeRequest struct {
	Type string `json:"type" validate:"required,oneof=text url file"`
	Text string `json:"text,omitempty" validate:"required_if=Type text"`
	URL  string `json:"url,omitempty" validate:"required_if=Type url,omitempty,url"`
}

// Analyze handles POST /api/analyze: validates the request, submits a job,
// and returns 202 with the job_id for the client to poll via task_status.
func Analyze(runtime *jobs.Runtime) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req AnalyzeRequest
		if err := c.BodyParser(&req); err != nil {
			return cserrors.Input("malformed request body", err)
		}
		if err := validate.Struct(req); err != nil {
			return cserrors.Input("request validation failed", err)
		}

		descriptor := models.InputDescriptor{}
		switch req.Type {
		case "text":
			descriptor.Kind = models.InputText
			descriptor.Text = req.Text
			descriptor.SizeHint = len(req.Text)
		case "url":
			descriptor.Kind = models.InputURL
			descriptor.URL = req.URL
		default:
			descriptor.Kind = models.InputFile
		}

		job, err := runtime.Submit(c.Context(), descriptor)
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": job.JobID})
	}
}
