package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/dukex/oneapi/pkg/binding"
	"github.com/dukex/oneapi/pkg/broker"
	"github.com/dukex/oneapi/pkg/graph"
	"github.com/dukex/oneapi/pkg/marker"
	"github.com/dukex/oneapi/pkg/persistence"
	"github.com/dukex/oneapi/pkg/schema"
	"github.com/dukex/oneapi/pkg/services"
)

func problem(c fiber.Ctx, status int, kind, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(status).JSON(p)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

// handleServiceError maps pipeline errors to problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	detail := services.Detail(err)

	switch {
	case graph.IsFormatInvalid(err):
		return problem(c, fiber.StatusBadRequest, "invalid_format", detail)
	case services.IsFormatUnsupported(err):
		return problem(c, fiber.StatusBadRequest, "unsupported_format", detail)
	case services.IsValidationError(err):
		return problem(c, fiber.StatusBadRequest, "validation_error", detail)
	case persistence.IsWorkflowNotFound(err):
		return problem(c, fiber.StatusNotFound, "workflow_not_found", detail)
	case services.IsConflictError(err):
		return problem(c, fiber.StatusConflict, "conflict", detail)
	case schema.IsSchemaUnavailable(err):
		return problem(c, fiber.StatusInternalServerError, "schema_unavailable", detail)
	case binding.IsMediaUploadFailed(err):
		return problem(c, fiber.StatusInternalServerError, "media_upload_failed", detail)
	case marker.IsMarkerMalformed(err):
		return problem(c, fiber.StatusInternalServerError, "marker_malformed", detail)
	case broker.IsSubmissionFailed(err):
		return problem(c, fiber.StatusInternalServerError, "submission_failed", detail)
	case broker.IsPollCancelled(err):
		return problem(c, fiber.StatusServiceUnavailable, "execution_cancelled", detail)
	default:
		p := problems.NewStatusProblem(fiber.StatusInternalServerError).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithError(err)

		return c.Status(fiber.StatusInternalServerError).JSON(p)
	}
}
