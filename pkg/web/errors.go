package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/onsell/automation/pkg/campaign"
	"github.com/onsell/automation/pkg/graph"
	"github.com/onsell/automation/pkg/persistence"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps engine errors onto problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	var validationErr *graph.ValidationError

	switch {
	case errors.As(err, &validationErr):
		return badRequest(c, validationErr.Error())
	case errors.Is(err, campaign.ErrInvalidTransition):
		return conflict(c, err.Error())
	case persistence.IsAutomationNotFound(err):
		return notFound(c, "automation not found")
	case persistence.IsCampaignNotFound(err):
		return notFound(c, "campaign not found")
	case errors.Is(err, persistence.ErrExecutionLogNotFound):
		return notFound(c, "execution log entry not found")
	default:
		return internalError(c, err)
	}
}
