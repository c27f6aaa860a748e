package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/appforge/flowcore/pkg/runfail"
)

var errMissingToken = runfail.New(runfail.CodeInvalidToken, "missing bearer token")

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func unauthorized(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(401).
		WithInstance(c.Path()).
		WithType("unauthorized").
		WithDetail(detail)

	return c.Status(fiber.StatusUnauthorized).JSON(problem)
}

func forbidden(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(403).
		WithInstance(c.Path()).
		WithType("access_denied").
		WithDetail(detail)

	return c.Status(fiber.StatusForbidden).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func tooManyRequests(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(429).
		WithInstance(c.Path()).
		WithType("rate_limited").
		WithDetail(detail)

	return c.Status(fiber.StatusTooManyRequests).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleRunError maps the failure taxonomy onto HTTP statuses.
func handleRunError(c fiber.Ctx, err error) error {
	switch runfail.CodeOf(err) {
	case runfail.CodeAccessDenied:
		return forbidden(c, err.Error())
	case runfail.CodeValidation, runfail.CodeInvalidConfig:
		return badRequest(c, err.Error())
	case runfail.CodeRateLimited:
		return tooManyRequests(c, err.Error())
	case runfail.CodeTokenExpired, runfail.CodeTokenRevoked, runfail.CodeInvalidToken:
		return unauthorized(c, err.Error())
	case runfail.CodeTimeout:
		problem := problems.NewStatusProblem(504).
			WithInstance(c.Path()).
			WithType("timeout").
			WithDetail(err.Error())

		return c.Status(fiber.StatusGatewayTimeout).JSON(problem)
	default:
		return internalError(c, err)
	}
}
