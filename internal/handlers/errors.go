package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/foodshare/internal/apperr"
	"github.com/example/foodshare/internal/lifecycle"
	"github.com/example/foodshare/internal/logging"
	"github.com/example/foodshare/internal/validation"
)

const internalErrorMessage = "internal server error"

// ErrorHandler renders every handler error as the JSON envelope. Causes of
// unexpected failures are logged and never sent to the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var (
		verr *validation.RequestValidationError
		terr *lifecycle.TransitionError
		aerr *apperr.Error
		ferr *fiber.Error
	)

	body := fiber.Map{"success": false}
	status := fiber.StatusInternalServerError

	switch {
	case errors.As(err, &verr):
		status = fiber.StatusBadRequest
		body["message"] = verr.Error()
		body["errors"] = verr.Fields
	case errors.As(err, &terr):
		status = fiber.StatusBadRequest
		body["message"] = terr.Error()
	case errors.As(err, &aerr):
		status = aerr.Kind.Status()
		body["message"] = aerr.Message
	case errors.As(err, &ferr):
		status = ferr.Code
		body["message"] = ferr.Message
	default:
		body["message"] = internalErrorMessage
	}

	if status >= fiber.StatusInternalServerError {
		body["message"] = internalErrorMessage
		logging.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(status).JSON(body)
}
