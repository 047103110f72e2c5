package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"github.com/example/foodshare/internal/apperr"
	"github.com/example/foodshare/internal/lifecycle"
	"github.com/example/foodshare/internal/validation"
)

func TestErrorHandler_Statuses(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "validation",
			err:     validation.Errorf("title", "title is required"),
			status:  fiber.StatusBadRequest,
			message: "title is required",
		},
		{
			name:    "reserve conflict",
			err:     fmt.Errorf("reserve: %w", apperr.Conflict("food listing is not available (status: %s)", "reserved")),
			status:  fiber.StatusBadRequest,
			message: "food listing is not available (status: reserved)",
		},
		{
			name:   "bad transition",
			err:    &lifecycle.TransitionError{Resource: "donation", From: "reserved", To: "completed"},
			status: fiber.StatusBadRequest,
		},
		{
			name:    "forbidden",
			err:     apperr.Forbidden("not authorized to delete this listing"),
			status:  fiber.StatusForbidden,
			message: "not authorized to delete this listing",
		},
		{
			name:    "not found",
			err:     apperr.NotFound("food listing"),
			status:  fiber.StatusNotFound,
			message: "food listing not found",
		},
		{
			name:    "wrapped cause stays hidden",
			err:     apperr.Wrap(errors.New("duplicate key value"), apperr.KindConflict, "email already registered"),
			status:  fiber.StatusBadRequest,
			message: "email already registered",
		},
		{
			name:    "store failure",
			err:     errors.New("dial tcp: connection refused"),
			status:  fiber.StatusInternalServerError,
			message: internalErrorMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}

			raw, _ := io.ReadAll(resp.Body)
			var body struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			if err := json.Unmarshal(raw, &body); err != nil {
				t.Fatalf("decode %q: %v", raw, err)
			}
			if body.Success {
				t.Error("success = true")
			}
			if tt.message != "" && body.Message != tt.message {
				t.Errorf("message = %q, want %q", body.Message, tt.message)
			}
		})
	}
}
