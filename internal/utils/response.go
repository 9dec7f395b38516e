package utils

import (
	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
)

// APIResponse is the envelope shared by every API response.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
}

// SendSuccess sends a 200 envelope carrying data.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	if message == "" {
		message = "success"
	}

	return c.Status(fiber.StatusOK).JSON(APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// SendError sends a failure envelope. An empty message falls back to the status text.
func SendError(c *fiber.Ctx, status int, message string) error {
	if status < fiber.StatusBadRequest {
		status = fiber.StatusInternalServerError
	}
	if message == "" {
		message = fiberutils.StatusMessage(status)
	}

	return c.Status(status).JSON(APIResponse{
		Success: false,
		Message: message,
	})
}
