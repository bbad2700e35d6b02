package utils

import "github.com/gofiber/fiber/v2"

// APIResponse describes the common structure for API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// OK sends a 200 success payload with optional metadata.
func OK(c *fiber.Ctx, data interface{}, message string, meta interface{}) error {
	return respond(c, fiber.StatusOK, APIResponse{Success: true, Message: message, Data: data, Meta: meta})
}

// SendSuccess sends a successful JSON response with a message.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus sends a success payload using the provided HTTP status code.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	return respond(c, status, APIResponse{Success: true, Message: message, Data: data})
}

// Fail sends an error payload carrying structured details.
func Fail(c *fiber.Ctx, status int, message string, details interface{}) error {
	return respond(c, status, APIResponse{Message: message, Details: details})
}

// FailWithCode sends an error payload tagged with a machine-readable code.
func FailWithCode(c *fiber.Ctx, status int, code, message string, details interface{}) error {
	return respond(c, status, APIResponse{Message: message, Code: code, Details: details})
}

// SendError sends an error JSON response with the given status code.
func SendError(c *fiber.Ctx, status int, message string) error {
	return respond(c, status, APIResponse{Message: message})
}

func respond(c *fiber.Ctx, status int, payload APIResponse) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	if payload.Message == "" {
		if payload.Success {
			payload.Message = "success"
		} else {
			payload.Message = "error"
		}
	}
	return c.Status(status).JSON(payload)
}
