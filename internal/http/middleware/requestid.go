package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request ID on both request and response.
	RequestIDHeader = "X-Request-ID"
	// RequestIDLocalKey is where the ID lives in Fiber's context locals.
	RequestIDLocalKey = "request_id"
)

// RequestID guarantees every request has an ID: an incoming X-Request-ID is
// propagated, otherwise a fresh UUID is minted. The ID is stored in context
// locals for the logger and error envelope, and echoed on the response.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(RequestIDLocalKey, id)
		c.Set(RequestIDHeader, id)

		return c.Next()
	}
}
