package gateway

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	RequestIDHeader    = "X-Request-ID"
	requestIDLocalsKey = "request_id"
	maxRequestIDLength = 128
)

// RequestID propagates the caller's X-Request-ID or mints a uuid when it is absent
// or unreasonably long.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := strings.TrimSpace(c.Get(RequestIDHeader))
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}
		c.Locals(requestIDLocalsKey, requestID)
		c.Set(RequestIDHeader, requestID)
		return c.Next()
	}
}

func RequestIDFromCtx(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestIDLocalsKey).(string); ok {
		return id
	}
	return ""
}
