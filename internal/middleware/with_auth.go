package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// RequireUser rejects requests that reached it without an authenticated user id.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := UserID(c); !ok {
			return unauthenticated(c, "authentication required")
		}
		return c.Next()
	}
}

// UserID returns the authenticated user id attached by JWTIdentity.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(UserIDLocal).(uint)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}
