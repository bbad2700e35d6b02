package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-lingo-api/internal/utils"
)

// UserIDLocal is the fiber local holding the authenticated user id.
const UserIDLocal = "user_id"

// JWTIdentity validates the HMAC bearer token issued by the auth service and
// exposes its subject as the authenticated user id.
func JWTIdentity(secret string) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))

	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authorization == "" {
			return unauthenticated(c, "authorization header missing")
		}

		const bearer = "bearer "
		if len(authorization) <= len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
			return unauthenticated(c, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		token, err := parser.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return unauthenticated(c, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return unauthenticated(c, "invalid token claims")
		}

		if userID, ok := extractUserID(claims); ok {
			c.Locals(UserIDLocal, userID)
		}

		return c.Next()
	}
}

func extractUserID(claims jwt.MapClaims) (uint, bool) {
	for _, key := range []string{"sub", "user_id", "id"} {
		value, ok := claims[key]
		if !ok {
			continue
		}
		if id, err := normalizeUserID(value); err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}

func normalizeUserID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 || v != float64(uint64(v)) {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	default:
		return 0, fmt.Errorf("unsupported subject type %T", value)
	}
}

func unauthenticated(c *fiber.Ctx, message string) error {
	return utils.FailWithCode(c, fiber.StatusUnauthorized, "unauthenticated", message, nil)
}
