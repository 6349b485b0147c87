package middleware

import (
	"strings"

	"github.com/adityarawat/examdesk/utils/auth"
	"github.com/adityarawat/examdesk/utils/response"
	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware verifies bearer tokens from the external identity service
// and exposes the caller's identity to handlers. Session management and token
// issuance live outside this service.
type AuthMiddleware struct {
	verifier *auth.JWTVerifier
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(verifier *auth.JWTVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "Missing authorization token")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return response.Unauthorized(c, "Invalid authorization format")
		}

		claims, err := m.verifier.VerifyToken(parts[1])
		if err != nil {
			if err == auth.ErrExpiredToken {
				return response.Unauthorized(c, "Token has expired")
			}
			return response.Unauthorized(c, "Invalid token")
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("user_email", claims.Email)
		c.Locals("user_role", claims.Role)

		return c.Next()
	}
}

// GetUserID returns the authenticated user's ID from the request context
func GetUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("user_id").(uint)
	return id, ok
}
