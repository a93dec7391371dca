// Package middleware provides request-scoped Fiber middleware for the users service.
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
// The legacy "token" header is accepted as a fallback for older mobile clients.
func BearerToken(c *fiber.Ctx) (string, bool) {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if legacy := strings.TrimSpace(c.Get("token")); legacy != "" {
		return legacy, true
	}
	return "", false
}

// UserEmail returns the authenticated email stored by the auth middleware.
func UserEmail(c *fiber.Ctx) string {
	email, _ := c.Locals(LocalUserEmail).(string)
	return email
}
