package server

import (
	"usersvc/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type featureFlagsResponse struct {
	Raw       map[string]string `json:"raw"`
	Evaluated map[string]bool   `json:"evaluated"`
}

// GetFeatureFlags lists the configured flags and how they evaluate for the
// calling admin.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(featureFlagsResponse{
		Raw:       s.featureFlags.Raw(),
		Evaluated: s.featureFlags.Snapshot(middleware.UserEmail(c)),
	})
}
