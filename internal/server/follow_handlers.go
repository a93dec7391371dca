package server

import (
	"strings"

	"usersvc/internal/middleware"
	"usersvc/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Follow handles POST /api/follow/:email
func (s *Server) Follow(c *fiber.Ctx) error {
	if err := s.followService.Follow(c.UserContext(), middleware.UserEmail(c), emailParam(c, "email")); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Followed successfully"})
}

// Unfollow handles DELETE /api/unfollow?email=
func (s *Server) Unfollow(c *fiber.Ctx) error {
	target := strings.TrimSpace(c.Query("email"))
	if target == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("email query parameter is required"))
	}

	if err := s.followService.Unfollow(c.UserContext(), middleware.UserEmail(c), target); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Unfollowed successfully"})
}

// GetFollowers handles GET /api/followers/:email
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	users, err := s.followService.Followers(c.UserContext(), emailParam(c, "email"))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(models.ToResponses(users))
}

// GetFollowing handles GET /api/following/:email
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	users, err := s.followService.Following(c.UserContext(), emailParam(c, "email"))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(models.ToResponses(users))
}

// GetFollowersCount handles GET /api/follow/:email/count
func (s *Server) GetFollowersCount(c *fiber.Ctx) error {
	count, err := s.followService.FollowersCount(c.UserContext(), emailParam(c, "email"))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}

// GetFollowingCount handles GET /api/following/:email/count
func (s *Server) GetFollowingCount(c *fiber.Ctx) error {
	count, err := s.followService.FollowingCount(c.UserContext(), emailParam(c, "email"))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}

// IsFollowing handles GET /api/is_following/:email: does the caller follow :email.
func (s *Server) IsFollowing(c *fiber.Ctx) error {
	following, err := s.followService.IsFollowing(c.UserContext(), middleware.UserEmail(c), emailParam(c, "email"))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"is_following": following})
}

// IsFollower handles GET /api/is_follower/:email: does :email follow the caller.
func (s *Server) IsFollower(c *fiber.Ctx) error {
	follower, err := s.followService.IsFollower(c.UserContext(), middleware.UserEmail(c), emailParam(c, "email"))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"is_follower": follower})
}
