package server

import (
	"strconv"
	"strings"

	"usersvc/internal/middleware"
	"usersvc/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SetBlockedStatus handles PUT /api/admin/users/block/:email?blocked=true|false
func (s *Server) SetBlockedStatus(c *fiber.Ctx) error {
	blocked, err := strconv.ParseBool(c.Query("blocked"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("blocked query parameter must be true or false"))
	}

	email := emailParam(c, "email")
	if err := s.adminService.SetBlocked(c.UserContext(), middleware.UserEmail(c), email, blocked); err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"email": email, "blocked": blocked})
}

// ListUsers handles GET /api/admin/users
func (s *Server) ListUsers(c *fiber.Ctx) error {
	page, err := parsePagination(c)
	if err != nil {
		return nil
	}

	users, err := s.adminService.ListUsers(c.UserContext(), page.Start, page.Amount)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(models.ToResponses(users))
}

// ListAdmins handles GET /api/admin/users/admins
func (s *Server) ListAdmins(c *fiber.Ctx) error {
	users, err := s.adminService.ListAdmins(c.UserContext())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(models.ToResponses(users))
}

// FindUser handles GET /api/admin/users/find?email=|username=
func (s *Server) FindUser(c *fiber.Ctx) error {
	user, err := s.adminService.FindUser(c.UserContext(),
		strings.TrimSpace(c.Query("email")), strings.TrimSpace(c.Query("username")))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(user.ToResponseWithID())
}

// GetImageLink handles GET /api/admin/users/image?path=
func (s *Server) GetImageLink(c *fiber.Ctx) error {
	path := c.Query("path")
	if path == "" {
		path = c.Query("firebase_path")
	}

	link, err := s.adminService.ImageLink(c.UserContext(), path)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"link": link})
}

// SearchUsersAsAdmin handles GET /api/admin/users/search/:query
func (s *Server) SearchUsersAsAdmin(c *fiber.Ctx) error {
	page, err := parsePagination(c)
	if err != nil {
		return nil
	}

	users, err := s.adminService.SearchIncludingAdmins(c.UserContext(), emailParam(c, "query"), page.Start, page.Amount)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(models.ToResponses(users))
}

// PromoteToAdmin handles POST /api/admin/users/:email/promote
func (s *Server) PromoteToAdmin(c *fiber.Ctx) error {
	email := emailParam(c, "email")
	if err := s.adminService.MakeAdmin(c.UserContext(), email); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"email": email, "admin": true})
}

// DemoteFromAdmin handles POST /api/admin/users/:email/demote
func (s *Server) DemoteFromAdmin(c *fiber.Ctx) error {
	email := emailParam(c, "email")
	if email == middleware.UserEmail(c) {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Admins cannot demote themselves"))
	}
	if err := s.adminService.RemoveAdmin(c.UserContext(), email); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"email": email, "admin": false})
}

// GetAllFollowRelations handles GET /api/admin/following
func (s *Server) GetAllFollowRelations(c *fiber.Ctx) error {
	edges, err := s.followService.AllEdges(c.UserContext())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(edges)
}
