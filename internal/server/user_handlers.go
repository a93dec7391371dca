package server

import (
	"strconv"
	"strings"
	"time"

	"usersvc/internal/events"
	"usersvc/internal/featureflags"
	"usersvc/internal/middleware"
	"usersvc/internal/models"
	"usersvc/internal/service"
	"usersvc/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type profileField string

const (
	fieldPassword    profileField = "password"
	fieldBio         profileField = "bio"
	fieldName        profileField = "name"
	fieldLastName    profileField = "last_name"
	fieldDateOfBirth profileField = "date_of_birth"
	fieldAvatar      profileField = "avatar"
	fieldLocation    profileField = "location"
	fieldPrivacy     profileField = "privacy"
)

// GetUserByToken handles GET /api/get_user_by_token
func (s *Server) GetUserByToken(c *fiber.Ctx) error {
	user, err := s.userService.GetByEmail(c.UserContext(), middleware.UserEmail(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(user.ToResponse())
}

// GetCurrentUser handles GET /api/user
func (s *Server) GetCurrentUser(c *fiber.Ctx) error {
	user, err := s.userService.GetByEmail(c.UserContext(), middleware.UserEmail(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(user.ToResponseWithID())
}

// SearchUsers handles GET /api/user/search/:query
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	page, err := parsePagination(c)
	if err != nil {
		return nil
	}

	email := middleware.UserEmail(c)
	inFollowers := c.QueryBool("in_followers", false)
	if inFollowers && !s.featureFlags.EnabledOr(featureflags.FollowerSearch, email, true) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Follower search is disabled"))
	}

	users, err := s.userService.Search(c.UserContext(), emailParam(c, "query"), service.SearchOptions{
		Start:          page.Start,
		Amount:         page.Amount,
		RequesterEmail: email,
		InFollowers:    inFollowers,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(models.ToResponses(users))
}

// GetInterests handles GET /api/users/interests
func (s *Server) GetInterests(c *fiber.Ctx) error {
	interests, err := s.userService.GetInterests(c.UserContext(), middleware.UserEmail(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"interests": interests})
}

// SetInterests handles PUT /api/users/interests
func (s *Server) SetInterests(c *fiber.Ctx) error {
	var req struct {
		Interests string `json:"interests"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	email := middleware.UserEmail(c)
	if err := s.userService.SetInterests(c.UserContext(), email, req.Interests); err != nil {
		return s.respondServiceError(c, err)
	}

	interests, err := s.userService.GetInterests(c.UserContext(), email)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"interests": interests})
}

// UpdateProfileField returns the handler for PUT /api/users/<field>. The new
// value is read from the "value" JSON field.
func (s *Server) UpdateProfileField(field profileField) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Value any `json:"value"`
		}
		if err := bindJSON(c, &req); err != nil {
			return nil
		}

		ctx := c.UserContext()
		email := middleware.UserEmail(c)

		var err error
		switch field {
		case fieldPrivacy:
			isPublic, ok := boolValue(req.Value)
			if !ok {
				return models.RespondWithError(c, fiber.StatusBadRequest,
					models.NewValidationError("value must be a boolean"))
			}
			err = s.userService.ChangePrivacy(ctx, email, isPublic)
		default:
			value, ok := req.Value.(string)
			if !ok {
				return models.RespondWithError(c, fiber.StatusBadRequest,
					models.NewValidationError("value must be a string"))
			}
			err = s.changeTextField(c, field, email, value)
		}
		if err != nil {
			return s.respondServiceError(c, err)
		}

		return c.JSON(fiber.Map{"message": "Updated " + string(field)})
	}
}

func (s *Server) changeTextField(c *fiber.Ctx, field profileField, email, value string) error {
	ctx := c.UserContext()
	switch field {
	case fieldPassword:
		return s.authService.ChangePassword(ctx, email, value)
	case fieldBio:
		return s.userService.ChangeBio(ctx, email, value)
	case fieldName:
		return s.userService.ChangeName(ctx, email, value)
	case fieldLastName:
		return s.userService.ChangeSurname(ctx, email, value)
	case fieldAvatar:
		return s.userService.ChangeAvatar(ctx, email, value)
	case fieldDateOfBirth:
		dob, err := validation.ParseDateOfBirth(value)
		if err != nil {
			return models.NewValidationError(err.Error())
		}
		return s.userService.ChangeDateOfBirth(ctx, email, dob)
	case fieldLocation:
		start := time.Now()
		previous, err := s.userService.ChangeLocation(ctx, email, value)
		if err != nil {
			return err
		}
		if previous != value {
			_ = s.publisher.Publish(ctx, events.NewGeoZoneMetric(email, start, previous, value))
		}
		return nil
	default:
		return models.NewValidationError("Unknown field " + string(field))
	}
}

// DeleteUser handles DELETE /api/users/:email. Users may delete themselves;
// admins may delete anyone.
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	ctx := c.UserContext()
	requester := middleware.UserEmail(c)
	target := emailParam(c, "email")

	if target != requester {
		admin, err := s.userService.IsAdmin(ctx, requester)
		if err != nil {
			return s.respondServiceError(c, err)
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Only admins can delete other users"))
		}
	}

	if err := s.userService.Delete(ctx, target); err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": "User deleted"})
}

// boolValue accepts a JSON boolean or its string form.
func boolValue(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	default:
		return false, false
	}
}
