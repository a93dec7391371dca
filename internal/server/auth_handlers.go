package server

import (
	"errors"

	"usersvc/internal/featureflags"
	"usersvc/internal/middleware"
	"usersvc/internal/models"
	"usersvc/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/register
func (s *Server) Register(c *fiber.Ctx) error {
	var req service.RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	token, user, err := s.authService.Register(c.UserContext(), req)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user.ToResponse(),
	})
}

// Login handles POST /api/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	if req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email and password are required"))
	}

	token, user, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		// Unknown accounts are reported as bad credentials on the login route.
		if errors.Is(err, models.ErrUserNotFound) {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		return s.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user.ToResponse(),
	})
}

// LoginWithBiometrics handles POST /api/login_with_biometrics
func (s *Server) LoginWithBiometrics(c *fiber.Ctx) error {
	if !s.featureFlags.EnabledOr(featureflags.BiometricLogin, "", true) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Biometric login is disabled"))
	}

	biometricToken := biometricTokenHeader(c)
	if biometricToken == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Biometric token header is required"))
	}

	token, user, err := s.authService.LoginWithBiometrics(c.UserContext(), biometricToken)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		return s.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user.ToResponse(),
	})
}

// Logout handles POST /api/logout
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, ok := sessionClaims(c)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
	}

	if err := s.authService.Logout(c.UserContext(), claims); err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// AddBiometricToken handles POST /api/user/biometric_token
func (s *Server) AddBiometricToken(c *fiber.Ctx) error {
	token := s.authService.NewBiometricToken()
	if err := s.userService.AddBiometricToken(c.UserContext(), middleware.UserEmail(c), token); err != nil {
		return s.respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"biometric_token": token})
}

// DeleteBiometricToken handles DELETE /api/user/delete_biometric_token
func (s *Server) DeleteBiometricToken(c *fiber.Ctx) error {
	biometricToken := biometricTokenHeader(c)
	if biometricToken == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Biometric token header is required"))
	}

	user, err := s.userService.GetByEmail(c.UserContext(), middleware.UserEmail(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	if err := s.userService.RemoveBiometricToken(c.UserContext(), user.ID, biometricToken); err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Biometric token removed"})
}
