package server

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"usersvc/internal/auth"
	"usersvc/internal/middleware"
	"usersvc/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed start/amount query parameters.
type Pagination struct {
	Start  int
	Amount int
}

const defaultPageAmount = 10

// parsePagination reads the start offset from "offset" or "start" and the page
// size from "ammount" (the legacy spelling) or "amount". Bounds are enforced by
// the service layer so oversized pages fail instead of being clamped.
func parsePagination(c *fiber.Ctx) (Pagination, error) {
	startKey := "offset"
	if c.Query(startKey) == "" {
		startKey = "start"
	}
	amountKey := "ammount"
	if c.Query(amountKey) == "" {
		amountKey = "amount"
	}

	start, err := queryInt(c, startKey, 0)
	if err != nil {
		return Pagination{}, err
	}
	amount, err := queryInt(c, amountKey, defaultPageAmount)
	if err != nil {
		return Pagination{}, err
	}
	return Pagination{Start: start, Amount: amount}, nil
}

// queryInt parses an integer query parameter. On failure it writes a 400 JSON
// response and returns errResponseWritten.
func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	if c.Query(key) == "" {
		return def, nil
	}
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+key))
		return 0, errResponseWritten
	}
	return v, nil
}

// emailParam returns a route parameter with percent-escapes decoded.
func emailParam(c *fiber.Ctx, name string) string {
	raw := c.Params(name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	return strings.TrimSpace(raw)
}

// biometricTokenHeader reads the biometric token from its header.
func biometricTokenHeader(c *fiber.Ctx) string {
	if v := strings.TrimSpace(c.Get("Biometric-Token")); v != "" {
		return v
	}
	return strings.TrimSpace(c.Get("biometric_token"))
}

// sessionClaims returns the claims stored by AuthRequired.
func sessionClaims(c *fiber.Ctx) (auth.Claims, bool) {
	claims, ok := c.Locals(localClaims).(auth.Claims)
	return claims, ok
}

// statusForError maps domain errors to HTTP statuses.
func statusForError(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}

	switch appErr.Code {
	case models.ErrUserNotFound.Code, "NOT_FOUND":
		return fiber.StatusNotFound
	case models.ErrEmailAlreadyRegistered.Code,
		models.ErrUsernameAlreadyRegistered.Code,
		models.ErrUserAlreadyHasBiometricToken.Code,
		"CONFLICT":
		return fiber.StatusConflict
	case models.ErrUserCantFollowItself.Code,
		models.ErrFollowingRelationAlreadyExists.Code,
		models.ErrMaxAmountExceeded.Code,
		"VALIDATION_ERROR":
		return fiber.StatusBadRequest
	case models.ErrPasswordDoesntMatch.Code, "UNAUTHORIZED":
		return fiber.StatusUnauthorized
	case models.ErrUserBlocked.Code, "FORBIDDEN":
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// respondServiceError writes err with its mapped status.
func (s *Server) respondServiceError(c *fiber.Ctx, err error) error {
	status := statusForError(err)
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
	}
	if status == fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed", "error", err)
	}
	return models.RespondWithError(c, status, appErr)
}

// bindJSON parses the request body. On failure it writes a 400 JSON response
// and returns errResponseWritten.
func bindJSON(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}
