package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Domain errors raised by the service layer.
var (
	ErrUserNotFound                   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found"}
	ErrEmailAlreadyRegistered         = &AppError{Code: "EMAIL_ALREADY_REGISTERED", Message: "Email already registered"}
	ErrUsernameAlreadyRegistered      = &AppError{Code: "USERNAME_ALREADY_REGISTERED", Message: "Username already registered"}
	ErrPasswordDoesntMatch            = &AppError{Code: "PASSWORD_DOESNT_MATCH", Message: "Incorrect credentials"}
	ErrUserCantFollowItself           = &AppError{Code: "USER_CANT_FOLLOW_ITSELF", Message: "User can't follow itself!"}
	ErrFollowingRelationAlreadyExists = &AppError{Code: "FOLLOWING_RELATION_ALREADY_EXISTS", Message: "Following relation already exists!"}
	ErrMaxAmountExceeded              = &AppError{Code: "MAX_AMOUNT_EXCEEDED", Message: "Amount exceeds the maximum allowed"}
	ErrUserAlreadyHasBiometricToken   = &AppError{Code: "USER_ALREADY_HAS_BIOMETRIC_TOKEN", Message: "User already has this biometric token"}
	ErrUserBlocked                    = &AppError{Code: "USER_BLOCKED", Message: "User is blocked"}
)

// NewMaxAmountExceededError reports the configured cap in its message.
func NewMaxAmountExceededError(max int) *AppError {
	return newAppError(ErrMaxAmountExceeded.Code, fmt.Sprintf("Amount can't be greater than %d", max))
}

func newAppError(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func NewValidationError(message string) *AppError   { return newAppError("VALIDATION_ERROR", message) }
func NewUnauthorizedError(message string) *AppError { return newAppError("UNAUTHORIZED", message) }
func NewConflictError(message string) *AppError     { return newAppError("CONFLICT", message) }
func NewForbiddenError(message string) *AppError    { return newAppError("FORBIDDEN", message) }

// NewInternalError hides err behind a generic message. The cause stays
// reachable through errors.Is and errors.As but is never sent to clients.
func NewInternalError(err error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: "Internal server error", Err: err}
}

// RespondWithError writes err as an ErrorResponse with the given status.
// Wrapped AppErrors keep their code; the cause of an internal error is
// dropped from the body.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	response := ErrorResponse{Error: err.Error()}

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{Error: appErr.Message, Code: appErr.Code}
		if appErr.Err != nil && appErr.Code != "INTERNAL_ERROR" {
			response.Details = appErr.Err.Error()
		}
	}

	return c.Status(status).JSON(response)
}
