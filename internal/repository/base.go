package repository

import (
	"errors"
	"fmt"
	"strings"

	"usersvc/internal/database"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Unique indexes the domain reacts to.
const (
	ConstraintUserEmail      = "idx_users_email"
	ConstraintUserUsername   = "idx_users_username"
	ConstraintFollowPair     = "idx_follows_pair"
	ConstraintBiometricToken = "idx_biometric_tokens_token"
)

const pgUniqueViolation = "23505"

// ErrDuplicate reports a unique constraint violation. Constraint is one of the
// Constraint* names, or the raw name reported by the driver.
type ErrDuplicate struct {
	Constraint string
	Err        error
}

func (e *ErrDuplicate) Error() string {
	return fmt.Sprintf("duplicate value violates %s", e.Constraint)
}

func (e *ErrDuplicate) Unwrap() error {
	return e.Err
}

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, pgUniqueViolation)
}

// sqlite reports "UNIQUE constraint failed: table.col[, table.col]" instead of index names.
var columnConstraints = map[string]string{
	"users.email":            ConstraintUserEmail,
	"users.username":         ConstraintUserUsername,
	"follows.follower_id":    ConstraintFollowPair,
	"biometric_tokens.token": ConstraintBiometricToken,
}

// asDuplicate converts a unique violation into *ErrDuplicate and returns nil otherwise.
func asDuplicate(err error) *ErrDuplicate {
	if !isUniqueConstraintError(err) {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName != "" {
		return &ErrDuplicate{Constraint: pgErr.ConstraintName, Err: err}
	}

	msg := err.Error()
	for _, name := range []string{ConstraintUserEmail, ConstraintUserUsername, ConstraintFollowPair, ConstraintBiometricToken} {
		if strings.Contains(msg, name) {
			return &ErrDuplicate{Constraint: name, Err: err}
		}
	}
	for column, name := range columnConstraints {
		if strings.Contains(msg, column) {
			return &ErrDuplicate{Constraint: name, Err: err}
		}
	}
	return &ErrDuplicate{Constraint: "unknown", Err: err}
}
