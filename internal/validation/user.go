// Package validation provides input validation for account fields.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt ignores input past 72 bytes
)

// ValidatePassword requires 8-72 bytes with at least one letter and one digit.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("password must not exceed %d bytes", maxPasswordLength)
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		return errors.New("password must contain at least one letter")
	}
	if !hasDigit {
		return errors.New("password must contain at least one digit")
	}
	return nil
}

// ValidateUsername checks length and charset. Leading or trailing separators are rejected.
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return errors.New("username must be at least 3 characters long")
	}
	if len(username) > 30 {
		return errors.New("username must not exceed 30 characters")
	}
	if !usernameRegex.MatchString(username) {
		return errors.New("username can only contain letters, numbers, dots, underscores, and hyphens")
	}
	if strings.ContainsAny(username[:1], "._-") || strings.ContainsAny(username[len(username)-1:], "._-") {
		return errors.New("username cannot start or end with a separator")
	}
	return nil
}

// ValidateEmail checks basic email format.
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return errors.New("email must not exceed 254 characters")
	}
	if !emailRegex.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}

// ParseInterests splits a comma-separated list. Values are kept as given;
// an empty string yields no interests.
func ParseInterests(csv string) []string {
	if csv == "" {
		return nil
	}
	return strings.Split(csv, ",")
}

var dateLayouts = []string{"2006-01-02", "2006 01 02"}

// ParseDateOfBirth accepts "YYYY-MM-DD" or "YYYY MM DD" and rejects future dates.
func ParseDateOfBirth(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if t.After(time.Now()) {
			return time.Time{}, errors.New("date of birth cannot be in the future")
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date of birth %q, expected YYYY-MM-DD", value)
}
