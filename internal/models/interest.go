package models

import "time"

// Interest is one free-text interest of a user.
type Interest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Interest  string    `gorm:"not null" json:"interest"`
	CreatedAt time.Time `json:"created_at"`
}

// BiometricToken is an alternate login credential owned by a user.
type BiometricToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"not null;uniqueIndex:idx_biometric_tokens_token" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
