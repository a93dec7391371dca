// Package models defines the persistent entities and error types of the users service.
package models

import "time"

// User is a registered account.
type User struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	Email           string           `gorm:"uniqueIndex:idx_users_email;size:254;not null" json:"email"`
	Username        string           `gorm:"uniqueIndex:idx_users_username;size:64;not null" json:"username"`
	Password        string           `gorm:"not null" json:"-"`
	Name            string           `json:"name"`
	Surname         string           `json:"last_name"`
	DateOfBirth     *time.Time       `json:"date_of_birth,omitempty"`
	Bio             string           `json:"bio"`
	Avatar          string           `json:"avatar"`
	Location        string           `json:"location"`
	Admin           bool             `gorm:"not null;default:false" json:"admin"`
	Blocked         bool             `gorm:"not null;default:false" json:"blocked"`
	IsPublic        bool             `gorm:"not null;default:true" json:"is_public"`
	Interests       []Interest       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	BiometricTokens []BiometricToken `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// UserResponse is the public projection of a user returned by the API.
type UserResponse struct {
	ID          uint   `json:"id,omitempty"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	LastName    string `json:"last_name"`
	Username    string `json:"username"`
	DateOfBirth string `json:"date_of_birth"`
	Bio         string `json:"bio"`
	Avatar      string `json:"avatar"`
	Location    string `json:"location"`
	Blocked     bool   `json:"blocked"`
	IsPublic    bool   `json:"is_public"`
}

// DateLayout is the wire format for dates of birth.
const DateLayout = "2006-01-02"

// ToResponse projects the user without its id.
func (u *User) ToResponse() UserResponse {
	resp := UserResponse{
		Email:    u.Email,
		Name:     u.Name,
		LastName: u.Surname,
		Username: u.Username,
		Bio:      u.Bio,
		Avatar:   u.Avatar,
		Location: u.Location,
		Blocked:  u.Blocked,
		IsPublic: u.IsPublic,
	}
	if u.DateOfBirth != nil {
		resp.DateOfBirth = u.DateOfBirth.Format(DateLayout)
	}
	return resp
}

// ToResponseWithID projects the user including its id.
func (u *User) ToResponseWithID() UserResponse {
	resp := u.ToResponse()
	resp.ID = u.ID
	return resp
}

// ToResponses projects a list of users.
func ToResponses(users []User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToResponse())
	}
	return out
}
