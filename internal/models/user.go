// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents an author account. PasswordHash never leaves the service.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FullName     string    `gorm:"not null" json:"fullName"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserSummary is the author block embedded in serialized posts.
type UserSummary struct {
	ID       uint   `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// AuthResponse is returned by register and login: the user's public fields plus a bearer token.
type AuthResponse struct {
	*User
	Token string `json:"token"`
}
