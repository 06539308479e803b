package models

import (
	"time"
)

// UserID identifies a user. Assigned by the database and never reused.
type UserID = int64

// User represents a registered account
type User struct {
	ID           UserID    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
