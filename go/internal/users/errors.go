package users

import "errors"

var (
	// ErrUserExists is returned when the username is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when no user has the given username.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials covers both an unknown user and a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidInput is returned when username or password is missing.
	ErrInvalidInput = errors.New("username and password are required")
)
