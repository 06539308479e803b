package users

// SignUpRequest represents the data needed to create a new account
type SignUpRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateUserParams is what the repository stores for a new user
type CreateUserParams struct {
	Username     string
	PasswordHash string
}
