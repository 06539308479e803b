package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mcdev12/timekeeper/go/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// UsersRepository defines what the app layer needs from the repository
type UsersRepository interface {
	CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// App handles users business logic
type App struct {
	repo       UsersRepository
	bcryptCost int
}

// NewApp creates a new users App. A cost outside bcrypt's range falls back to the default.
func NewApp(repo UsersRepository, bcryptCost int) *App {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &App{
		repo:       repo,
		bcryptCost: bcryptCost,
	}
}

// SignUp creates a new account with a hashed password
func (a *App) SignUp(ctx context.Context, req SignUpRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), a.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := a.repo.CreateUser(ctx, CreateUserParams{
		Username:     username,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("created user")
	return user, nil
}

// Authenticate checks the credentials and returns the matching user
func (a *App) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := a.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Debug().Str("username", username).Msg("password mismatch")
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
