package service

import (
	"errors"
	"time"

	"github.com/beka-birhanu/gridhunt-server/identity"
	"github.com/beka-birhanu/gridhunt-server/service/i"
	"github.com/google/uuid"
)

const sessionTokenLifetime = 24 * time.Hour

// Auth implements i.Authenticator on top of the user repository and a
// tokenizer.
type Auth struct {
	userRepo  i.UserRepo
	tokenizer i.Tokenizer
}

// NewAuthService creates an Auth service.
func NewAuthService(userRepo i.UserRepo, tokenizer i.Tokenizer) (*Auth, error) {
	if userRepo == nil {
		return nil, errors.New("user repository is required")
	}
	if tokenizer == nil {
		return nil, errors.New("tokenizer is required")
	}
	return &Auth{
		userRepo:  userRepo,
		tokenizer: tokenizer,
	}, nil
}

// Register creates a new user and signs them in.
func (a *Auth) Register(username, password string) (*identity.User, string, error) {
	userConfig := identity.UserConfig{
		ID:            uuid.New(),
		Username:      username,
		PlainPassword: password,
	}

	user, err := identity.NewUser(userConfig)
	if err != nil {
		return nil, "", err
	}

	if err := a.userRepo.Save(user); err != nil {
		return nil, "", err
	}

	token, err := a.sessionToken(user)
	return user, token, err
}

// SignIn verifies credentials and issues a session token.
func (a *Auth) SignIn(username, password string) (*identity.User, string, error) {
	user, err := a.userRepo.ByUsername(username)
	if err != nil {
		return nil, "", errors.New("invalid username or password")
	}

	if !user.VerifyPassword(password) {
		return nil, "", errors.New("invalid username or password")
	}

	token, err := a.sessionToken(user)
	return user, token, err
}

func (a *Auth) sessionToken(user *identity.User) (string, error) {
	return a.tokenizer.Generate(map[string]interface{}{
		"userID":   user.ID,
		"username": user.Username,
	}, sessionTokenLifetime)
}
