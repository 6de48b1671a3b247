package service

import (
	"errors"
	"testing"

	"github.com/beka-birhanu/gridhunt-server/identity"
	"github.com/beka-birhanu/gridhunt-server/infrastruture/token"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memUserRepo is an in-memory UserRepo for service tests.
type memUserRepo struct {
	users map[string]*identity.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*identity.User)}
}

func (r *memUserRepo) Save(user *identity.User) error {
	if _, exists := r.users[user.Username]; exists {
		return errors.New("username conflict")
	}
	r.users[user.Username] = user
	return nil
}

func (r *memUserRepo) ByID(id uuid.UUID) (*identity.User, error) {
	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, errors.New("user not found")
}

func (r *memUserRepo) ByUsername(username string) (*identity.User, error) {
	user, found := r.users[username]
	if !found {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func newTestAuth(t *testing.T) (*Auth, *memUserRepo) {
	t.Helper()
	repo := newMemUserRepo()
	auth, err := NewAuthService(repo, token.NewJwtService("test-secret", "gridhunt"))
	require.NoError(t, err)
	return auth, repo
}

func TestNewAuthServiceValidatesDependencies(t *testing.T) {
	_, err := NewAuthService(nil, token.NewJwtService("s", "i"))
	assert.Error(t, err)

	_, err = NewAuthService(newMemUserRepo(), nil)
	assert.Error(t, err)
}

func TestRegisterIssuesToken(t *testing.T) {
	auth, repo := newTestAuth(t)

	user, tok, err := auth.Register("alice", "vX9#mQ2$lampshade-47")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEmpty(t, tok)
	assert.Len(t, repo.users, 1)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	auth, repo := newTestAuth(t)

	_, _, err := auth.Register("alice", "password")
	assert.Error(t, err)
	assert.Empty(t, repo.users)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	auth, _ := newTestAuth(t)

	_, _, err := auth.Register("alice", "vX9#mQ2$lampshade-47")
	require.NoError(t, err)

	_, _, err = auth.Register("alice", "vX9#mQ2$lampshade-47")
	assert.Error(t, err)
}

func TestSignIn(t *testing.T) {
	auth, _ := newTestAuth(t)

	registered, _, err := auth.Register("alice", "vX9#mQ2$lampshade-47")
	require.NoError(t, err)

	user, tok, err := auth.SignIn("alice", "vX9#mQ2$lampshade-47")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEmpty(t, tok)

	_, _, err = auth.SignIn("alice", "wrong password entirely")
	assert.EqualError(t, err, "invalid username or password")

	_, _, err = auth.SignIn("nobody", "vX9#mQ2$lampshade-47")
	assert.EqualError(t, err, "invalid username or password")
}
