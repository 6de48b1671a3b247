package i

import (
	"github.com/beka-birhanu/gridhunt-server/identity"
)

// Authenticator binds the credential store to the wire protocol and the REST
// surface. Both Register and SignIn return the user and a session token.
type Authenticator interface {
	Register(username, password string) (*identity.User, string, error)
	SignIn(username, password string) (*identity.User, string, error)
}
