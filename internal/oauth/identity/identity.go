// Package identity abstracts resource-owner credential verification so the
// password grant can be backed either by the built-in user table or by an
// external directory.
package identity

import (
	"context"
	"errors"

	"github.com/oddgrid/grantd/pkg/idx"
)

// ErrInvalidUser is returned when the username is unknown or the password
// does not match. Backends must not distinguish the two cases.
var ErrInvalidUser = errors.New("identity: invalid username or password")

// Identity is the resolved resource owner attached to password-grant tokens.
type Identity struct {
	ID       idx.ID
	Username string
	Email    string
}

// Backend verifies resource-owner credentials and resolves user ids back to
// identities for introspection and userinfo.
type Backend interface {
	// Verify checks the credentials and returns the matching identity, or
	// ErrInvalidUser.
	Verify(ctx context.Context, username, password string) (Identity, error)

	// Lookup resolves a previously issued user id. It returns ErrInvalidUser
	// when the user no longer exists.
	Lookup(ctx context.Context, userID idx.ID) (Identity, error)
}
