package domain

import (
	"slices"
	"time"

	"github.com/oddgrid/grantd/pkg/idx"
)

// Grant type identifiers accepted by the token endpoint.
const (
	GrantClientCredentials = "client_credentials"
	GrantPassword          = "password"
	GrantRefreshToken      = "refresh_token"
)

// Client is a registered OAuth2 client. The secret is stored as an Argon2id
// PHC hash and can never be recovered; it is shown exactly once at creation.
type Client struct {
	ID         idx.ID
	Name       string
	SecretHash string

	// Scopes is the full set of scopes this client may be granted.
	Scopes []string

	// GrantTypes lists the grant types the client may use at the token
	// endpoint.
	GrantTypes []string

	// Protected clients cannot be deleted through the management surface.
	// The bootstrap client is protected.
	Protected bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AllowsGrantType reports whether the client may use the given grant type.
func (c *Client) AllowsGrantType(grantType string) bool {
	return slices.Contains(c.GrantTypes, grantType)
}

// AllowsScopes reports whether every requested scope is within the client's
// allowed set. An empty request is always allowed.
func (c *Client) AllowsScopes(requested []string) bool {
	for _, s := range requested {
		if !slices.Contains(c.Scopes, s) {
			return false
		}
	}
	return true
}
