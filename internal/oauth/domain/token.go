package domain

import (
	"time"

	"github.com/oddgrid/grantd/pkg/idx"
)

// TokenKind distinguishes the two opaque token kinds issued by the service.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// TokenState is the lifecycle state of a stored token.
//
// Tokens are born active. A refresh token moves to rotated exactly once when
// it is consumed by the refresh_token grant; any token moves to revoked when
// explicitly revoked. Neither transition is reversible.
type TokenState string

const (
	TokenStateActive  TokenState = "active"
	TokenStateRotated TokenState = "rotated"
	TokenStateRevoked TokenState = "revoked"
)

// Token is the server-side record of an issued opaque token. The token value
// itself is never stored; TokenHash is the base64url SHA-256 fingerprint of
// the presented 64-character string.
type Token struct {
	ID        idx.ID
	Kind      TokenKind
	TokenHash string

	// PairID groups the access and refresh token minted together so one can
	// be invalidated when its sibling is revoked.
	PairID idx.ID

	ClientID idx.ID

	// UserID is zero for client_credentials tokens.
	UserID idx.ID

	Scopes []string
	State  TokenState

	IssuedAt time.Time

	// ExpiresAt is nil for tokens without an expiry (refresh tokens when no
	// refresh TTL is configured).
	ExpiresAt *time.Time
}

// Expired reports whether the token has an expiry in the past.
func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}

// Usable reports whether the token is active and unexpired at now.
func (t *Token) Usable(now time.Time) bool {
	return t.State == TokenStateActive && !t.Expired(now)
}

// TokenPair is the result of a successful grant: a freshly minted access and
// refresh token sharing a pair id.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int
	Scopes       []string
}
