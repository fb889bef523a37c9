// Package store defines the persistence contracts for the authorization
// service. Drivers live under drivers/ and implement Store against a concrete
// database.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/oddgrid/grantd/internal/oauth/domain"
	"github.com/oddgrid/grantd/pkg/idx"
)

var (
	// ErrNotFound is returned when a requested record does not exist, or when
	// a conditional update matched no row.
	ErrNotFound = errors.New("store: not found")

	// ErrAlreadyExists is returned on unique constraint violations.
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root persistence interface. Repository accessors outside of
// WithTx operate in auto-commit mode.
type Store interface {
	Clients() ClientRepository
	Users() UserRepository
	Tokens() TokenRepository

	// WithTx runs fn inside a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Ping verifies database connectivity for readiness probes.
	Ping(ctx context.Context) error

	Close() error
}

// Tx exposes the repositories bound to a single transaction.
type Tx interface {
	Clients() ClientRepository
	Users() UserRepository
	Tokens() TokenRepository
}

// ClientRepository persists OAuth2 clients.
type ClientRepository interface {
	Create(ctx context.Context, c *domain.Client) error
	GetByID(ctx context.Context, id idx.ID) (*domain.Client, error)
	Count(ctx context.Context) (int64, error)
}

// UserRepository persists resource owners for the built-in directory.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id idx.ID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Count(ctx context.Context) (int64, error)
}

// TokenRepository persists issued tokens by fingerprint.
type TokenRepository interface {
	Create(ctx context.Context, t *domain.Token) error

	// GetByHash returns the token with the given fingerprint regardless of
	// state, or ErrNotFound.
	GetByHash(ctx context.Context, hash string) (*domain.Token, error)

	// GetActiveByHash returns the token only if it is active and unexpired
	// at now. Rotated, revoked, expired and unknown fingerprints all yield
	// ErrNotFound.
	GetActiveByHash(ctx context.Context, hash string, kind domain.TokenKind, now time.Time) (*domain.Token, error)

	// ConsumeRefresh atomically flips an active, unexpired refresh token with
	// the given fingerprint to rotated and returns its record. Of two racing
	// calls exactly one succeeds; the loser gets ErrNotFound.
	ConsumeRefresh(ctx context.Context, hash string, now time.Time) (*domain.Token, error)

	// Revoke marks the token with the given fingerprint revoked. Unknown
	// fingerprints yield ErrNotFound.
	Revoke(ctx context.Context, hash string) error

	// RevokePair marks every still-active token sharing the pair id revoked.
	RevokePair(ctx context.Context, pairID idx.ID) error

	// DeleteExpired removes dead rows: tokens whose expiry is at or before
	// cutoff, and rotated or revoked tokens issued at or before cutoff (those
	// may carry no expiry at all). Returns the number deleted.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
