package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/oddgrid/grantd/internal/oauth/store"
	"github.com/oddgrid/grantd/pkg/cryptox"
	"github.com/oddgrid/grantd/pkg/idx"
)

// StoreDirectory is the built-in Backend backed by the users table.
type StoreDirectory struct {
	store store.Store
}

// NewStoreDirectory creates a Backend over the given store.
func NewStoreDirectory(s store.Store) *StoreDirectory {
	return &StoreDirectory{store: s}
}

func (d *StoreDirectory) Verify(ctx context.Context, username, password string) (Identity, error) {
	u, err := d.store.Users().GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash verification anyway so unknown usernames are not
			// distinguishable by timing.
			_ = cryptox.VerifySecret(password, cryptox.DummySecretHash())
			return Identity{}, ErrInvalidUser
		}
		return Identity{}, err
	}

	if err := cryptox.VerifySecret(password, u.PasswordHash); err != nil {
		return Identity{}, ErrInvalidUser
	}

	return Identity{ID: u.ID, Username: u.Username, Email: u.Email}, nil
}

func (d *StoreDirectory) Lookup(ctx context.Context, userID idx.ID) (Identity, error) {
	u, err := d.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Identity{}, ErrInvalidUser
		}
		return Identity{}, err
	}
	return Identity{ID: u.ID, Username: u.Username, Email: u.Email}, nil
}

// StaticDirectory is an in-memory Backend for tests and single-tenant
// deployments configured entirely from the environment.
type StaticDirectory struct {
	mu    sync.RWMutex
	byID  map[idx.ID]staticUser
	byKey map[string]staticUser
}

type staticUser struct {
	identity   Identity
	secretHash string
}

// NewStaticDirectory creates an empty in-memory directory.
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{
		byID:  make(map[idx.ID]staticUser),
		byKey: make(map[string]staticUser),
	}
}

// Add registers a user with a pre-hashed password.
func (d *StaticDirectory) Add(id Identity, secretHash string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := staticUser{identity: id, secretHash: secretHash}
	d.byID[id.ID] = u
	d.byKey[id.Username] = u
}

func (d *StaticDirectory) Verify(ctx context.Context, username, password string) (Identity, error) {
	d.mu.RLock()
	u, ok := d.byKey[username]
	d.mu.RUnlock()
	if !ok {
		_ = cryptox.VerifySecret(password, cryptox.DummySecretHash())
		return Identity{}, ErrInvalidUser
	}

	if err := cryptox.VerifySecret(password, u.secretHash); err != nil {
		return Identity{}, ErrInvalidUser
	}
	return u.identity, nil
}

func (d *StaticDirectory) Lookup(ctx context.Context, userID idx.ID) (Identity, error) {
	d.mu.RLock()
	u, ok := d.byID[userID]
	d.mu.RUnlock()
	if !ok {
		return Identity{}, ErrInvalidUser
	}
	return u.identity, nil
}
