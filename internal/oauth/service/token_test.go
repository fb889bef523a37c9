package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/oddgrid/grantd/internal/oauth/domain"
	"github.com/oddgrid/grantd/internal/oauth/identity"
	"github.com/oddgrid/grantd/internal/oauth/store/drivers/sqlite"
	"github.com/oddgrid/grantd/pkg/cryptox"
	"github.com/oddgrid/grantd/pkg/idx"
	"github.com/stretchr/testify/require"
)

var pepperOnce sync.Once

func newTestService(t *testing.T) (*TokenService, *sqlite.Store) {
	t.Helper()

	pepperOnce.Do(func() {
		cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))
	})

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	svc := &TokenService{
		Store:     st,
		Identity:  identity.NewStoreDirectory(st),
		AccessTTL: 10 * time.Minute,
	}
	return svc, st
}

func seedClient(
	t *testing.T,
	st *sqlite.Store,
	scopes, grantTypes []string,
) (*domain.Client, string) {
	t.Helper()

	secret, err := cryptox.GenerateOpaqueToken()
	require.NoError(t, err)
	secretHash, err := cryptox.HashSecret(secret)
	require.NoError(t, err)

	now := time.Now().UTC()
	c := &domain.Client{
		ID:         idx.New(),
		Name:       "test-client",
		SecretHash: secretHash,
		Scopes:     scopes,
		GrantTypes: grantTypes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, st.Clients().Create(context.Background(), c))
	return c, secret
}

func seedUser(t *testing.T, st *sqlite.Store, username, password string) *domain.User {
	t.Helper()

	hash, err := cryptox.HashSecret(password)
	require.NoError(t, err)

	now := time.Now().UTC()
	u := &domain.User{
		ID:           idx.New(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Users().Create(context.Background(), u))
	return u
}

func allGrants() []string {
	return []string{
		domain.GrantClientCredentials,
		domain.GrantPassword,
		domain.GrantRefreshToken,
	}
}

func TestExchangeClientCredentials(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	client, secret := seedClient(t, st, []string{"orders:read", "orders:write"}, allGrants())

	t.Run("issues an opaque pair", func(t *testing.T) {
		pair, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantClientCredentials,
			ClientID:     client.ID.String(),
			ClientSecret: secret,
			Scopes:       []string{"orders:read"},
		})
		require.NoError(t, err)
		require.Len(t, pair.AccessToken, cryptox.OpaqueTokenLength)
		require.Len(t, pair.RefreshToken, cryptox.OpaqueTokenLength)
		require.NotEqual(t, pair.AccessToken, pair.RefreshToken)
		require.Equal(t, "bearer", pair.TokenType)
		require.Equal(t, 600, pair.ExpiresIn)
		require.Equal(t, []string{"orders:read"}, pair.Scopes)
	})

	t.Run("rejects a wrong secret", func(t *testing.T) {
		_, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantClientCredentials,
			ClientID:     client.ID.String(),
			ClientSecret: "not-the-secret",
		})
		require.ErrorIs(t, err, ErrInvalidClient)
	})

	t.Run("rejects an unknown client", func(t *testing.T) {
		_, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantClientCredentials,
			ClientID:     idx.New().String(),
			ClientSecret: secret,
		})
		require.ErrorIs(t, err, ErrInvalidClient)
	})

	t.Run("rejects the whole request when any scope exceeds policy", func(t *testing.T) {
		_, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantClientCredentials,
			ClientID:     client.ID.String(),
			ClientSecret: secret,
			Scopes:       []string{"orders:read", "admin"},
		})
		require.ErrorIs(t, err, ErrInvalidScope)
	})

	t.Run("rejects disallowed grant types", func(t *testing.T) {
		limited, limitedSecret := seedClient(t, st, nil, []string{domain.GrantPassword})
		_, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantClientCredentials,
			ClientID:     limited.ID.String(),
			ClientSecret: limitedSecret,
		})
		require.ErrorIs(t, err, ErrUnauthorizedGrant)
	})

	t.Run("rejects unknown grant types", func(t *testing.T) {
		_, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    "authorization_code",
			ClientID:     client.ID.String(),
			ClientSecret: secret,
		})
		require.ErrorIs(t, err, ErrUnsupportedGrant)
	})
}

func TestExchangePassword(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	client, secret := seedClient(t, st, []string{"profile"}, allGrants())
	seedUser(t, st, "alice", "correct horse battery staple")

	t.Run("issues tokens bound to the user", func(t *testing.T) {
		pair, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantPassword,
			ClientID:     client.ID.String(),
			ClientSecret: secret,
			Username:     "alice",
			Password:     "correct horse battery staple",
			Scopes:       []string{"profile"},
		})
		require.NoError(t, err)

		res, err := svc.Introspect(ctx, pair.AccessToken)
		require.NoError(t, err)
		require.True(t, res.Active)
		require.Equal(t, "alice", res.Username)
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		_, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantPassword,
			ClientID:     client.ID.String(),
			ClientSecret: secret,
			Username:     "alice",
			Password:     "wrong",
		})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("rejects an unknown user the same way", func(t *testing.T) {
		_, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantPassword,
			ClientID:     client.ID.String(),
			ClientSecret: secret,
			Username:     "nobody",
			Password:     "wrong",
		})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("bad user credentials answer before a bad scope", func(t *testing.T) {
		_, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantPassword,
			ClientID:     client.ID.String(),
			ClientSecret: secret,
			Username:     "alice",
			Password:     "wrong",
			Scopes:       []string{"admin"},
		})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestExchangeRefreshRotation(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	client, secret := seedClient(t, st, []string{"profile"}, allGrants())
	seedUser(t, st, "bob", "hunter2hunter2")

	issue := func() *domain.TokenPair {
		pair, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantPassword,
			ClientID:     client.ID.String(),
			ClientSecret: secret,
			Username:     "bob",
			Password:     "hunter2hunter2",
			Scopes:       []string{"profile"},
		})
		require.NoError(t, err)
		return pair
	}

	refresh := func(token string) (*domain.TokenPair, error) {
		return svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantRefreshToken,
			ClientID:     client.ID.String(),
			ClientSecret: secret,
			RefreshToken: token,
		})
	}

	t.Run("rotation yields a new pair and kills the old refresh token", func(t *testing.T) {
		first := issue()

		second, err := refresh(first.RefreshToken)
		require.NoError(t, err)
		require.NotEqual(t, first.RefreshToken, second.RefreshToken)
		require.Equal(t, first.Scopes, second.Scopes)

		// Replay of the consumed token must fail.
		_, err = refresh(first.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)

		// The new refresh token works.
		_, err = refresh(second.RefreshToken)
		require.NoError(t, err)
	})

	t.Run("old access token survives rotation by default", func(t *testing.T) {
		first := issue()

		_, err := refresh(first.RefreshToken)
		require.NoError(t, err)

		res, err := svc.Introspect(ctx, first.AccessToken)
		require.NoError(t, err)
		require.True(t, res.Active)
	})

	t.Run("paired access revocation is opt-in", func(t *testing.T) {
		svc.RevokePairedAccess = true
		defer func() { svc.RevokePairedAccess = false }()

		first := issue()

		_, err := refresh(first.RefreshToken)
		require.NoError(t, err)

		res, err := svc.Introspect(ctx, first.AccessToken)
		require.NoError(t, err)
		require.False(t, res.Active)
	})

	t.Run("a token from another client is rejected without consuming it", func(t *testing.T) {
		other, otherSecret := seedClient(t, st, []string{"profile"}, allGrants())
		first := issue()

		_, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantRefreshToken,
			ClientID:     other.ID.String(),
			ClientSecret: otherSecret,
			RefreshToken: first.RefreshToken,
		})
		require.ErrorIs(t, err, ErrInvalidRefresh)

		// The rollback leaves the token usable by its real owner.
		_, err = refresh(first.RefreshToken)
		require.NoError(t, err)
	})
}

func TestConcurrentRefreshRotation(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	client, secret := seedClient(t, st, nil, allGrants())

	pair, err := svc.Exchange(ctx, GrantRequest{
		GrantType:    domain.GrantClientCredentials,
		ClientID:     client.ID.String(),
		ClientSecret: secret,
	})
	require.NoError(t, err)

	const racers = 8
	errs := make([]error, racers)

	var wg sync.WaitGroup
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Exchange(ctx, GrantRequest{
				GrantType:    domain.GrantRefreshToken,
				ClientID:     client.ID.String(),
				ClientSecret: secret,
				RefreshToken: pair.RefreshToken,
			})
		}()
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrInvalidRefresh)
		}
	}
	require.Equal(t, 1, wins, "exactly one racing renewal must win")
}

func TestRevoke(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	client, secret := seedClient(t, st, nil, allGrants())

	issue := func() *domain.TokenPair {
		pair, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantClientCredentials,
			ClientID:     client.ID.String(),
			ClientSecret: secret,
		})
		require.NoError(t, err)
		return pair
	}

	t.Run("revoked access tokens introspect inactive", func(t *testing.T) {
		pair := issue()
		require.NoError(t, svc.Revoke(ctx, pair.AccessToken))

		res, err := svc.Introspect(ctx, pair.AccessToken)
		require.NoError(t, err)
		require.False(t, res.Active)
	})

	t.Run("revoked refresh tokens cannot rotate", func(t *testing.T) {
		pair := issue()
		require.NoError(t, svc.Revoke(ctx, pair.RefreshToken))

		_, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantRefreshToken,
			ClientID:     client.ID.String(),
			ClientSecret: secret,
			RefreshToken: pair.RefreshToken,
		})
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("revoking a refresh token can cascade to its access sibling", func(t *testing.T) {
		svc.RevokePairedAccess = true
		defer func() { svc.RevokePairedAccess = false }()

		pair := issue()
		require.NoError(t, svc.Revoke(ctx, pair.RefreshToken))

		res, err := svc.Introspect(ctx, pair.AccessToken)
		require.NoError(t, err)
		require.False(t, res.Active)
	})

	t.Run("unknown tokens revoke without error", func(t *testing.T) {
		unknown, err := cryptox.GenerateOpaqueToken()
		require.NoError(t, err)
		require.NoError(t, svc.Revoke(ctx, unknown))
	})
}

func TestIntrospect(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	client, secret := seedClient(t, st, []string{"profile"}, allGrants())

	t.Run("active client token reports client as subject", func(t *testing.T) {
		pair, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantClientCredentials,
			ClientID:     client.ID.String(),
			ClientSecret: secret,
			Scopes:       []string{"profile"},
		})
		require.NoError(t, err)

		res, err := svc.Introspect(ctx, pair.AccessToken)
		require.NoError(t, err)
		require.True(t, res.Active)
		require.Equal(t, client.ID, res.ClientID)
		require.Equal(t, client.ID.String(), res.Subject)
		require.Equal(t, domain.TokenKindAccess, res.TokenKind)
		require.Equal(t, []string{"profile"}, res.Scopes)
		require.NotNil(t, res.ExpiresAt)
	})

	t.Run("expired tokens report inactive", func(t *testing.T) {
		iat := time.Now().UTC().Add(-2 * time.Hour)
		pair, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantClientCredentials,
			ClientID:     client.ID.String(),
			ClientSecret: secret,
			IssuedAt:     iat,
			ExpiresAt:    iat.Add(time.Hour),
		})
		require.NoError(t, err)

		res, err := svc.Introspect(ctx, pair.AccessToken)
		require.NoError(t, err)
		require.False(t, res.Active)
	})

	t.Run("unknown tokens report inactive", func(t *testing.T) {
		unknown, err := cryptox.GenerateOpaqueToken()
		require.NoError(t, err)

		res, err := svc.Introspect(ctx, unknown)
		require.NoError(t, err)
		require.False(t, res.Active)
	})

	t.Run("rejects an inverted validity window", func(t *testing.T) {
		now := time.Now().UTC()
		_, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantClientCredentials,
			ClientID:     client.ID.String(),
			ClientSecret: secret,
			IssuedAt:     now,
			ExpiresAt:    now.Add(-time.Minute),
		})
		require.ErrorIs(t, err, ErrInvalidValidity)
	})
}

func TestGrantDefaultScopes(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	client, secret := seedClient(t, st, []string{"a", "b"}, allGrants())

	t.Run("empty request yields no scopes by default", func(t *testing.T) {
		pair, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantClientCredentials,
			ClientID:     client.ID.String(),
			ClientSecret: secret,
		})
		require.NoError(t, err)
		require.Empty(t, pair.Scopes)
	})

	t.Run("empty request yields the client's full set when enabled", func(t *testing.T) {
		svc.GrantDefaultScopes = true
		defer func() { svc.GrantDefaultScopes = false }()

		pair, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantClientCredentials,
			ClientID:     client.ID.String(),
			ClientSecret: secret,
		})
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b"}, pair.Scopes)
	})
}
