package service

import (
	"context"
	"testing"
	"time"

	"github.com/oddgrid/grantd/internal/oauth/domain"
	"github.com/stretchr/testify/require"
)

func TestVerifyBearer(t *testing.T) {
	svc, st := newTestService(t)
	bearer := &BearerService{Store: st, Identity: svc.Identity}
	ctx := context.Background()

	client, secret := seedClient(t, st, []string{"profile"}, allGrants())
	seedUser(t, st, "carol", "a long enough password")

	t.Run("resolves a user-bound token", func(t *testing.T) {
		pair, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantPassword,
			ClientID:     client.ID.String(),
			ClientSecret: secret,
			Username:     "carol",
			Password:     "a long enough password",
			Scopes:       []string{"profile"},
		})
		require.NoError(t, err)

		ident, err := bearer.VerifyBearer(ctx, pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, client.ID.String(), ident.ClientID)
		require.Equal(t, "carol", ident.Username)
		require.Equal(t, "carol@example.com", ident.Email)
		require.Equal(t, []string{"profile"}, ident.Scopes)
	})

	t.Run("resolves a client-only token", func(t *testing.T) {
		pair, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantClientCredentials,
			ClientID:     client.ID.String(),
			ClientSecret: secret,
		})
		require.NoError(t, err)

		ident, err := bearer.VerifyBearer(ctx, pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, client.ID.String(), ident.ClientID)
		require.Empty(t, ident.UserID)
		require.Empty(t, ident.Username)
	})

	t.Run("rejects values that are not 64 characters", func(t *testing.T) {
		_, err := bearer.VerifyBearer(ctx, "short")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects refresh tokens presented as bearer tokens", func(t *testing.T) {
		pair, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantClientCredentials,
			ClientID:     client.ID.String(),
			ClientSecret: secret,
		})
		require.NoError(t, err)

		_, err = bearer.VerifyBearer(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects revoked tokens", func(t *testing.T) {
		pair, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantClientCredentials,
			ClientID:     client.ID.String(),
			ClientSecret: secret,
		})
		require.NoError(t, err)
		require.NoError(t, svc.Revoke(ctx, pair.AccessToken))

		_, err = bearer.VerifyBearer(ctx, pair.AccessToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects expired tokens", func(t *testing.T) {
		iat := time.Now().UTC().Add(-time.Hour)
		pair, err := svc.Exchange(ctx, GrantRequest{
			GrantType:    domain.GrantClientCredentials,
			ClientID:     client.ID.String(),
			ClientSecret: secret,
			IssuedAt:     iat,
			ExpiresAt:    iat.Add(time.Minute),
		})
		require.NoError(t, err)

		_, err = bearer.VerifyBearer(ctx, pair.AccessToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}
