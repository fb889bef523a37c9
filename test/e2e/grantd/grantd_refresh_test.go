package grantd_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/oddgrid/grantd/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestRefreshTokenRotation(t *testing.T) {
	baseURL, cleanup := setupGrantdContainer(t, nil)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)
	ctx := context.Background()

	t.Run("rotation yields a fresh pair and consumes the old refresh token", func(t *testing.T) {
		first, err := client.ClientCredentialsGrant(ctx, clientID, clientSecret, []string{"profile"})
		require.NoError(t, err)

		second, err := client.RefreshGrant(ctx, clientID, clientSecret, first.RefreshToken)
		require.NoError(t, err)
		assertTokenResponse(t, second)
		require.NotEqual(t, first.RefreshToken, second.RefreshToken)
		require.Equal(t, first.Scope, second.Scope, "refresh must preserve the granted scopes")

		// Replay of the consumed token must fail.
		_, err = client.RefreshGrant(ctx, clientID, clientSecret, first.RefreshToken)
		assertOAuth2Error(t, err, http.StatusUnauthorized, "invalid_grant")

		// The freshly minted refresh token still works.
		_, err = client.RefreshGrant(ctx, clientID, clientSecret, second.RefreshToken)
		require.NoError(t, err)
	})

	t.Run("old access token keeps working after rotation by default", func(t *testing.T) {
		first, err := client.PasswordGrant(ctx, clientID, clientSecret,
			adminUsername, adminPassword, []string{"profile"})
		require.NoError(t, err)

		_, err = client.RefreshGrant(ctx, clientID, clientSecret, first.RefreshToken)
		require.NoError(t, err)

		_, err = client.Userinfo(ctx, first.AccessToken)
		require.NoError(t, err)
	})

	t.Run("unknown refresh tokens are rejected", func(t *testing.T) {
		bogus := make([]byte, 0, 64)
		for range 64 {
			bogus = append(bogus, 'x')
		}
		_, err := client.RefreshGrant(ctx, clientID, clientSecret, string(bogus))
		assertOAuth2Error(t, err, http.StatusUnauthorized, "invalid_grant")
	})
}

func TestConcurrentRefreshExactlyOneWins(t *testing.T) {
	baseURL, cleanup := setupGrantdContainer(t, nil)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)
	ctx := context.Background()

	tokens, err := client.ClientCredentialsGrant(ctx, clientID, clientSecret, nil)
	require.NoError(t, err)

	const racers = 8
	errs := make([]error, racers)

	var wg sync.WaitGroup
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = client.RefreshGrant(ctx, clientID, clientSecret, tokens.RefreshToken)
		}()
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assertOAuth2Error(t, err, http.StatusUnauthorized, "invalid_grant")
		}
	}
	require.Equal(t, 1, wins, "exactly one concurrent renewal must win")
}

func TestRevokePairedAccessOnRotation(t *testing.T) {
	baseURL, cleanup := setupGrantdContainer(t, map[string]string{
		"GRANTD_REVOKE_PAIRED_ACCESS": "true",
	})
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)
	ctx := context.Background()

	first, err := client.PasswordGrant(ctx, clientID, clientSecret,
		adminUsername, adminPassword, []string{"profile"})
	require.NoError(t, err)

	_, err = client.RefreshGrant(ctx, clientID, clientSecret, first.RefreshToken)
	require.NoError(t, err)

	// With the toggle on, the sibling access token died with the rotation.
	_, err = client.Userinfo(ctx, first.AccessToken)
	require.Error(t, err)
}
