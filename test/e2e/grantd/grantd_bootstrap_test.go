package grantd_test

import (
	"context"
	"testing"

	"github.com/oddgrid/grantd/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestBootstrap(t *testing.T) {
	baseURL, cleanup := setupGrantdContainer(t, nil)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	ctx := context.Background()

	t.Run("rejects a wrong bootstrap token", func(t *testing.T) {
		_, err := client.Bootstrap(ctx, "wrong-token", authsdk.BootstrapRequest{
			AdminUsername: adminUsername,
			AdminEmail:    adminEmail,
			AdminPassword: adminPassword,
			ClientName:    clientName,
			ClientScopes:  clientScopes,
		})
		require.Error(t, err)
	})

	t.Run("seeds the first client and admin user", func(t *testing.T) {
		clientID, clientSecret, _ := bootstrapService(t, client)

		// The returned credentials immediately work at the token endpoint.
		tokens, err := client.ClientCredentialsGrant(ctx, clientID, clientSecret, nil)
		require.NoError(t, err)
		assertTokenResponse(t, tokens)
	})

	t.Run("cannot run twice", func(t *testing.T) {
		_, err := client.Bootstrap(ctx, bootstrapToken, authsdk.BootstrapRequest{
			AdminUsername: "second-admin",
			AdminEmail:    "second@example.com",
			AdminPassword: "AnotherPass123!",
			ClientName:    "second-client",
			ClientScopes:  clientScopes,
		})
		require.Error(t, err, "bootstrap must be one-time")
	})
}

func TestHealthEndpoints(t *testing.T) {
	baseURL, cleanup := setupGrantdContainer(t, nil)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	ctx := context.Background()

	health, err := client.GetLiveness(ctx)
	assertHealthy(t, health, err)
	require.NotEmpty(t, health.Version)
}
