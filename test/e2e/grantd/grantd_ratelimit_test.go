package grantd_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/oddgrid/grantd/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestTokenEndpointRateLimit verifies the strict per-IP limit on the token
// endpoint under production defaults.
func TestTokenEndpointRateLimit(t *testing.T) {
	baseURL, cleanup := setupGrantdContainerWithDefaultRateLimits(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)
	ctx := context.Background()

	// Hammer the token endpoint until the limiter kicks in. The strict
	// profile allows only a handful of requests per window.
	var limited bool
	for range 30 {
		_, err := client.ClientCredentialsGrant(ctx, clientID, clientSecret, nil)
		if err == nil {
			continue
		}

		var oauthErr *authsdk.OAuth2Error
		if errors.As(err, &oauthErr) && oauthErr.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
		require.FailNow(t, "unexpected error before hitting the rate limit", err.Error())
	}

	require.True(t, limited, "the strict rate limit should trigger within 30 rapid requests")
}
