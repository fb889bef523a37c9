/*
Package authsdk provides a client SDK for the grantd authorization service.

The SDK wraps the token endpoint (client_credentials, password and
refresh_token grants), token revocation and introspection, the guarded
userinfo endpoint, one-time bootstrap, and the health probes.

	client := authsdk.NewSDKClient("https://auth.example.com")

	// Machine-to-machine authentication
	tokens, err := client.ClientCredentialsGrant(ctx, clientID, clientSecret, []string{"app-1"})

	// Resource-owner authentication
	tokens, err = client.PasswordGrant(ctx, clientID, clientSecret, "alice", "s3cret", nil)

	// Rotate the refresh token
	tokens, err = client.RefreshGrant(ctx, clientID, clientSecret, tokens.RefreshToken)

All tokens are opaque 64-character values; there is nothing to decode
client-side. Server errors surface as *OAuth2Error values carrying the RFC
6749 error code and HTTP status.
*/
package authsdk
