package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize128 provides 128 bits of entropy (22 chars base64url).
	TokenSize128 = 16
	// TokenSize256 provides 256 bits of entropy (43 chars base64url).
	TokenSize256 = 32
	// TokenSizeOpaque provides 384 bits of entropy and encodes to exactly
	// 64 base64url characters. All issued access and refresh tokens use
	// this size so their wire form has a fixed, predictable length.
	TokenSizeOpaque = 48
)

// OpaqueTokenLength is the character length of every issued token value.
const OpaqueTokenLength = 64

// GenerateToken creates a cryptographically secure random token of the
// specified byte length. The token is returned as a base64url-encoded string
// (URL-safe, no padding). Returns an error if the random number generator
// fails.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MustGenerateToken is like GenerateToken but panics on error. Use this only
// during initialization or in contexts where failure is unrecoverable.
func MustGenerateToken(size int) string {
	token, err := GenerateToken(size)
	if err != nil {
		panic(fmt.Sprintf("cryptox: failed to generate token: %v", err))
	}
	return token
}

// GenerateOpaqueToken mints a bearer token value of exactly
// OpaqueTokenLength characters.
func GenerateOpaqueToken() (string, error) {
	return GenerateToken(TokenSizeOpaque)
}

// FingerprintToken returns a deterministic SHA-256 fingerprint of a token.
// Issued tokens are stored by fingerprint only, so a database leak never
// exposes usable bearer credentials. Lookup of a presented token goes through
// the same function.
//
// The fingerprint is returned as a base64url-encoded string (43 chars).
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
