package cryptox

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifySecret(t *testing.T) {
	SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	t.Run("round trip", func(t *testing.T) {
		hash, err := HashSecret("correct horse battery staple")
		require.NoError(t, err)
		require.Contains(t, hash, "$argon2id$v=19$")

		require.NoError(t, VerifySecret("correct horse battery staple", hash))
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		hash, err := HashSecret("hunter2")
		require.NoError(t, err)

		require.Error(t, VerifySecret("hunter3", hash))
		require.Error(t, VerifySecret("", hash))
	})

	t.Run("same secret hashes differently", func(t *testing.T) {
		a, err := HashSecret("hunter2")
		require.NoError(t, err)
		b, err := HashSecret("hunter2")
		require.NoError(t, err)

		// Random salt per hash.
		require.NotEqual(t, a, b)
	})

	t.Run("malformed hashes are rejected", func(t *testing.T) {
		require.Error(t, VerifySecret("x", ""))
		require.Error(t, VerifySecret("x", "not-a-phc-string"))
		require.Error(t, VerifySecret("x", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA"))
		require.Error(t, VerifySecret("x", "$argon2id$v=18$m=1,t=1,p=1$c2FsdA$aGFzaA"))
	})
}
