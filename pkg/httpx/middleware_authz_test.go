package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func doWithScopes(t *testing.T, h http.Handler, scopes []string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/v1/userinfo", nil)
	req = req.WithContext(contextWithIdentity(req.Context(), BearerIdentity{
		ClientID: "client",
		Scopes:   scopes,
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequireAnyScope(t *testing.T) {
	t.Parallel()

	h := Chain(okHandler(), RequireAnyScope("profile", "admin"))

	require.Equal(t, http.StatusOK, doWithScopes(t, h, []string{"profile"}).Code)
	require.Equal(t, http.StatusOK, doWithScopes(t, h, []string{"orders:read", "admin"}).Code)

	rec := doWithScopes(t, h, []string{"orders:read"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "insufficient_scope")

	// No scopes at all is forbidden too.
	require.Equal(t, http.StatusForbidden, doWithScopes(t, h, nil).Code)
}

func TestRequireAllScopes(t *testing.T) {
	t.Parallel()

	h := Chain(okHandler(), RequireAllScopes("orders:read", "orders:write"))

	require.Equal(t, http.StatusOK,
		doWithScopes(t, h, []string{"orders:read", "orders:write", "profile"}).Code)

	rec := doWithScopes(t, h, []string{"orders:read"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "insufficient_scope")
}
