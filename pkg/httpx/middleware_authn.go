package httpx

import (
	"context"
	"net/http"
	"strings"
)

// BearerIdentity is the resolved identity behind a presented bearer token.
// UserID, Username and Email are empty for client-only (machine) tokens.
type BearerIdentity struct {
	ClientID string
	UserID   string
	Username string
	Email    string
	Scopes   []string
}

// BearerVerifier resolves a presented opaque token to an identity. Tokens are
// opaque values whose validity is determined solely by server-side lookup, so
// verification requires a round trip to the token store.
type BearerVerifier interface {
	VerifyBearer(ctx context.Context, token string) (BearerIdentity, error)
}

// AuthnMiddleware guards a handler behind bearer-token verification. On
// success the resolved identity is attached to the request context; any
// failure is a uniform 401 with no cause detail.
func AuthnMiddleware(v BearerVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			ident, err := v.VerifyBearer(ctx, raw)
			if err != nil {
				writeBearerError(w, "token verification failed")
				return
			}

			ctx = contextWithIdentity(ctx, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithIdentity(ctx context.Context, ident BearerIdentity) context.Context {
	ctx = context.WithValue(ctx, CtxKeyClientID, ident.ClientID)
	ctx = context.WithValue(ctx, CtxKeyUserID, ident.UserID)
	ctx = context.WithValue(ctx, CtxKeyScopes, ident.Scopes)
	ctx = context.WithValue(ctx, CtxKeyIdentity, ident)
	return ctx
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
