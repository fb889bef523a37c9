package httpx

import "context"

type ctxKey string

const (
	CtxKeyClientID ctxKey = "client_id"
	CtxKeyUserID   ctxKey = "user_id"
	CtxKeyScopes   ctxKey = "scopes"
	CtxKeyIdentity ctxKey = "identity" // full BearerIdentity
)

// IdentityFromContext returns the BearerIdentity attached by AuthnMiddleware,
// or false when the request was not authenticated.
func IdentityFromContext(ctx context.Context) (BearerIdentity, bool) {
	id, ok := ctx.Value(CtxKeyIdentity).(BearerIdentity)
	return id, ok
}

func scopesFromCtx(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyScopes).([]string); ok {
		return v
	}
	return nil
}
