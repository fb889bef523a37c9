package http

import (
	"net/http"
	"strings"

	"github.com/oddgrid/grantd/internal/oauth/domain"
	"github.com/oddgrid/grantd/internal/oauth/service"
	"github.com/oddgrid/grantd/pkg/authsdk"
	"github.com/oddgrid/grantd/pkg/httpx"
	"github.com/oddgrid/grantd/pkg/slogx"
)

// IntrospectHandler serves POST /v1/oauth2/introspect following RFC 7662.
// The presented token is looked up by fingerprint; no state about unknown
// tokens leaks beyond active=false.
type IntrospectHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Introspection Endpoint
//	@Description	Introspects a token and returns metadata about it (RFC 7662)
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Security		BearerAuth
//	@Param			token			formData	string							true	"The token to introspect"
//	@Param			token_type_hint	formData	string							false	"Hint about token type"	Enums(access_token, refresh_token)
//	@Success		200				{object}	authsdk.IntrospectionResponse	"Token introspection result"
//	@Failure		400				{object}	authsdk.ErrorResponse			"error, error_description"
//	@Failure		401				{object}	authsdk.ErrorResponse			"error, error_description"
//	@Header			200				{string}	Cache-Control					"no-store"
//	@Header			200				{string}	Pragma							"no-cache"
//	@Router			/v1/oauth2/introspect [post].
func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}

	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	token := r.Form.Get("token")
	if token == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.TokenService.Introspect(ctx, token)
	if err != nil {
		log.Error("introspection failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	if !res.Active {
		// Per RFC 7662, inactive tokens get the minimal response without
		// revealing why.
		writeInactiveResponse(w)
		return
	}

	response := authsdk.IntrospectionResponse{
		Active:    true,
		Scope:     strings.Join(res.Scopes, " "),
		ClientID:  res.ClientID.String(),
		Username:  res.Username,
		TokenType: tokenTypeLabel(res.TokenKind),
		Sub:       res.Subject,
		Iat:       res.IssuedAt.Unix(),
	}
	if res.ExpiresAt != nil {
		response.Exp = res.ExpiresAt.Unix()
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, response)
}

func tokenTypeLabel(kind domain.TokenKind) string {
	if kind == domain.TokenKindRefresh {
		return "refresh_token"
	}
	return "bearer"
}

// writeInactiveResponse returns the minimal RFC 7662 response for inactive tokens.
func writeInactiveResponse(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"active":false}`))
}
