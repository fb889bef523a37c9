package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/oddgrid/grantd/internal/oauth/service"
	"github.com/oddgrid/grantd/pkg/authsdk"
	"github.com/oddgrid/grantd/pkg/httpx"
	"github.com/oddgrid/grantd/pkg/slogx"
)

// TokenHandler serves POST /v1/oauth2/token
// Accepts application/x-www-form-urlencoded per the RFC 6749 framework.
type TokenHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Endpoint
//	@Description	Issues an opaque access/refresh token pair using OAuth2 grant types (client_credentials, password, refresh_token).
//	@Description	All tokens are opaque 64-character values; validity is determined solely by server-side lookup.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type		formData	string					true	"Grant type"	Enums(client_credentials, password, refresh_token)
//	@Param			client_id		formData	string					true	"Client identifier (required for all grants)"
//	@Param			client_secret	formData	string					true	"Client secret (required for all grants)"
//	@Param			username		formData	string					false	"Resource owner username (required for password grant)"
//	@Param			password		formData	string					false	"Resource owner password (required for password grant)"
//	@Param			refresh_token	formData	string					false	"Refresh token (required for refresh_token grant)"
//	@Param			scope			formData	string					false	"Space-delimited list of scopes"
//	@Param			iat				formData	integer					false	"Explicit issued-at epoch seconds for the access token"
//	@Param			exp				formData	integer					false	"Explicit expiry epoch seconds for the access token"
//	@Success		201				{object}	authsdk.TokenResponse	"access_token, refresh_token, token_type, expires_in, scope"
//	@Failure		400				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		403				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		500				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Header			201				{string}	Cache-Control			"no-store"
//	@Header			201				{string}	Pragma					"no-cache"
//	@Router			/v1/oauth2/token [post].
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// 1. Ensure the right content-type
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}

	// 2. Parse the form body
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	req, ok := parseGrantRequest(w, r)
	if !ok {
		return
	}

	// 3. Exchange the grant for a token pair
	pair, err := h.TokenService.Exchange(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedGrant):
			authsdk.ErrUnsupportedGrantType.WriteError(w)
		case errors.Is(err, service.ErrUnauthorizedGrant):
			authsdk.ErrUnauthorizedClient.WriteError(w)
		case errors.Is(err, service.ErrInvalidClient):
			authsdk.ErrInvalidClient.WriteError(w)
		case errors.Is(err, service.ErrInvalidCredentials),
			errors.Is(err, service.ErrInvalidRefresh):
			authsdk.ErrInvalidGrant.WriteError(w)
		case errors.Is(err, service.ErrInvalidScope):
			authsdk.ErrInvalidScope.WriteError(w)
		case errors.Is(err, service.ErrInvalidValidity):
			authsdk.ErrInvalidRequest.WriteError(w)
		default:
			log.Error("token exchange failed", "grant_type", req.GrantType, "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	response := authsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
		Scope:        strings.Join(pair.Scopes, " "),
	}

	// A new resource (the token pair) was created.
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, response)
}

// parseGrantRequest builds the service request from the posted form. A false
// return means the error response has already been written.
func parseGrantRequest(w http.ResponseWriter, r *http.Request) (service.GrantRequest, bool) {
	form := r.Form

	req := service.GrantRequest{
		GrantType:    strings.TrimSpace(form.Get("grant_type")),
		ClientID:     strings.TrimSpace(form.Get("client_id")),
		ClientSecret: form.Get("client_secret"),
		Username:     strings.TrimSpace(form.Get("username")),
		Password:     form.Get("password"),
		RefreshToken: strings.TrimSpace(form.Get("refresh_token")),
		Scopes:       httpx.ParseSpaceDelimitedFields(form.Get("scope")),
	}

	if req.GrantType == "" || req.ClientID == "" || req.ClientSecret == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return service.GrantRequest{}, false
	}

	for _, field := range []struct {
		name string
		dst  *time.Time
	}{
		{"iat", &req.IssuedAt},
		{"exp", &req.ExpiresAt},
	} {
		raw := strings.TrimSpace(form.Get(field.name))
		if raw == "" {
			continue
		}
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			authsdk.ErrInvalidRequest.WriteError(w)
			return service.GrantRequest{}, false
		}
		*field.dst = time.Unix(secs, 0).UTC()
	}

	return req, true
}
