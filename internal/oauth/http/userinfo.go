package http

import (
	"net/http"
	"strings"

	"github.com/oddgrid/grantd/pkg/authsdk"
	"github.com/oddgrid/grantd/pkg/httpx"
)

// UserinfoHandler serves GET /v1/userinfo behind bearer authentication. The
// identity was already resolved by AuthnMiddleware; this handler only shapes
// the response.
type UserinfoHandler struct{}

// ServeHTTP godoc
//
//	@Summary		Get token holder information
//	@Description	Returns information about the identity behind the presented access token.
//	@Description	For client-only tokens the subject is the client id and the user fields are empty.
//	@Tags			OAuth2
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserinfoResponse	"sub, username, email, client_id, scope"
//	@Failure		401	{object}	authsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		403	{string}	string						"Token lacks the profile scope"
//	@Router			/v1/userinfo [get].
func (h *UserinfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ident, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	response := authsdk.UserinfoResponse{
		Sub:      ident.ClientID,
		ClientID: ident.ClientID,
		Scope:    strings.Join(ident.Scopes, " "),
	}
	if ident.UserID != "" {
		response.Sub = ident.UserID
		response.Username = ident.Username
		response.Email = ident.Email
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, response)
}
