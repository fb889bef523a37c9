package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/oddgrid/grantd/internal/oauth/domain"
	"github.com/oddgrid/grantd/internal/oauth/service"
	"github.com/oddgrid/grantd/pkg/authsdk"
	"github.com/oddgrid/grantd/pkg/httpx"
	"github.com/oddgrid/grantd/pkg/slogx"
)

type BootstrapHandler struct {
	BootstrapService *service.BootstrapService
}

// ServeHTTP handles the bootstrap endpoint for initial system setup.
//
//	@Summary		Bootstrap the authorization service
//	@Description	Initializes the service by creating the first admin user and OAuth2 client. This endpoint is only available when a bootstrap token is configured and can only be used once.
//	@Tags			Bootstrap
//	@Accept			json
//	@Produce		json
//	@Param			X-Bootstrap-Token	header		string						true	"Bootstrap token for authorization"
//	@Param			request				body		authsdk.BootstrapRequest	true	"Bootstrap configuration"
//	@Success		201					{object}	authsdk.BootstrapResponse	"client_id, one-time client_secret and admin_user_id"
//	@Failure		400					{object}	authsdk.ErrorResponse		"Invalid request body or missing fields"
//	@Failure		401					{object}	authsdk.ErrorResponse		"Missing or invalid bootstrap token, or system already bootstrapped"
//	@Failure		404					{object}	authsdk.ErrorResponse		"Bootstrap not enabled (no token configured)"
//	@Failure		500					{object}	authsdk.ErrorResponse		"Failed to create admin user or client"
//	@Router			/v1/bootstrap [post].
func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if h.BootstrapService.Token == "" {
		httpx.WriteJSON(w, http.StatusNotFound, authsdk.ErrorResponse{
			Error:            "not_found",
			ErrorDescription: "Bootstrap endpoint is not enabled",
		})
		return
	}

	token := r.Header.Get("X-Bootstrap-Token")
	if token == "" {
		httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.ErrorResponse{
			Error:            "unauthorized",
			ErrorDescription: "Bootstrap token is required in X-Bootstrap-Token header",
		})
		return
	}

	var req authsdk.BootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Request body must be valid JSON",
		})
		return
	}

	req.AdminUsername = strings.TrimSpace(req.AdminUsername)
	req.AdminEmail = strings.TrimSpace(req.AdminEmail)
	req.ClientName = strings.TrimSpace(req.ClientName)
	if req.AdminUsername == "" || req.AdminPassword == "" || req.ClientName == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "admin_username, admin_password and client_name are required",
		})
		return
	}

	clientID, clientSecret, adminUserID, err := h.BootstrapService.Bootstrap(
		ctx,
		token,
		domain.BootstrapData{
			AdminUsername: req.AdminUsername,
			AdminEmail:    req.AdminEmail,
			AdminPassword: req.AdminPassword,
			ClientName:    req.ClientName,
			ClientScopes:  req.ClientScopes,
		},
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBootstrapAlready):
			httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.ErrorResponse{
				Error:            "unauthorized",
				ErrorDescription: "System has already been bootstrapped",
			})
		case errors.Is(err, service.ErrBootstrapUnauthorized):
			httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.ErrorResponse{
				Error:            "unauthorized",
				ErrorDescription: "Invalid bootstrap token",
			})
		default:
			log.Error("bootstrap failed", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, authsdk.ErrorResponse{
				Error:            "server_error",
				ErrorDescription: "Failed to bootstrap the system",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.BootstrapResponse{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AdminUserID:  adminUserID,
	})
}
