package authsdk

// ============================================================================
// Internal Response Types (used for JSON unmarshaling)
// ============================================================================

// ErrorResponse represents a standard OAuth2 error response per RFC 6749.
// This is used internally for parsing HTTP error responses.
// Client code should use the OAuth2Error type from errors.go instead.
type ErrorResponse struct {
	// Error is the OAuth2 error code (e.g., "invalid_request", "invalid_grant")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse represents the token endpoint response per RFC 6749. Both the
// access token and the refresh token are opaque 64-character values; validity
// is determined solely by server-side lookup.
type TokenResponse struct {
	// AccessToken is the opaque bearer token used to authenticate API requests
	AccessToken string `json:"access_token"`

	// RefreshToken is the opaque token used to obtain a new token pair
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is always "bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in"`

	// Scope is the space-delimited list of scopes granted to this token
	Scope string `json:"scope,omitempty"`
}

// IntrospectionResponse represents the RFC 7662 token introspection response.
// When a token is inactive, only the Active field is present.
type IntrospectionResponse struct {
	Active bool `json:"active"`

	// Optional fields (only present when active=true)
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Username  string `json:"username,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
	Sub       string `json:"sub,omitempty"`
}

// UserinfoResponse is the payload of the guarded userinfo endpoint. For
// client-only tokens Sub carries the client id and Username/Email are empty.
type UserinfoResponse struct {
	Sub      string `json:"sub"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	ClientID string `json:"client_id"`
	Scope    string `json:"scope,omitempty"`
}

// ============================================================================
// Bootstrap Types
// ============================================================================

// BootstrapRequest contains the data needed to seed the service with its
// first OAuth2 client and admin user.
type BootstrapRequest struct {
	// AdminUsername is the username for the initial admin user
	AdminUsername string `json:"admin_username"`

	// AdminEmail is the email address for the initial admin user
	AdminEmail string `json:"admin_email"`

	// AdminPassword is the password for the admin user
	AdminPassword string `json:"admin_password"`

	// ClientName is the name for the initial OAuth2 client
	ClientName string `json:"client_name"`

	// ClientScopes is the allowed scope set for the initial client
	ClientScopes []string `json:"client_scopes"`
}

// BootstrapResponse returns the identifiers and the one-time visible client
// secret created during bootstrap.
type BootstrapResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AdminUserID  string `json:"admin_user_id"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthChecks reports the status of critical dependencies.
type HealthChecks struct {
	Database string `json:"database"`
}

// HealthResponse is returned by the livez/readyz endpoints.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
