package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SDKClient is a client for the grantd authorization service. It wraps the
// token, revocation, introspection, userinfo, bootstrap, and health endpoints.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new authorization service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ClientCredentialsGrant requests a token pair using the OAuth2
// client_credentials grant. The resulting tokens are bound to the client
// only; no user identity is attached.
func (c *SDKClient) ClientCredentialsGrant(
	ctx context.Context,
	clientID, clientSecret string,
	scopes []string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}
	if len(scopes) > 0 {
		data.Set("scope", strings.Join(scopes, " "))
	}

	return c.requestToken(ctx, data)
}

// PasswordGrant requests a token pair using the OAuth2 password grant on
// behalf of a resource owner.
func (c *SDKClient) PasswordGrant(
	ctx context.Context,
	clientID, clientSecret, username, password string,
	scopes []string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"password"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"username":      {username},
		"password":      {password},
	}
	if len(scopes) > 0 {
		data.Set("scope", strings.Join(scopes, " "))
	}

	return c.requestToken(ctx, data)
}

// PasswordGrantWithValidity is PasswordGrant with explicit iat/exp epoch
// seconds for the issued access token.
func (c *SDKClient) PasswordGrantWithValidity(
	ctx context.Context,
	clientID, clientSecret, username, password string,
	scopes []string,
	iat, exp int64,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"password"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"username":      {username},
		"password":      {password},
		"iat":           {strconv.FormatInt(iat, 10)},
		"exp":           {strconv.FormatInt(exp, 10)},
	}
	if len(scopes) > 0 {
		data.Set("scope", strings.Join(scopes, " "))
	}

	return c.requestToken(ctx, data)
}

// RefreshGrant rotates a refresh token into a new token pair. The consumed
// refresh token can never be used again.
func (c *SDKClient) RefreshGrant(
	ctx context.Context,
	clientID, clientSecret, refreshToken string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}

	return c.requestToken(ctx, data)
}

// RevokeToken revokes an access or refresh token by value. The server
// responds 200 even for unknown tokens, so a nil error does not imply the
// token existed.
func (c *SDKClient) RevokeToken(ctx context.Context, token string) error {
	data := url.Values{
		"token": {token},
	}

	resp, err := c.postForm(ctx, "/v1/oauth2/revoke", data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf(
			"revoke request failed with status %d: %s",
			resp.StatusCode,
			string(bodyBytes),
		)
	}

	return nil
}

// Introspect returns metadata about a presented token (RFC 7662 shape).
// Inactive, unknown, rotated and expired tokens all yield {"active": false}.
func (c *SDKClient) Introspect(ctx context.Context, token string) (*IntrospectionResponse, error) {
	data := url.Values{
		"token": {token},
	}

	resp, err := c.postForm(ctx, "/v1/oauth2/introspect", data)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf(
			"introspection request failed with status %d: %s",
			resp.StatusCode,
			string(bodyBytes),
		)
	}

	var ir IntrospectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &ir, nil
}

// Userinfo calls the guarded userinfo endpoint with a bearer access token.
func (c *SDKClient) Userinfo(ctx context.Context, accessToken string) (*UserinfoResponse, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.BaseURL+"/v1/userinfo",
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, &OAuth2Error{
			StatusCode:  resp.StatusCode,
			Code:        ErrorCodeInvalidToken,
			Description: strings.TrimSpace(string(bodyBytes)),
		}
	}

	var ui UserinfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&ui); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &ui, nil
}

// Bootstrap seeds the service with its first client and admin user. The
// bootstrap token must match the server's configured pre-shared token.
func (c *SDKClient) Bootstrap(
	ctx context.Context,
	bootstrapToken string,
	breq BootstrapRequest,
) (*BootstrapResponse, error) {
	body, err := json.Marshal(breq)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.BaseURL+"/v1/bootstrap",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Bootstrap-Token", bootstrapToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf(
			"bootstrap request failed with status %d: %s",
			resp.StatusCode,
			string(bodyBytes),
		)
	}

	var br BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &br, nil
}

// GetLiveness checks whether the service is up.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/livez", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var hr HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &hr, nil
}

func (c *SDKClient) requestToken(ctx context.Context, data url.Values) (*TokenResponse, error) {
	resp, err := c.postForm(ctx, "/v1/oauth2/token", data)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Token issuance responds 201 Created.
	if resp.StatusCode != http.StatusCreated {
		return nil, parseOAuth2Error(resp)
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &tokenResp, nil
}

func (c *SDKClient) postForm(
	ctx context.Context,
	path string,
	data url.Values,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.BaseURL+path,
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// parseOAuth2Error decodes an RFC 6749 error body into an *OAuth2Error so
// callers can inspect the code and status.
func parseOAuth2Error(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)

	var er ErrorResponse
	if err := json.Unmarshal(bodyBytes, &er); err != nil || er.Error == "" {
		return fmt.Errorf(
			"token request failed with status %d: %s",
			resp.StatusCode,
			string(bodyBytes),
		)
	}

	return &OAuth2Error{
		StatusCode:  resp.StatusCode,
		Code:        er.Error,
		Description: er.ErrorDescription,
	}
}
