package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oddgrid/grantd/internal/oauth/domain"
	"github.com/oddgrid/grantd/internal/oauth/identity"
	"github.com/oddgrid/grantd/internal/oauth/store"
	"github.com/oddgrid/grantd/pkg/cryptox"
	"github.com/oddgrid/grantd/pkg/idx"
	"github.com/oddgrid/grantd/pkg/slogx"
)

var (
	ErrInvalidClient      = errors.New("invalid_client")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
	ErrInvalidScope       = errors.New("invalid_scope")
	ErrUnsupportedGrant   = errors.New("unsupported_grant_type")
	ErrUnauthorizedGrant  = errors.New("unauthorized_grant_type")
	ErrInvalidValidity    = errors.New("invalid_validity_window")
)

// GrantRequest carries the parsed token endpoint parameters for any of the
// supported grant types. Fields irrelevant to the grant type are ignored.
type GrantRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string

	// Password grant.
	Username string
	Password string

	// Refresh grant.
	RefreshToken string

	Scopes []string

	// Optional explicit validity window for the access token, overriding
	// the configured TTL. Zero values mean "use defaults". When both are
	// set, ExpiresAt must be after IssuedAt.
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService implements the token endpoint grants and the token lifecycle
// operations (revocation, introspection).
type TokenService struct {
	Store    store.Store
	Identity identity.Backend

	// AccessTTL is the access token lifetime. RefreshTTL of zero means
	// refresh tokens never expire.
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// GrantDefaultScopes grants the client's full scope set when a request
	// names no scopes. When off, an empty request yields an empty grant.
	GrantDefaultScopes bool

	// RevokePairedAccess revokes the sibling access token whenever a refresh
	// token is rotated or revoked.
	RevokePairedAccess bool
}

// Exchange dispatches a token request to the matching grant handler.
func (s *TokenService) Exchange(ctx context.Context, req GrantRequest) (*domain.TokenPair, error) {
	switch req.GrantType {
	case domain.GrantClientCredentials:
		return s.exchangeClientCredentials(ctx, req)
	case domain.GrantPassword:
		return s.exchangePassword(ctx, req)
	case domain.GrantRefreshToken:
		return s.exchangeRefreshToken(ctx, req)
	default:
		return nil, ErrUnsupportedGrant
	}
}

// exchangeClientCredentials implements the OAuth2 client_credentials grant.
// The client is the subject; no user identity is attached to the tokens.
func (s *TokenService) exchangeClientCredentials(
	ctx context.Context,
	req GrantRequest,
) (*domain.TokenPair, error) {
	now := time.Now().UTC()

	client, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret, req.GrantType)
	if err != nil {
		return nil, err
	}

	scopes, err := s.authorizeScopes(client, req.Scopes)
	if err != nil {
		return nil, err
	}

	return s.mintPair(ctx, client, idx.Zero, scopes, now, req)
}

// exchangePassword implements the OAuth2 password grant. Credential
// verification is delegated to the identity backend so failures for unknown
// users and wrong passwords are indistinguishable.
func (s *TokenService) exchangePassword(
	ctx context.Context,
	req GrantRequest,
) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	client, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret, req.GrantType)
	if err != nil {
		return nil, err
	}

	// User credentials are checked before scope policy: a request that fails
	// both answers 401, not 403.
	user, err := s.Identity.Verify(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidUser) {
			l.Info("password grant credential verification failed",
				slog.String("client_id", client.ID.String()),
			)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	scopes, err := s.authorizeScopes(client, req.Scopes)
	if err != nil {
		return nil, err
	}

	return s.mintPair(ctx, client, user.ID, scopes, now, req)
}

// exchangeRefreshToken implements the OAuth2 refresh_token grant with
// rotation. The presented refresh token is consumed with a compare-and-set
// inside the minting transaction, so of two concurrent renewals exactly one
// obtains a new pair and the other fails without side effects.
func (s *TokenService) exchangeRefreshToken(
	ctx context.Context,
	req GrantRequest,
) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	client, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret, req.GrantType)
	if err != nil {
		return nil, err
	}

	presented := strings.TrimSpace(req.RefreshToken)
	if presented == "" {
		return nil, ErrInvalidRefresh
	}
	fp := cryptox.FingerprintToken(presented)

	var result *domain.TokenPair

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		consumed, err := tx.Tokens().ConsumeRefresh(ctx, fp, now)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}

		// Ownership check happens after the CAS so a mismatch rolls the
		// rotation back and leaves the token usable by its real owner.
		if consumed.ClientID != client.ID {
			l.Warn("refresh token presented by wrong client",
				slog.String("client_id", client.ID.String()),
				slog.String("owner_client_id", consumed.ClientID.String()),
			)
			return ErrInvalidRefresh
		}

		if s.RevokePairedAccess {
			if err := tx.Tokens().RevokePair(ctx, consumed.PairID); err != nil {
				return err
			}
		}

		pair, err := s.mintPairTx(ctx, tx, client, consumed.UserID, consumed.Scopes, now, req)
		if err != nil {
			return err
		}
		result = pair
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Revoke invalidates a token by its opaque value (RFC 7009). Unknown tokens
// are not an error; revocation is idempotent from the caller's view.
func (s *TokenService) Revoke(ctx context.Context, opaque string) error {
	fp := cryptox.FingerprintToken(strings.TrimSpace(opaque))

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		t, err := tx.Tokens().GetByHash(ctx, fp)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}

		if err := tx.Tokens().Revoke(ctx, fp); err != nil {
			return err
		}

		if s.RevokePairedAccess && t.Kind == domain.TokenKindRefresh {
			return tx.Tokens().RevokePair(ctx, t.PairID)
		}
		return nil
	})
}

// IntrospectionResult is the service-level view of a presented token.
type IntrospectionResult struct {
	Active    bool
	Scopes    []string
	ClientID  idx.ID
	Username  string
	TokenKind domain.TokenKind
	Subject   string
	IssuedAt  time.Time
	ExpiresAt *time.Time
}

// Introspect reports the state of a presented token (RFC 7662). Unknown,
// rotated, revoked and expired tokens all yield an inactive result rather
// than an error.
func (s *TokenService) Introspect(ctx context.Context, opaque string) (*IntrospectionResult, error) {
	now := time.Now().UTC()

	fp := cryptox.FingerprintToken(strings.TrimSpace(opaque))
	t, err := s.Store.Tokens().GetByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &IntrospectionResult{Active: false}, nil
		}
		return nil, err
	}

	if !t.Usable(now) {
		return &IntrospectionResult{Active: false}, nil
	}

	res := &IntrospectionResult{
		Active:    true,
		Scopes:    t.Scopes,
		ClientID:  t.ClientID,
		TokenKind: t.Kind,
		Subject:   t.ClientID.String(),
		IssuedAt:  t.IssuedAt,
		ExpiresAt: t.ExpiresAt,
	}

	if !t.UserID.IsZero() {
		res.Subject = t.UserID.String()
		if ident, err := s.Identity.Lookup(ctx, t.UserID); err == nil {
			res.Username = ident.Username
		}
	}

	return res, nil
}

// authenticateClient loads the client and verifies its secret and grant type
// allowance. All authentication failures collapse to ErrInvalidClient.
func (s *TokenService) authenticateClient(
	ctx context.Context,
	clientID, clientSecret, grantType string,
) (*domain.Client, error) {
	l := slogx.FromContext(ctx)

	id, err := idx.Parse(clientID)
	if err != nil {
		_ = cryptox.VerifySecret(clientSecret, cryptox.DummySecretHash())
		return nil, ErrInvalidClient
	}

	client, err := s.Store.Clients().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = cryptox.VerifySecret(clientSecret, cryptox.DummySecretHash())
			return nil, ErrInvalidClient
		}
		return nil, err
	}

	if err := cryptox.VerifySecret(clientSecret, client.SecretHash); err != nil {
		l.Info("client secret verification failed", slog.String("client_id", clientID))
		return nil, ErrInvalidClient
	}

	if !client.AllowsGrantType(grantType) {
		l.Info("client not authorized for grant type",
			slog.String("client_id", clientID),
			slog.String("grant_type", grantType),
		)
		return nil, ErrUnauthorizedGrant
	}

	return client, nil
}

// authorizeScopes enforces the whole-request scope policy: any requested
// scope outside the client's allowed set rejects the entire request rather
// than silently narrowing it.
func (s *TokenService) authorizeScopes(client *domain.Client, requested []string) ([]string, error) {
	requested = dedupe(requested)

	if len(requested) == 0 {
		if s.GrantDefaultScopes {
			return client.Scopes, nil
		}
		return nil, nil
	}

	if !client.AllowsScopes(requested) {
		return nil, ErrInvalidScope
	}
	return requested, nil
}

// mintPair creates and persists a fresh access/refresh token pair in its own
// transaction.
func (s *TokenService) mintPair(
	ctx context.Context,
	client *domain.Client,
	userID idx.ID,
	scopes []string,
	now time.Time,
	req GrantRequest,
) (*domain.TokenPair, error) {
	var result *domain.TokenPair
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		pair, err := s.mintPairTx(ctx, tx, client, userID, scopes, now, req)
		if err != nil {
			return err
		}
		result = pair
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// mintPairTx mints both opaque tokens and stores their fingerprints inside
// the caller's transaction. The plaintext values leave this function only in
// the returned pair and are never persisted.
func (s *TokenService) mintPairTx(
	ctx context.Context,
	tx store.Tx,
	client *domain.Client,
	userID idx.ID,
	scopes []string,
	now time.Time,
	req GrantRequest,
) (*domain.TokenPair, error) {
	issuedAt, accessExpiry, err := s.accessValidity(now, req)
	if err != nil {
		return nil, err
	}

	accessOpaque, err := cryptox.GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}
	refreshOpaque, err := cryptox.GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}

	pairID := idx.New()

	access := domain.Token{
		ID:        idx.New(),
		Kind:      domain.TokenKindAccess,
		TokenHash: cryptox.FingerprintToken(accessOpaque),
		PairID:    pairID,
		ClientID:  client.ID,
		UserID:    userID,
		Scopes:    scopes,
		State:     domain.TokenStateActive,
		IssuedAt:  issuedAt,
		ExpiresAt: &accessExpiry,
	}

	refresh := domain.Token{
		ID:        idx.New(),
		Kind:      domain.TokenKindRefresh,
		TokenHash: cryptox.FingerprintToken(refreshOpaque),
		PairID:    pairID,
		ClientID:  client.ID,
		UserID:    userID,
		Scopes:    scopes,
		State:     domain.TokenStateActive,
		IssuedAt:  issuedAt,
	}
	if s.RefreshTTL > 0 {
		exp := issuedAt.Add(s.RefreshTTL)
		refresh.ExpiresAt = &exp
	}

	if err := tx.Tokens().Create(ctx, &access); err != nil {
		return nil, err
	}
	if err := tx.Tokens().Create(ctx, &refresh); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessOpaque,
		RefreshToken: refreshOpaque,
		TokenType:    "bearer",
		ExpiresIn:    int(accessExpiry.Sub(issuedAt).Seconds()),
		Scopes:       scopes,
	}, nil
}

// accessValidity resolves the access token validity window, honoring the
// explicit iat/exp overrides when present.
func (s *TokenService) accessValidity(now time.Time, req GrantRequest) (time.Time, time.Time, error) {
	issuedAt := now
	if !req.IssuedAt.IsZero() {
		issuedAt = req.IssuedAt.UTC()
	}

	expiry := issuedAt.Add(s.AccessTTL)
	if !req.ExpiresAt.IsZero() {
		expiry = req.ExpiresAt.UTC()
	}

	if !expiry.After(issuedAt) {
		return time.Time{}, time.Time{}, ErrInvalidValidity
	}
	return issuedAt, expiry, nil
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
