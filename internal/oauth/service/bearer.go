package service

import (
	"context"
	"errors"
	"time"

	"github.com/oddgrid/grantd/internal/oauth/domain"
	"github.com/oddgrid/grantd/internal/oauth/identity"
	"github.com/oddgrid/grantd/internal/oauth/store"
	"github.com/oddgrid/grantd/pkg/cryptox"
	"github.com/oddgrid/grantd/pkg/httpx"
	"github.com/oddgrid/grantd/pkg/slogx"
)

// ErrInvalidToken is returned when a presented bearer token is unknown,
// expired, rotated or revoked.
var ErrInvalidToken = errors.New("invalid_token")

// BearerService resolves opaque bearer access tokens into the identity they
// were issued to. It implements httpx.BearerVerifier so guarded routes can
// authenticate straight against the token store.
type BearerService struct {
	Store    store.Store
	Identity identity.Backend
}

// VerifyBearer looks up a presented access token by fingerprint. Only active,
// unexpired access tokens resolve; everything else is ErrInvalidToken.
func (s *BearerService) VerifyBearer(ctx context.Context, opaque string) (httpx.BearerIdentity, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	if len(opaque) != cryptox.OpaqueTokenLength {
		return httpx.BearerIdentity{}, ErrInvalidToken
	}

	fp := cryptox.FingerprintToken(opaque)
	t, err := s.Store.Tokens().GetActiveByHash(ctx, fp, domain.TokenKindAccess, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return httpx.BearerIdentity{}, ErrInvalidToken
		}
		return httpx.BearerIdentity{}, err
	}

	ident := httpx.BearerIdentity{
		ClientID: t.ClientID.String(),
		Scopes:   t.Scopes,
	}

	if !t.UserID.IsZero() {
		u, err := s.Identity.Lookup(ctx, t.UserID)
		if err != nil {
			if errors.Is(err, identity.ErrInvalidUser) {
				// Token outlived its user; treat it as invalid.
				l.Info("bearer token references deleted user")
				return httpx.BearerIdentity{}, ErrInvalidToken
			}
			return httpx.BearerIdentity{}, err
		}
		ident.UserID = u.ID.String()
		ident.Username = u.Username
		ident.Email = u.Email
	}

	return ident, nil
}
