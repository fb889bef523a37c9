package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/oddgrid/grantd/internal/oauth/domain"
	"github.com/oddgrid/grantd/internal/oauth/store"
	"github.com/oddgrid/grantd/pkg/cryptox"
	"github.com/oddgrid/grantd/pkg/idx"
	"github.com/oddgrid/grantd/pkg/slogx"
)

var (
	ErrBootstrapAlready      = errors.New("system already bootstrapped")
	ErrBootstrapUnauthorized = errors.New("unauthorized bootstrap attempt")
)

// BootstrapService seeds the first client and admin user. It can run exactly
// once; any later attempt fails regardless of the token.
type BootstrapService struct {
	Store store.Store
	Token string // Pre-configured bootstrap token
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	clients, err := s.Store.Clients().Count(ctx)
	if err != nil {
		return false, err
	}
	users, err := s.Store.Users().Count(ctx)
	if err != nil {
		return false, err
	}
	return clients > 0 || users > 0, nil
}

// Bootstrap creates the protected initial client and the admin user, and
// returns the client id, the one-time visible client secret, and the admin
// user id.
func (s *BootstrapService) Bootstrap(
	ctx context.Context,
	token string,
	req domain.BootstrapData,
) (string, string, string, error) {
	l := slogx.FromContext(ctx)

	if bootstrapped, err := s.IsBootstrapped(ctx); err != nil {
		return "", "", "", err
	} else if bootstrapped {
		l.Warn("attempted bootstrap on already-bootstrapped system")
		return "", "", "", ErrBootstrapAlready
	}

	if s.Token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.Token)) != 1 {
		l.Warn("unauthorized bootstrap attempt")
		return "", "", "", ErrBootstrapUnauthorized
	}

	passHash, err := cryptox.HashSecret(req.AdminPassword)
	if err != nil {
		l.Error("failed to hash admin password", slog.Any("error", err))
		return "", "", "", err
	}

	clientSecret, err := cryptox.GenerateOpaqueToken()
	if err != nil {
		return "", "", "", err
	}
	clientSecretHash, err := cryptox.HashSecret(clientSecret)
	if err != nil {
		return "", "", "", err
	}

	now := time.Now().UTC()
	adminUserID := idx.New()
	clientID := idx.New()

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().Create(ctx, &domain.User{
			ID:           adminUserID,
			Username:     req.AdminUsername,
			Email:        req.AdminEmail,
			PasswordHash: passHash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			l.Error("failed to create admin user", slog.Any("error", err))
			return err
		}

		// The bootstrap client is confidential, allowed every grant type,
		// and protected from deletion.
		if err := tx.Clients().Create(ctx, &domain.Client{
			ID:         clientID,
			Name:       req.ClientName,
			SecretHash: clientSecretHash,
			Scopes:     req.ClientScopes,
			GrantTypes: []string{
				domain.GrantClientCredentials,
				domain.GrantPassword,
				domain.GrantRefreshToken,
			},
			Protected: true,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			l.Error("failed to create client", slog.Any("error", err))
			return err
		}
		return nil
	})
	if err != nil {
		return "", "", "", err
	}

	l.Info("successfully bootstrapped system",
		slog.String("admin_user_id", adminUserID.String()),
		slog.String("client_id", clientID.String()),
	)
	return clientID.String(), clientSecret, adminUserID.String(), nil
}
