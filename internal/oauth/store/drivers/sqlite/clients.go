package sqlite

import (
	"context"
	"time"

	"github.com/oddgrid/grantd/internal/oauth/domain"
	"github.com/oddgrid/grantd/pkg/idx"
)

type clientsRepo struct {
	q querier
}

func (r *clientsRepo) Create(ctx context.Context, c *domain.Client) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO clients (id, name, secret_hash, scopes, grant_types, protected, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(),
		c.Name,
		c.SecretHash,
		joinScopes(c.Scopes),
		joinScopes(c.GrantTypes),
		c.Protected,
		c.CreatedAt.Unix(),
		c.UpdatedAt.Unix(),
	)
	return mapConstraint(err)
}

func (r *clientsRepo) GetByID(ctx context.Context, id idx.ID) (*domain.Client, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, name, secret_hash, scopes, grant_types, protected, created_at, updated_at
		FROM clients WHERE id = ?`,
		id.String(),
	)

	var (
		c                    domain.Client
		rawID                string
		scopes, grantTypes   string
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&rawID, &c.Name, &c.SecretHash, &scopes, &grantTypes,
		&c.Protected, &createdAt, &updatedAt,
	); err != nil {
		return nil, mapNotFound(err)
	}

	c.ID = mapID(rawID)
	c.Scopes = splitScopes(scopes)
	c.GrantTypes = splitScopes(grantTypes)
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	c.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &c, nil
}

func (r *clientsRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&n)
	return n, err
}
