package sqlite

import (
	"context"
	"time"

	"github.com/oddgrid/grantd/internal/oauth/domain"
	"github.com/oddgrid/grantd/pkg/idx"
)

type usersRepo struct {
	q querier
}

func (r *usersRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID.String(),
		u.Username,
		u.Email,
		u.PasswordHash,
		u.CreatedAt.Unix(),
		u.UpdatedAt.Unix(),
	)
	return mapConstraint(err)
}

func (r *usersRepo) GetByID(ctx context.Context, id idx.ID) (*domain.User, error) {
	return r.get(ctx, `WHERE id = ?`, id.String())
}

func (r *usersRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.get(ctx, `WHERE username = ?`, username)
}

func (r *usersRepo) get(ctx context.Context, where string, arg any) (*domain.User, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users `+where,
		arg,
	)

	var (
		u                    domain.User
		rawID                string
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&rawID, &u.Username, &u.Email, &u.PasswordHash, &createdAt, &updatedAt,
	); err != nil {
		return nil, mapNotFound(err)
	}

	u.ID = mapID(rawID)
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &u, nil
}

func (r *usersRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
