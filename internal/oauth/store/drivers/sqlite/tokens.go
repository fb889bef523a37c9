package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/oddgrid/grantd/internal/oauth/domain"
	"github.com/oddgrid/grantd/internal/oauth/store"
	"github.com/oddgrid/grantd/pkg/idx"
)

type tokensRepo struct {
	q querier
}

const tokenColumns = `id, kind, token_hash, pair_id, client_id, user_id, scopes, state, issued_at, expires_at`

func (r *tokensRepo) Create(ctx context.Context, t *domain.Token) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO tokens (`+tokenColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(),
		string(t.Kind),
		t.TokenHash,
		t.PairID.String(),
		t.ClientID.String(),
		t.UserID.String(),
		joinScopes(t.Scopes),
		string(t.State),
		t.IssuedAt.Unix(),
		mapOptionalUnix(t.ExpiresAt),
	)
	return mapConstraint(err)
}

func (r *tokensRepo) GetByHash(ctx context.Context, hash string) (*domain.Token, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+tokenColumns+` FROM tokens WHERE token_hash = ?`,
		hash,
	)
	return scanToken(row)
}

func (r *tokensRepo) GetActiveByHash(
	ctx context.Context,
	hash string,
	kind domain.TokenKind,
	now time.Time,
) (*domain.Token, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+tokenColumns+` FROM tokens
		WHERE token_hash = ?
		  AND kind = ?
		  AND state = 'active'
		  AND (expires_at IS NULL OR expires_at > ?)`,
		hash,
		string(kind),
		now.Unix(),
	)
	return scanToken(row)
}

// ConsumeRefresh flips an active refresh token to rotated and returns the
// consumed record in one statement. The WHERE clause is the compare half of
// the compare-and-set: a concurrent caller that already rotated the token
// matches zero rows and gets ErrNotFound.
func (r *tokensRepo) ConsumeRefresh(
	ctx context.Context,
	hash string,
	now time.Time,
) (*domain.Token, error) {
	row := r.q.QueryRowContext(ctx, `
		UPDATE tokens SET state = 'rotated'
		WHERE token_hash = ?
		  AND kind = 'refresh'
		  AND state = 'active'
		  AND (expires_at IS NULL OR expires_at > ?)
		RETURNING `+tokenColumns,
		hash,
		now.Unix(),
	)
	return scanToken(row)
}

func (r *tokensRepo) Revoke(ctx context.Context, hash string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE tokens SET state = 'revoked' WHERE token_hash = ?`,
		hash,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// RevokePair only touches active rows so a refresh token already marked
// rotated keeps that state for audit purposes.
func (r *tokensRepo) RevokePair(ctx context.Context, pairID idx.ID) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE tokens SET state = 'revoked'
		WHERE pair_id = ? AND state = 'active'`,
		pairID.String(),
	)
	return err
}

// DeleteExpired prunes dead rows: tokens past their expiry, plus rotated and
// revoked tokens issued before the cutoff. The issued_at key matters for the
// latter because refresh tokens can carry a NULL expiry, so every rotation
// would otherwise leave a row behind forever.
func (r *tokensRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM tokens
		WHERE (expires_at IS NOT NULL AND expires_at <= ?)
		   OR (state IN ('rotated', 'revoked') AND issued_at <= ?)`,
		cutoff.Unix(),
		cutoff.Unix(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanToken(row *sql.Row) (*domain.Token, error) {
	var (
		t                          domain.Token
		rawID, rawPair, rawClient  string
		rawUser, rawKind, rawState string
		scopes                     string
		issuedAt                   int64
		expiresAt                  sql.NullInt64
	)
	if err := row.Scan(
		&rawID, &rawKind, &t.TokenHash, &rawPair, &rawClient,
		&rawUser, &scopes, &rawState, &issuedAt, &expiresAt,
	); err != nil {
		return nil, mapNotFound(err)
	}

	t.ID = mapID(rawID)
	t.Kind = domain.TokenKind(rawKind)
	t.PairID = mapID(rawPair)
	t.ClientID = mapID(rawClient)
	t.UserID = mapID(rawUser)
	t.Scopes = splitScopes(scopes)
	t.State = domain.TokenState(rawState)
	t.IssuedAt = time.Unix(issuedAt, 0).UTC()
	t.ExpiresAt = mapNullUnixPtr(expiresAt)
	return &t, nil
}
