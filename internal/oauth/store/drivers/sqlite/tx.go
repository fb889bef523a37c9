package sqlite

import (
	"database/sql"

	"github.com/oddgrid/grantd/internal/oauth/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Clients() store.ClientRepository { return &clientsRepo{q: t.tx} }
func (t *txStore) Users() store.UserRepository     { return &usersRepo{q: t.tx} }
func (t *txStore) Tokens() store.TokenRepository   { return &tokensRepo{q: t.tx} }
