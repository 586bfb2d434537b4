package services

import (
	"context"
	"database/sql"

	"github.com/vente/apiserver/internal/db"
	"github.com/vente/apiserver/internal/store"
)

type sqlCatalogStore struct {
	conn *sql.DB
	q    db.DBTX
	tx   bool
}

// NewSQLCatalogStore returns a CatalogStore backed by the postgres
// repositories in package store.
func NewSQLCatalogStore(conn *sql.DB) CatalogStore {
	return &sqlCatalogStore{conn: conn, q: conn}
}

func (s *sqlCatalogStore) Products() ProductRepository {
	return store.NewProductRepository(s.q)
}

func (s *sqlCatalogStore) Categories() CategoryRepository {
	return store.NewCategoryRepository(s.q)
}

func (s *sqlCatalogStore) Links() ProductCategoryRepository {
	return store.NewProductCategoryRepository(s.q)
}

// InTx runs fn in a new transaction, or in the current one when s is already
// transactional.
func (s *sqlCatalogStore) InTx(ctx context.Context, fn func(ctx context.Context, tx CatalogStore) error) error {
	if s.tx {
		return fn(ctx, s)
	}
	return db.WithTx(ctx, s.conn, nil, func(ctx context.Context, q db.DBTX) error {
		return fn(ctx, &sqlCatalogStore{conn: s.conn, q: q, tx: true})
	})
}
