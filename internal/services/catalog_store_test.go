package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectProductRow(mock sqlmock.Sqlmock, id int) {
	now := time.Now().UTC()
	mock.ExpectQuery(`FROM products p WHERE p\.id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "price", "stock", "image_url", "created_by", "created_at", "updated_at"}).
			AddRow(id, "Lamp", nil, "10.00", 1, nil, nil, now, now))
}

func TestSQLReplaceCategories_Transactional(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	expectProductRow(mock, 5)
	mock.ExpectQuery(`SELECT id FROM categories WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	mock.ExpectExec(`DELETE FROM product_categories WHERE product_id = \$1`).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectQuery(`INSERT INTO product_categories`).
		WithArgs(5, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery(`INSERT INTO product_categories`).
		WithArgs(5, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	catalog := NewCatalogService(NewSQLCatalogStore(conn), nil)
	require.NoError(t, catalog.ReplaceCategories(context.Background(), 5, []int{1, 2}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLReplaceCategories_RollbackOnInsertFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	boom := errors.New("connection reset")
	mock.ExpectBegin()
	expectProductRow(mock, 5)
	mock.ExpectQuery(`SELECT id FROM categories WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	mock.ExpectExec(`DELETE FROM product_categories WHERE product_id = \$1`).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO product_categories`).
		WithArgs(5, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery(`INSERT INTO product_categories`).
		WithArgs(5, 2).
		WillReturnError(boom)
	mock.ExpectRollback()

	catalog := NewCatalogService(NewSQLCatalogStore(conn), nil)
	err = catalog.ReplaceCategories(context.Background(), 5, []int{1, 2})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLReplaceCategories_MissingCategoryWritesNothing(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	expectProductRow(mock, 5)
	mock.ExpectQuery(`SELECT id FROM categories WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectRollback()

	catalog := NewCatalogService(NewSQLCatalogStore(conn), nil)
	err = catalog.ReplaceCategories(context.Background(), 5, []int{1, 3})
	assert.EqualError(t, err, "category 3 not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCatalogStore_NestedInTxReusesTransaction(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM product_categories WHERE category_id = \$1`).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	st := NewSQLCatalogStore(conn)
	err = st.InTx(context.Background(), func(ctx context.Context, tx CatalogStore) error {
		return tx.InTx(ctx, func(ctx context.Context, inner CatalogStore) error {
			_, err := inner.Links().DeleteByCategory(ctx, 2)
			return err
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
