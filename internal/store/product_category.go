package store

import (
	"context"

	"github.com/vente/apiserver/internal/db"
	"github.com/vente/apiserver/types"
)

// ProductCategoryRepository handles the product_categories association table.
type ProductCategoryRepository struct {
	db db.DBTX
}

func NewProductCategoryRepository(conn db.DBTX) *ProductCategoryRepository {
	return &ProductCategoryRepository{db: conn}
}

// ListCategories returns the categories linked to productID in link order.
func (r *ProductCategoryRepository) ListCategories(ctx context.Context, productID int) ([]types.Category, error) {
	const query = `
		SELECT c.id, c.name, c.description, c.is_active
		FROM product_categories pc
		JOIN categories c ON c.id = pc.category_id
		WHERE pc.product_id = $1
		ORDER BY pc.id`
	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]types.Category, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *ProductCategoryRepository) Add(ctx context.Context, productID, categoryID int) (types.ProductCategory, error) {
	link := types.ProductCategory{ProductID: productID, CategoryID: categoryID}

	const query = `
		INSERT INTO product_categories (product_id, category_id)
		VALUES ($1, $2)
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, productID, categoryID).Scan(&link.ID); err != nil {
		return types.ProductCategory{}, translateError(err)
	}
	return link, nil
}

// DeleteByProduct removes every link of productID and returns how many went.
func (r *ProductCategoryRepository) DeleteByProduct(ctx context.Context, productID int) (int64, error) {
	const query = `DELETE FROM product_categories WHERE product_id = $1`
	result, err := r.db.ExecContext(ctx, query, productID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteByCategory removes every link of categoryID and returns how many went.
func (r *ProductCategoryRepository) DeleteByCategory(ctx context.Context, categoryID int) (int64, error) {
	const query = `DELETE FROM product_categories WHERE category_id = $1`
	result, err := r.db.ExecContext(ctx, query, categoryID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
