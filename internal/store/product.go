package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vente/apiserver/internal/db"
	"github.com/vente/apiserver/types"
)

const (
	productColumns = `p.id, p.name, p.description, p.price, p.stock, p.image_url, p.created_by, p.created_at, p.updated_at`

	defaultListLimit = 100
)

// ProductRepository handles persistence for products.
type ProductRepository struct {
	db db.DBTX
}

func NewProductRepository(conn db.DBTX) *ProductRepository {
	return &ProductRepository{db: conn}
}

func scanProduct(row interface{ Scan(...any) error }) (types.Product, error) {
	var (
		product     types.Product
		description sql.NullString
		imageURL    sql.NullString
		createdBy   sql.NullInt64
	)
	if err := row.Scan(
		&product.ID,
		&product.Name,
		&description,
		&product.Price,
		&product.Stock,
		&imageURL,
		&createdBy,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		return types.Product{}, err
	}
	product.Description = description.String
	product.ImageURL = imageURL.String
	if createdBy.Valid {
		id := int(createdBy.Int64)
		product.CreatedBy = &id
	}
	return product, nil
}

// Search lists products matching every condition set in filter, ordered by id.
// Categories are not attached.
func (r *ProductRepository) Search(ctx context.Context, filter types.ProductFilter) ([]types.Product, error) {
	var (
		conds []string
		args  []any
	)
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CategoryID != 0 {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM product_categories pc
			WHERE pc.product_id = p.id AND pc.category_id = `+bind(filter.CategoryID)+`)`)
	}
	if filter.Search != "" {
		conds = append(conds, `p.name ILIKE `+bind("%"+escapeLike(filter.Search)+"%"))
	}
	if filter.MinPrice != nil {
		conds = append(conds, `p.price >= `+bind(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		conds = append(conds, `p.price <= `+bind(*filter.MaxPrice))
	}

	offset := filter.Skip
	if offset < 0 {
		offset = 0
	}
	limit := filter.Limit
	if limit < 1 {
		limit = defaultListLimit
	}

	var query strings.Builder
	query.WriteString(`SELECT ` + productColumns + ` FROM products p`)
	if len(conds) > 0 {
		query.WriteString(` WHERE ` + strings.Join(conds, ` AND `))
	}
	query.WriteString(` ORDER BY p.id OFFSET ` + bind(offset) + ` LIMIT ` + bind(limit))

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]types.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductRepository) Get(ctx context.Context, id int) (types.Product, error) {
	const query = `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`
	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Product{}, NotFound("product", id)
		}
		return types.Product{}, err
	}
	return product, nil
}

func (r *ProductRepository) Create(ctx context.Context, product types.Product) (types.Product, error) {
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	const query = `
		INSERT INTO products (name, description, price, stock, image_url, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		product.Name,
		nullString(product.Description),
		product.Price,
		product.Stock,
		nullString(product.ImageURL),
		nullInt(product.CreatedBy),
		product.CreatedAt,
		product.UpdatedAt,
	).Scan(&product.ID); err != nil {
		return types.Product{}, translateError(err)
	}
	return product, nil
}

func (r *ProductRepository) Update(ctx context.Context, product types.Product) (types.Product, error) {
	product.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE products
		SET name = $1,
			description = $2,
			price = $3,
			stock = $4,
			image_url = $5,
			updated_at = $6
		WHERE id = $7`
	result, err := r.db.ExecContext(
		ctx,
		query,
		product.Name,
		nullString(product.Description),
		product.Price,
		product.Stock,
		nullString(product.ImageURL),
		product.UpdatedAt,
		product.ID,
	)
	if err != nil {
		return types.Product{}, translateError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Product{}, err
	}
	if affected == 0 {
		return types.Product{}, NotFound("product", product.ID)
	}
	return product, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM products WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return translateError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return NotFound("product", id)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
