package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/vente/apiserver/internal/db"
	"github.com/vente/apiserver/types"
)

// CategoryRepository handles persistence for categories.
type CategoryRepository struct {
	db db.DBTX
}

func NewCategoryRepository(conn db.DBTX) *CategoryRepository {
	return &CategoryRepository{db: conn}
}

func scanCategory(row interface{ Scan(...any) error }) (types.Category, error) {
	var (
		category    types.Category
		description sql.NullString
	)
	if err := row.Scan(&category.ID, &category.Name, &description, &category.IsActive); err != nil {
		return types.Category{}, err
	}
	category.Description = description.String
	return category, nil
}

func (r *CategoryRepository) List(ctx context.Context, offset, limit int) ([]types.Category, error) {
	const query = `
		SELECT id, name, description, is_active
		FROM categories
		ORDER BY id
		OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, offset, limit)
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

func (r *CategoryRepository) Get(ctx context.Context, id int) (types.Category, error) {
	const query = `
		SELECT id, name, description, is_active
		FROM categories
		WHERE id = $1`
	category, err := scanCategory(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Category{}, NotFound("category", id)
		}
		return types.Category{}, err
	}
	return category, nil
}

// ExistingIDs reports which of ids have a category row.
func (r *CategoryRepository) ExistingIDs(ctx context.Context, ids []int) (map[int]bool, error) {
	found := make(map[int]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	arr := make([]int64, len(ids))
	for i, id := range ids {
		arr[i] = int64(id)
	}

	const query = `SELECT id FROM categories WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(arr))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return found, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category types.Category) (types.Category, error) {
	const query = `
		INSERT INTO categories (name, description, is_active)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		category.Name,
		nullString(category.Description),
		category.IsActive,
	).Scan(&category.ID); err != nil {
		return types.Category{}, translateError(err)
	}
	return category, nil
}

func (r *CategoryRepository) Update(ctx context.Context, category types.Category) (types.Category, error) {
	const query = `
		UPDATE categories
		SET name = $1,
			description = $2,
			is_active = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(
		ctx,
		query,
		category.Name,
		nullString(category.Description),
		category.IsActive,
		category.ID,
	)
	if err != nil {
		return types.Category{}, translateError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Category{}, err
	}
	if affected == 0 {
		return types.Category{}, NotFound("category", category.ID)
	}
	return category, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM categories WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return translateError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return NotFound("category", id)
	}
	return nil
}
