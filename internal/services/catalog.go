package services

import (
	"context"

	"github.com/vente/apiserver/internal/store"
	"github.com/vente/apiserver/types"
)

// CatalogService manages products, categories and the association rows
// between them. Every multi-row mutation runs in a single transaction, so
// readers never observe a product with its old links deleted and the new
// ones not yet inserted.
type CatalogService struct {
	store  CatalogStore
	events *EventPublisher
}

func NewCatalogService(catalog CatalogStore, events *EventPublisher) *CatalogService {
	return &CatalogService{store: catalog, events: events}
}

// ListCategoriesFor returns the categories of productID in link order.
func (s *CatalogService) ListCategoriesFor(ctx context.Context, productID int) ([]types.Category, error) {
	if _, err := s.store.Products().Get(ctx, productID); err != nil {
		return nil, err
	}
	return s.store.Links().ListCategories(ctx, productID)
}

// ReplaceCategories makes categoryIDs the exact category set of productID.
// An empty set clears the membership.
func (s *CatalogService) ReplaceCategories(ctx context.Context, productID int, categoryIDs []int) error {
	var ids []int
	err := s.store.InTx(ctx, func(ctx context.Context, tx CatalogStore) error {
		if _, err := tx.Products().Get(ctx, productID); err != nil {
			return err
		}
		var err error
		ids, err = replaceCategories(ctx, tx, productID, categoryIDs)
		return err
	})
	if err != nil {
		return err
	}

	s.events.Emit(ctx, types.CatalogEvent{
		Type:        types.ProductCategoriesReplaced,
		ProductID:   productID,
		CategoryIDs: ids,
	})
	return nil
}

// RemoveAllForProduct deletes every association row of productID.
func (s *CatalogService) RemoveAllForProduct(ctx context.Context, productID int) (int64, error) {
	return s.store.Links().DeleteByProduct(ctx, productID)
}

// RemoveAllForCategory deletes every association row of categoryID.
func (s *CatalogService) RemoveAllForCategory(ctx context.Context, categoryID int) (int64, error) {
	return s.store.Links().DeleteByCategory(ctx, categoryID)
}

// SearchProducts lists products matching filter with categories attached.
func (s *CatalogService) SearchProducts(ctx context.Context, filter types.ProductFilter) ([]types.Product, error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return []types.Product{}, nil
	}
	filter.Skip = clampOffset(filter.Skip)
	filter.Limit = ClampLimit(filter.Limit)

	products, err := s.store.Products().Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range products {
		categories, err := s.store.Links().ListCategories(ctx, products[i].ID)
		if err != nil {
			return nil, err
		}
		products[i].Categories = categories
	}
	return products, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id int) (types.Product, error) {
	return getProduct(ctx, s.store, id)
}

// CreateProduct inserts the product and its links. Category ids are checked
// before anything is written.
func (s *CatalogService) CreateProduct(ctx context.Context, in types.ProductCreate, creatorID int) (types.Product, error) {
	if in.Price == nil {
		return types.Product{}, invalid("price", "field required")
	}
	if in.Price.IsNegative() {
		return types.Product{}, invalid("price", "must be greater than or equal to 0")
	}

	var created types.Product
	err := s.store.InTx(ctx, func(ctx context.Context, tx CatalogStore) error {
		ids, err := ensureCategories(ctx, tx, in.CategoryIDs)
		if err != nil {
			return err
		}

		product := types.Product{
			Name:        in.Name,
			Description: in.Description,
			Price:       *in.Price,
			Stock:       in.Stock,
			ImageURL:    in.ImageURL,
		}
		if creatorID > 0 {
			product.CreatedBy = &creatorID
		}
		product, err = tx.Products().Create(ctx, product)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := tx.Links().Add(ctx, product.ID, id); err != nil {
				return err
			}
		}

		product.Categories, err = tx.Links().ListCategories(ctx, product.ID)
		if err != nil {
			return err
		}
		created = product
		return nil
	})
	if err != nil {
		return types.Product{}, err
	}

	s.events.Emit(ctx, types.CatalogEvent{
		Type:        types.ProductCreated,
		ProductID:   created.ID,
		CategoryIDs: categoryIDs(created.Categories),
	})
	return created, nil
}

// UpdateProduct applies the non-nil fields of in. A non-nil CategoryIDs
// replaces the product's categories in the same transaction.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int, in types.ProductUpdate) (types.Product, error) {
	if in.Price != nil && in.Price.IsNegative() {
		return types.Product{}, invalid("price", "must be greater than or equal to 0")
	}

	var updated types.Product
	err := s.store.InTx(ctx, func(ctx context.Context, tx CatalogStore) error {
		product, err := tx.Products().Get(ctx, id)
		if err != nil {
			return err
		}

		if in.Name != nil {
			product.Name = *in.Name
		}
		if in.Description != nil {
			product.Description = *in.Description
		}
		if in.Price != nil {
			product.Price = *in.Price
		}
		if in.Stock != nil {
			product.Stock = *in.Stock
		}
		if in.ImageURL != nil {
			product.ImageURL = *in.ImageURL
		}

		product, err = tx.Products().Update(ctx, product)
		if err != nil {
			return err
		}
		if in.CategoryIDs != nil {
			if _, err := replaceCategories(ctx, tx, id, in.CategoryIDs); err != nil {
				return err
			}
		}

		product.Categories, err = tx.Links().ListCategories(ctx, id)
		if err != nil {
			return err
		}
		updated = product
		return nil
	})
	if err != nil {
		return types.Product{}, err
	}

	s.events.Emit(ctx, types.CatalogEvent{
		Type:        types.ProductUpdated,
		ProductID:   updated.ID,
		CategoryIDs: categoryIDs(updated.Categories),
	})
	return updated, nil
}

// SetProductImage records key as the product's image and returns the
// updated product together with the key it replaced.
func (s *CatalogService) SetProductImage(ctx context.Context, id int, key string) (types.Product, string, error) {
	var (
		updated  types.Product
		previous string
	)
	err := s.store.InTx(ctx, func(ctx context.Context, tx CatalogStore) error {
		product, err := getProduct(ctx, tx, id)
		if err != nil {
			return err
		}
		previous = product.ImageURL
		product.ImageURL = key

		categories := product.Categories
		product, err = tx.Products().Update(ctx, product)
		if err != nil {
			return err
		}
		product.Categories = categories
		updated = product
		return nil
	})
	if err != nil {
		return types.Product{}, "", err
	}

	s.events.Emit(ctx, types.CatalogEvent{Type: types.ProductUpdated, ProductID: id})
	return updated, previous, nil
}

// DeleteProduct removes the product's links and then the product, and
// returns the product as it was.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int) (types.Product, error) {
	var deleted types.Product
	err := s.store.InTx(ctx, func(ctx context.Context, tx CatalogStore) error {
		product, err := getProduct(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.Links().DeleteByProduct(ctx, id); err != nil {
			return err
		}
		if err := tx.Products().Delete(ctx, id); err != nil {
			return err
		}
		deleted = product
		return nil
	})
	if err != nil {
		return types.Product{}, err
	}

	s.events.Emit(ctx, types.CatalogEvent{Type: types.ProductDeleted, ProductID: id})
	return deleted, nil
}

func (s *CatalogService) ListCategories(ctx context.Context, offset, limit int) ([]types.Category, error) {
	return s.store.Categories().List(ctx, clampOffset(offset), ClampLimit(limit))
}

func (s *CatalogService) GetCategory(ctx context.Context, id int) (types.Category, error) {
	return s.store.Categories().Get(ctx, id)
}

func (s *CatalogService) CreateCategory(ctx context.Context, in types.CategoryCreate) (types.Category, error) {
	category := types.Category{
		Name:        in.Name,
		Description: in.Description,
		IsActive:    true,
	}
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}

	category, err := s.store.Categories().Create(ctx, category)
	if err != nil {
		return types.Category{}, err
	}

	s.events.Emit(ctx, types.CatalogEvent{Type: types.CategoryCreated, CategoryID: category.ID})
	return category, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id int, in types.CategoryUpdate) (types.Category, error) {
	var updated types.Category
	err := s.store.InTx(ctx, func(ctx context.Context, tx CatalogStore) error {
		category, err := tx.Categories().Get(ctx, id)
		if err != nil {
			return err
		}
		if in.Name != nil {
			category.Name = *in.Name
		}
		if in.Description != nil {
			category.Description = *in.Description
		}
		if in.IsActive != nil {
			category.IsActive = *in.IsActive
		}
		updated, err = tx.Categories().Update(ctx, category)
		return err
	})
	if err != nil {
		return types.Category{}, err
	}

	s.events.Emit(ctx, types.CatalogEvent{Type: types.CategoryUpdated, CategoryID: id})
	return updated, nil
}

// DeleteCategory unlinks the category from every product and deletes it.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int) (types.Category, error) {
	var deleted types.Category
	err := s.store.InTx(ctx, func(ctx context.Context, tx CatalogStore) error {
		category, err := tx.Categories().Get(ctx, id)
		if err != nil {
			return err
		}
		if _, err := tx.Links().DeleteByCategory(ctx, id); err != nil {
			return err
		}
		if err := tx.Categories().Delete(ctx, id); err != nil {
			return err
		}
		deleted = category
		return nil
	})
	if err != nil {
		return types.Category{}, err
	}

	s.events.Emit(ctx, types.CatalogEvent{Type: types.CategoryDeleted, CategoryID: id})
	return deleted, nil
}

func getProduct(ctx context.Context, st CatalogStore, id int) (types.Product, error) {
	product, err := st.Products().Get(ctx, id)
	if err != nil {
		return types.Product{}, err
	}
	product.Categories, err = st.Links().ListCategories(ctx, id)
	if err != nil {
		return types.Product{}, err
	}
	return product, nil
}

// replaceCategories must run inside a transaction.
func replaceCategories(ctx context.Context, tx CatalogStore, productID int, categoryIDs []int) ([]int, error) {
	ids, err := ensureCategories(ctx, tx, categoryIDs)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Links().DeleteByProduct(ctx, productID); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, err := tx.Links().Add(ctx, productID, id); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// ensureCategories dedupes ids, keeping first occurrences, and fails with a
// NotFoundError naming the first id that has no category.
func ensureCategories(ctx context.Context, st CatalogStore, categoryIDs []int) ([]int, error) {
	ids := make([]int, 0, len(categoryIDs))
	seen := make(map[int]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return ids, nil
	}

	found, err := st.Categories().ExistingIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if !found[id] {
			return nil, store.NotFound("category", id)
		}
	}
	return ids, nil
}

func categoryIDs(categories []types.Category) []int {
	ids := make([]int, len(categories))
	for i, c := range categories {
		ids[i] = c.ID
	}
	return ids
}
