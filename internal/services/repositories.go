package services

import (
	"context"

	"github.com/vente/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.User, error)
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id int) error
}

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	Search(ctx context.Context, filter types.ProductFilter) ([]types.Product, error)
	Get(ctx context.Context, id int) (types.Product, error)
	Create(ctx context.Context, product types.Product) (types.Product, error)
	Update(ctx context.Context, product types.Product) (types.Product, error)
	Delete(ctx context.Context, id int) error
}

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Category, error)
	Get(ctx context.Context, id int) (types.Category, error)
	ExistingIDs(ctx context.Context, ids []int) (map[int]bool, error)
	Create(ctx context.Context, category types.Category) (types.Category, error)
	Update(ctx context.Context, category types.Category) (types.Category, error)
	Delete(ctx context.Context, id int) error
}

// ProductCategoryRepository defines operations on association rows.
type ProductCategoryRepository interface {
	ListCategories(ctx context.Context, productID int) ([]types.Category, error)
	Add(ctx context.Context, productID, categoryID int) (types.ProductCategory, error)
	DeleteByProduct(ctx context.Context, productID int) (int64, error)
	DeleteByCategory(ctx context.Context, categoryID int) (int64, error)
}

// CatalogStore groups the catalog repositories behind one transactional
// boundary. Repositories returned from the tx argument of InTx see and write
// through the same transaction.
type CatalogStore interface {
	Products() ProductRepository
	Categories() CategoryRepository
	Links() ProductCategoryRepository
	InTx(ctx context.Context, fn func(ctx context.Context, tx CatalogStore) error) error
}
