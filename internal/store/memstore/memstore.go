// Package memstore is an in-memory implementation of the service
// repositories. Transactions work on a copy of the data that replaces the
// original only when the callback succeeds. Constraint checks mirror the
// postgres schema: unique usernames, emails and links, and foreign keys
// from links and products.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vente/apiserver/internal/services"
	"github.com/vente/apiserver/internal/store"
	"github.com/vente/apiserver/types"
)

// Store holds all records. The zero value is not usable; call New.
type Store struct {
	mu sync.Mutex
	st *state

	// Fault, when set, is consulted before every operation. A non-nil
	// return fails the operation with that error. Operation names look like
	// "products.create" or "links.add".
	Fault func(op string) error
}

type state struct {
	users      map[int]types.User
	products   map[int]types.Product
	categories map[int]types.Category
	links      []types.ProductCategory

	nextUser, nextProduct, nextCategory, nextLink int
}

func New() *Store {
	return &Store{st: &state{
		users:      make(map[int]types.User),
		products:   make(map[int]types.Product),
		categories: make(map[int]types.Category),
	}}
}

func (st *state) clone() *state {
	c := *st
	c.users = make(map[int]types.User, len(st.users))
	for k, v := range st.users {
		c.users[k] = v
	}
	c.products = make(map[int]types.Product, len(st.products))
	for k, v := range st.products {
		c.products[k] = v
	}
	c.categories = make(map[int]types.Category, len(st.categories))
	for k, v := range st.categories {
		c.categories[k] = v
	}
	c.links = append([]types.ProductCategory(nil), st.links...)
	return &c
}

type view struct {
	s  *Store
	tx *state
}

func (v view) do(op string, fn func(st *state) error) error {
	if v.s.Fault != nil {
		if err := v.s.Fault(op); err != nil {
			return err
		}
	}
	if v.tx != nil {
		return fn(v.tx)
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return fn(v.s.st)
}

func (s *Store) Users() services.UserRepository          { return userRepo{view{s: s}} }
func (s *Store) Products() services.ProductRepository    { return productRepo{view{s: s}} }
func (s *Store) Categories() services.CategoryRepository { return categoryRepo{view{s: s}} }
func (s *Store) Links() services.ProductCategoryRepository {
	return linkRepo{view{s: s}}
}

// InTx holds the store lock for the whole callback, so transactions are
// serialized and never observe each other's partial writes.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx services.CatalogStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, txStore{s: s, st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// LinkRows returns a copy of every association row.
func (s *Store) LinkRows() []types.ProductCategory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.ProductCategory(nil), s.st.links...)
}

type txStore struct {
	s  *Store
	st *state
}

func (t txStore) Products() services.ProductRepository    { return productRepo{view{s: t.s, tx: t.st}} }
func (t txStore) Categories() services.CategoryRepository { return categoryRepo{view{s: t.s, tx: t.st}} }
func (t txStore) Links() services.ProductCategoryRepository {
	return linkRepo{view{s: t.s, tx: t.st}}
}

func (t txStore) InTx(ctx context.Context, fn func(ctx context.Context, tx services.CatalogStore) error) error {
	return fn(ctx, t)
}

func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func conflict(constraint string) error {
	return fmt.Errorf("%w: %s", store.ErrConflict, constraint)
}

// users

type userRepo struct{ v view }

func (r userRepo) List(_ context.Context, offset, limit int) ([]types.User, error) {
	var out []types.User
	err := r.v.do("users.list", func(st *state) error {
		all := make([]types.User, 0, len(st.users))
		for _, id := range sortedKeys(st.users) {
			all = append(all, st.users[id])
		}
		out = page(all, offset, limit)
		return nil
	})
	return out, err
}

func (r userRepo) GetByID(_ context.Context, id int) (types.User, error) {
	var out types.User
	err := r.v.do("users.get", func(st *state) error {
		user, ok := st.users[id]
		if !ok {
			return store.NotFound("user", id)
		}
		out = user
		return nil
	})
	return out, err
}

func (r userRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	var out types.User
	err := r.v.do("users.get_by_username", func(st *state) error {
		for _, user := range st.users {
			if user.Username == username {
				out = user
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func checkUserUnique(st *state, user types.User) error {
	for id, other := range st.users {
		if id == user.ID {
			continue
		}
		if other.Username == user.Username {
			return conflict("users_username_key")
		}
		if other.Email == user.Email {
			return conflict("users_email_key")
		}
	}
	return nil
}

func (r userRepo) Create(_ context.Context, user types.User) (types.User, error) {
	err := r.v.do("users.create", func(st *state) error {
		if err := checkUserUnique(st, user); err != nil {
			return err
		}
		st.nextUser++
		now := time.Now().UTC()
		user.ID = st.nextUser
		user.CreatedAt, user.UpdatedAt = now, now
		st.users[user.ID] = user
		return nil
	})
	if err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (r userRepo) Update(_ context.Context, user types.User) (types.User, error) {
	err := r.v.do("users.update", func(st *state) error {
		if _, ok := st.users[user.ID]; !ok {
			return store.NotFound("user", user.ID)
		}
		if err := checkUserUnique(st, user); err != nil {
			return err
		}
		user.UpdatedAt = time.Now().UTC()
		st.users[user.ID] = user
		return nil
	})
	if err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (r userRepo) Delete(_ context.Context, id int) error {
	return r.v.do("users.delete", func(st *state) error {
		if _, ok := st.users[id]; !ok {
			return store.NotFound("user", id)
		}
		for _, p := range st.products {
			if p.CreatedBy != nil && *p.CreatedBy == id {
				return conflict("products_created_by_fkey")
			}
		}
		delete(st.users, id)
		return nil
	})
}

// products

type productRepo struct{ v view }

func (r productRepo) Search(_ context.Context, filter types.ProductFilter) ([]types.Product, error) {
	var out []types.Product
	err := r.v.do("products.search", func(st *state) error {
		linked := map[int]bool{}
		if filter.CategoryID != 0 {
			for _, l := range st.links {
				if l.CategoryID == filter.CategoryID {
					linked[l.ProductID] = true
				}
			}
		}
		needle := strings.ToLower(filter.Search)

		all := make([]types.Product, 0)
		for _, id := range sortedKeys(st.products) {
			p := st.products[id]
			if filter.CategoryID != 0 && !linked[id] {
				continue
			}
			if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
				continue
			}
			if filter.MinPrice != nil && p.Price.LessThan(*filter.MinPrice) {
				continue
			}
			if filter.MaxPrice != nil && p.Price.GreaterThan(*filter.MaxPrice) {
				continue
			}
			all = append(all, p)
		}
		out = page(all, filter.Skip, filter.Limit)
		return nil
	})
	return out, err
}

func (r productRepo) Get(_ context.Context, id int) (types.Product, error) {
	var out types.Product
	err := r.v.do("products.get", func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return store.NotFound("product", id)
		}
		out = p
		return nil
	})
	return out, err
}

func (r productRepo) Create(_ context.Context, p types.Product) (types.Product, error) {
	err := r.v.do("products.create", func(st *state) error {
		if p.CreatedBy != nil {
			if _, ok := st.users[*p.CreatedBy]; !ok {
				return conflict("products_created_by_fkey")
			}
		}
		st.nextProduct++
		now := time.Now().UTC()
		p.ID = st.nextProduct
		p.CreatedAt, p.UpdatedAt = now, now
		p.Categories = nil
		st.products[p.ID] = p
		return nil
	})
	if err != nil {
		return types.Product{}, err
	}
	return p, nil
}

func (r productRepo) Update(_ context.Context, p types.Product) (types.Product, error) {
	err := r.v.do("products.update", func(st *state) error {
		current, ok := st.products[p.ID]
		if !ok {
			return store.NotFound("product", p.ID)
		}
		p.CreatedBy = current.CreatedBy
		p.CreatedAt = current.CreatedAt
		p.UpdatedAt = time.Now().UTC()
		p.Categories = nil
		st.products[p.ID] = p
		return nil
	})
	if err != nil {
		return types.Product{}, err
	}
	return p, nil
}

// Delete cascades to association rows like the schema's ON DELETE CASCADE.
func (r productRepo) Delete(_ context.Context, id int) error {
	return r.v.do("products.delete", func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return store.NotFound("product", id)
		}
		delete(st.products, id)
		st.links = removeLinks(st.links, func(l types.ProductCategory) bool { return l.ProductID == id })
		return nil
	})
}

// categories

type categoryRepo struct{ v view }

func (r categoryRepo) List(_ context.Context, offset, limit int) ([]types.Category, error) {
	var out []types.Category
	err := r.v.do("categories.list", func(st *state) error {
		all := make([]types.Category, 0, len(st.categories))
		for _, id := range sortedKeys(st.categories) {
			all = append(all, st.categories[id])
		}
		out = page(all, offset, limit)
		return nil
	})
	return out, err
}

func (r categoryRepo) Get(_ context.Context, id int) (types.Category, error) {
	var out types.Category
	err := r.v.do("categories.get", func(st *state) error {
		c, ok := st.categories[id]
		if !ok {
			return store.NotFound("category", id)
		}
		out = c
		return nil
	})
	return out, err
}

func (r categoryRepo) ExistingIDs(_ context.Context, ids []int) (map[int]bool, error) {
	found := make(map[int]bool, len(ids))
	err := r.v.do("categories.existing_ids", func(st *state) error {
		for _, id := range ids {
			if _, ok := st.categories[id]; ok {
				found[id] = true
			}
		}
		return nil
	})
	return found, err
}

func (r categoryRepo) Create(_ context.Context, c types.Category) (types.Category, error) {
	err := r.v.do("categories.create", func(st *state) error {
		st.nextCategory++
		c.ID = st.nextCategory
		st.categories[c.ID] = c
		return nil
	})
	if err != nil {
		return types.Category{}, err
	}
	return c, nil
}

func (r categoryRepo) Update(_ context.Context, c types.Category) (types.Category, error) {
	err := r.v.do("categories.update", func(st *state) error {
		if _, ok := st.categories[c.ID]; !ok {
			return store.NotFound("category", c.ID)
		}
		st.categories[c.ID] = c
		return nil
	})
	if err != nil {
		return types.Category{}, err
	}
	return c, nil
}

func (r categoryRepo) Delete(_ context.Context, id int) error {
	return r.v.do("categories.delete", func(st *state) error {
		if _, ok := st.categories[id]; !ok {
			return store.NotFound("category", id)
		}
		delete(st.categories, id)
		st.links = removeLinks(st.links, func(l types.ProductCategory) bool { return l.CategoryID == id })
		return nil
	})
}

// links

type linkRepo struct{ v view }

func (r linkRepo) ListCategories(_ context.Context, productID int) ([]types.Category, error) {
	out := make([]types.Category, 0)
	err := r.v.do("links.list", func(st *state) error {
		for _, l := range st.links {
			if l.ProductID != productID {
				continue
			}
			if c, ok := st.categories[l.CategoryID]; ok {
				out = append(out, c)
			}
		}
		return nil
	})
	return out, err
}

func (r linkRepo) Add(_ context.Context, productID, categoryID int) (types.ProductCategory, error) {
	var out types.ProductCategory
	err := r.v.do("links.add", func(st *state) error {
		if _, ok := st.products[productID]; !ok {
			return conflict("product_categories_product_id_fkey")
		}
		if _, ok := st.categories[categoryID]; !ok {
			return conflict("product_categories_category_id_fkey")
		}
		for _, l := range st.links {
			if l.ProductID == productID && l.CategoryID == categoryID {
				return conflict("product_categories_product_id_category_id_key")
			}
		}
		st.nextLink++
		out = types.ProductCategory{ID: st.nextLink, ProductID: productID, CategoryID: categoryID}
		st.links = append(st.links, out)
		return nil
	})
	return out, err
}

func (r linkRepo) DeleteByProduct(_ context.Context, productID int) (int64, error) {
	var n int64
	err := r.v.do("links.delete_by_product", func(st *state) error {
		before := len(st.links)
		st.links = removeLinks(st.links, func(l types.ProductCategory) bool { return l.ProductID == productID })
		n = int64(before - len(st.links))
		return nil
	})
	return n, err
}

func (r linkRepo) DeleteByCategory(_ context.Context, categoryID int) (int64, error) {
	var n int64
	err := r.v.do("links.delete_by_category", func(st *state) error {
		before := len(st.links)
		st.links = removeLinks(st.links, func(l types.ProductCategory) bool { return l.CategoryID == categoryID })
		n = int64(before - len(st.links))
		return nil
	})
	return n, err
}

func removeLinks(links []types.ProductCategory, drop func(types.ProductCategory) bool) []types.ProductCategory {
	kept := links[:0:0]
	for _, l := range links {
		if !drop(l) {
			kept = append(kept, l)
		}
	}
	return kept
}
