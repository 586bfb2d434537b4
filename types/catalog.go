package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item. Categories is populated from the
// product_categories association whenever a product is read through the
// catalog service.
type Product struct {
	ID          int             `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Stock       int             `json:"stock" db:"stock"`

	// ImageURL is the object storage key of the product image, or an
	// external reference supplied by the client.
	ImageURL string `json:"image_url,omitempty" db:"image_url"`

	// CreatedBy is the id of the account that created the product.
	CreatedBy *int `json:"created_by,omitempty" db:"created_by"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Categories []Category `json:"categories"`
}

// Category groups products. A product may belong to many categories.
type Category struct {
	ID          int    `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	IsActive    bool   `json:"is_active" db:"is_active"`
}

// ProductCategory is a single product-to-category association row.
type ProductCategory struct {
	ID         int `json:"id" db:"id"`
	ProductID  int `json:"product_id" db:"product_id"`
	CategoryID int `json:"category_id" db:"category_id"`
}

// ProductFilter narrows a product search. All set conditions are combined
// with AND. A zero CategoryID and an empty Search are ignored.
type ProductFilter struct {
	CategoryID int
	Search     string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Skip       int
	Limit      int
}

// ProductCreate is the payload for creating a product.
type ProductCreate struct {
	Name        string           `json:"name" validate:"required,max=255"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       int              `json:"stock"`
	ImageURL    string           `json:"image_url" validate:"max=255"`
	CategoryIDs []int            `json:"category_ids" validate:"dive,gt=0"`
}

// ProductUpdate is a partial product update. A nil CategoryIDs leaves the
// membership untouched; a non-nil one (even empty) replaces it.
type ProductUpdate struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
	ImageURL    *string          `json:"image_url,omitempty" validate:"omitempty,max=255"`
	CategoryIDs []int            `json:"category_ids,omitempty" validate:"dive,gt=0"`
}

// CategoryCreate is the payload for creating a category.
type CategoryCreate struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=255"`
	IsActive    *bool  `json:"is_active"`
}

// CategoryUpdate is a partial category update.
type CategoryUpdate struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=255"`
	IsActive    *bool   `json:"is_active,omitempty"`
}
