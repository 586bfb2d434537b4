package types

import "time"

// CatalogEventType names a committed catalog mutation.
type CatalogEventType string

const (
	ProductCreated            CatalogEventType = "product.created"
	ProductUpdated            CatalogEventType = "product.updated"
	ProductDeleted            CatalogEventType = "product.deleted"
	ProductCategoriesReplaced CatalogEventType = "product.categories_replaced"
	CategoryCreated           CatalogEventType = "category.created"
	CategoryUpdated           CatalogEventType = "category.updated"
	CategoryDeleted           CatalogEventType = "category.deleted"
)

// CatalogEvent is published after a catalog transaction commits.
type CatalogEvent struct {
	Type        CatalogEventType `json:"type"`
	ProductID   int              `json:"product_id,omitempty"`
	CategoryID  int              `json:"category_id,omitempty"`
	CategoryIDs []int            `json:"category_ids,omitempty"`
	OccurredAt  time.Time        `json:"occurred_at"`
}
