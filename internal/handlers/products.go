package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/vente/apiserver/internal/services"
	"github.com/vente/apiserver/types"
)

// ProductHandler provides HTTP handlers for products and categories.
type ProductHandler struct {
	catalog *services.CatalogService
	images  *services.ImageService
}

// NewProductHandler constructs a handler. images may be nil when no object
// storage is configured.
func NewProductHandler(catalog *services.CatalogService, images *services.ImageService) *ProductHandler {
	return &ProductHandler{catalog: catalog, images: images}
}

// ProductRouter registers product and category routes. Reads are public;
// writes require an active superuser.
func ProductRouter(
	r chi.Router,
	catalog *services.CatalogService,
	images *services.ImageService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewProductHandler(catalog, images)
	admin := r.With(authMiddleware, RequireSuperuser)

	r.Get("/", handler.ListProducts)
	admin.Post("/", handler.CreateProduct)

	r.Route("/categories", func(r chi.Router) {
		admin := r.With(authMiddleware, RequireSuperuser)

		r.Get("/", handler.ListCategories)
		admin.Post("/", handler.CreateCategory)
		r.Route("/{categoryID}", func(r chi.Router) {
			admin := r.With(authMiddleware, RequireSuperuser)

			r.Get("/", handler.GetCategory)
			admin.Put("/", handler.UpdateCategory)
			admin.Delete("/", handler.DeleteCategory)
		})
	})

	r.Route("/{productID}", func(r chi.Router) {
		admin := r.With(authMiddleware, RequireSuperuser)

		r.Get("/", handler.GetProduct)
		admin.Put("/", handler.UpdateProduct)
		admin.Delete("/", handler.DeleteProduct)
		r.Get("/categories", handler.ListProductCategories)
		admin.Put("/categories", handler.ReplaceProductCategories)
		if images != nil {
			r.Get("/image", handler.GetProductImage)
			admin.Put("/image", handler.UploadProductImage)
		}
	})
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseProductFilter(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	products, err := h.catalog.SearchProducts(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if products == nil {
		products = []types.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "productID")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	caller, err := currentUser(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req types.ProductCreate
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), req, caller.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "productID")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req types.ProductUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "productID")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var product types.Product
	if h.images != nil {
		product, err = h.images.DeleteProduct(r.Context(), id)
	} else {
		product, err = h.catalog.DeleteProduct(r.Context(), id)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) ListProductCategories(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "productID")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	categories, err := h.catalog.ListCategoriesFor(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if categories == nil {
		categories = []types.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// CategoryIDsRequest replaces a product's category set. An explicit empty
// list clears it; a missing field is rejected.
type CategoryIDsRequest struct {
	CategoryIDs []int `json:"category_ids" validate:"required,dive,gt=0"`
}

// ReplaceProductCategories makes the posted ids the exact category set of the
// product and returns the product with its new categories.
func (h *ProductHandler) ReplaceProductCategories(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "productID")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req CategoryIDsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := h.catalog.ReplaceCategories(r.Context(), id, req.CategoryIDs); err != nil {
		writeServiceError(w, r, err)
		return
	}
	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func parseProductFilter(r *http.Request) (types.ProductFilter, error) {
	skip, limit, err := parsePagination(r)
	if err != nil {
		return types.ProductFilter{}, err
	}
	query := r.URL.Query()

	filter := types.ProductFilter{
		Search: strings.TrimSpace(query.Get("search")),
		Skip:   skip,
		Limit:  limit,
	}
	if filter.CategoryID, err = parseQueryInt(query.Get("category_id"), "category_id", 0); err != nil {
		return types.ProductFilter{}, err
	}
	if filter.MinPrice, err = parseQueryDecimal(query.Get("min_price"), "min_price"); err != nil {
		return types.ProductFilter{}, err
	}
	if filter.MaxPrice, err = parseQueryDecimal(query.Get("max_price"), "max_price"); err != nil {
		return types.ProductFilter{}, err
	}
	return filter, nil
}

func parseQueryDecimal(raw, name string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, &services.ValidationError{Field: name, Message: "must be a number"}
	}
	return &value, nil
}
