package handlers

import (
	"net/http"

	"github.com/vente/apiserver/types"
)

func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePagination(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	categories, err := h.catalog.ListCategories(r.Context(), skip, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if categories == nil {
		categories = []types.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *ProductHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "categoryID")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	category, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *ProductHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req types.CategoryCreate
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	category, err := h.catalog.CreateCategory(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *ProductHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "categoryID")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req types.CategoryUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	category, err := h.catalog.UpdateCategory(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// DeleteCategory unlinks the category from all products before removing it.
func (h *ProductHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "categoryID")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	category, err := h.catalog.DeleteCategory(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}
