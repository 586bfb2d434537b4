package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/vente/apiserver/internal/logging"
	"github.com/vente/apiserver/internal/services"
)

const (
	formFieldImage     = "image"
	maxMultipartMemory = 8 << 20
	// multipart framing on top of the image itself
	maxUploadOverhead = 1 << 20
)

// UploadProductImage stores the multipart "image" file as the product image.
func (h *ProductHandler) UploadProductImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "productID")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxImageSize+maxUploadOverhead)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeServiceError(w, r, &services.ValidationError{Field: formFieldImage, Message: "file exceeds 10 MiB"})
			return
		}
		writeServiceError(w, r, &services.ValidationError{Field: "body", Message: "invalid multipart form"})
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile(formFieldImage)
	if err != nil {
		writeServiceError(w, r, &services.ValidationError{Field: formFieldImage, Message: "field required"})
		return
	}
	defer file.Close()

	product, err := h.images.Upload(
		r.Context(),
		id,
		file,
		header.Size,
		header.Header.Get("Content-Type"),
		header.Filename,
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// GetProductImage streams the stored product image.
func (h *ProductHandler) GetProductImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "productID")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	body, contentType, err := h.images.Open(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		logging.FromContext(r.Context()).WithError(err).Warn("stream product image")
	}
}
