package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vente/apiserver/internal/storage"
	"github.com/vente/apiserver/internal/store"
	"github.com/vente/apiserver/types"
)

// MaxImageSize is the largest accepted product image.
const MaxImageSize = 10 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ObjectStore is the object storage used for product images.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// ImageService stores product images and records their keys on the product.
type ImageService struct {
	catalog *CatalogService
	objects ObjectStore
	prefix  string
	logger  logrus.FieldLogger
	newID   func() string
}

func NewImageService(catalog *CatalogService, objects ObjectStore, prefix string, logger logrus.FieldLogger) *ImageService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ImageService{
		catalog: catalog,
		objects: objects,
		prefix:  strings.Trim(prefix, "/"),
		logger:  logger,
		newID:   uuid.NewString,
	}
}

// Upload stores r as the image of productID under a fresh key and deletes the
// object it replaces.
func (s *ImageService) Upload(ctx context.Context, productID int, r io.Reader, size int64, contentType, filename string) (types.Product, error) {
	if size > MaxImageSize {
		return types.Product{}, invalid("image", "file exceeds 10 MiB")
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return types.Product{}, invalid("image", "content type must be an image")
	}

	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return types.Product{}, err
	}

	key := s.key(productID, imageExtension(mediaType, filename))
	if err := s.objects.Put(ctx, key, r, size, mediaType); err != nil {
		return types.Product{}, fmt.Errorf("store image: %w", err)
	}

	product, previous, err := s.catalog.SetProductImage(ctx, productID, key)
	if err != nil {
		s.remove(ctx, key)
		return types.Product{}, err
	}
	if previous != "" && previous != key && s.owns(productID, previous) {
		s.remove(ctx, previous)
	}
	return product, nil
}

// Open returns the stored image of productID and its content type.
func (s *ImageService) Open(ctx context.Context, productID int) (io.ReadCloser, string, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, "", err
	}
	if product.ImageURL == "" || !s.owns(productID, product.ImageURL) {
		return nil, "", fmt.Errorf("product %d has no stored image: %w", productID, store.ErrNotFound)
	}

	body, err := s.objects.Get(ctx, product.ImageURL)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, "", fmt.Errorf("image of product %d: %w", productID, store.ErrNotFound)
		}
		return nil, "", err
	}

	contentType := mime.TypeByExtension(path.Ext(product.ImageURL))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return body, contentType, nil
}

// DeleteProduct deletes the product and then its stored image, if any.
func (s *ImageService) DeleteProduct(ctx context.Context, productID int) (types.Product, error) {
	deleted, err := s.catalog.DeleteProduct(ctx, productID)
	if err != nil {
		return types.Product{}, err
	}
	if deleted.ImageURL != "" && s.owns(productID, deleted.ImageURL) {
		s.remove(ctx, deleted.ImageURL)
	}
	return deleted, nil
}

func (s *ImageService) key(productID int, ext string) string {
	return path.Join(s.prefix, strconv.Itoa(productID), s.newID()+ext)
}

// owns reports whether key is an object this service stored for productID.
// image_url is client writable, so keys of other products do not count.
func (s *ImageService) owns(productID int, key string) bool {
	return strings.HasPrefix(key, path.Join(s.prefix, strconv.Itoa(productID))+"/")
}

func (s *ImageService) remove(ctx context.Context, key string) {
	if err := s.objects.Delete(ctx, key); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("delete product image")
	}
}

func imageExtension(mediaType, filename string) string {
	if ext, ok := imageExtensions[mediaType]; ok {
		return ext
	}
	ext := strings.ToLower(path.Ext(filename))
	if ext != "" && len(ext) <= 6 {
		return ext
	}
	return ""
}
