package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/compdash/compdash/backend/go-services/internal/storage"
	"github.com/compdash/compdash/backend/go-services/pkg/logger"
	"github.com/compdash/compdash/backend/go-services/pkg/metrics"
)

// AssetStore is the blob store behind image uploads. *storage.MinIOStorage
// satisfies it.
type AssetStore interface {
	UploadFile(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (*storage.Object, error)
	GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// AssetOptions bounds uploads.
type AssetOptions struct {
	MaxBytes   int64
	PresignTTL time.Duration
}

// rasterTypes are the sniffed content types accepted for upload, with the
// extension the stored object gets. Anything scriptable (SVG, HTML) is out.
var rasterTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var namePattern = regexp.MustCompile(`^[0-9a-f-]{36}\.(png|jpg|gif|webp)$`)

// RegisterAssetRoutes mounts image upload and download under a whiteboard.
func RegisterAssetRoutes(r gin.IRouter, store AssetStore, opts AssetOptions) {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 10 << 20
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = 15 * time.Minute
	}
	r.POST("/documents/:id/assets", uploadAsset(store, opts))
	r.GET("/documents/:id/assets/:name", downloadAsset(store))
}

func uploadAsset(store AssetStore, opts AssetOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, opts.MaxBytes+(1<<20))
		fh, err := c.FormFile("file")
		if err != nil {
			metrics.AssetUploads.WithLabelValues("rejected").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
			return
		}
		if fh.Size > opts.MaxBytes {
			metrics.AssetUploads.WithLabelValues("rejected").Inc()
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file exceeds %d bytes", opts.MaxBytes)})
			return
		}

		f, err := fh.Open()
		if err != nil {
			metrics.AssetUploads.WithLabelValues("error").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
			return
		}
		defer f.Close()

		// the declared part Content-Type is ignored; the bytes decide
		head := make([]byte, 512)
		n, err := io.ReadFull(f, head)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			metrics.AssetUploads.WithLabelValues("error").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
			return
		}
		head = head[:n]
		contentType := http.DetectContentType(head)
		ext, ok := rasterTypes[contentType]
		if !ok {
			metrics.AssetUploads.WithLabelValues("rejected").Inc()
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "only png, jpeg, gif and webp images are accepted"})
			return
		}

		name := uuid.NewString() + ext
		key := assetKey(id, name)
		body := io.MultiReader(bytes.NewReader(head), f)
		if err := store.UploadFile(c.Request.Context(), key, body, fh.Size, contentType); err != nil {
			metrics.AssetUploads.WithLabelValues("error").Inc()
			logger.With("document_id", id, "key", key).Error("asset upload failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "asset upload failed"})
			return
		}
		presigned, err := store.GetPresignedURL(c.Request.Context(), key, opts.PresignTTL)
		if err != nil {
			// the object is stored; the stable url still works
			logger.With("key", key).Warn("presign failed", "error", err)
		}
		metrics.AssetUploads.WithLabelValues("ok").Inc()
		c.JSON(http.StatusCreated, gin.H{
			"key":          key,
			"url":          "/api/documents/" + url.PathEscape(id) + "/assets/" + name,
			"presignedUrl": presigned,
			"contentType":  contentType,
			"size":         fh.Size,
		})
	}
}

func downloadAsset(store AssetStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, name := c.Param("id"), c.Param("name")
		if !namePattern.MatchString(name) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		obj, err := store.Open(c.Request.Context(), assetKey(id, name))
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if err != nil {
			logger.With("document_id", id, "name", name).Error("asset read failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "asset read failed"})
			return
		}
		defer obj.Body.Close()
		contentType := obj.ContentType
		headers := map[string]string{
			"Cache-Control":           "private, max-age=86400, immutable",
			"X-Content-Type-Options":  "nosniff",
			"Content-Security-Policy": "default-src 'none'; sandbox",
		}
		if _, ok := rasterTypes[contentType]; !ok {
			contentType = "application/octet-stream"
			headers["Content-Disposition"] = `attachment; filename="` + name + `"`
		}
		c.DataFromReader(http.StatusOK, obj.Size, contentType, obj.Body, headers)
	}
}

func assetKey(documentID, name string) string {
	return "whiteboards/" + url.PathEscape(documentID) + "/" + name
}
