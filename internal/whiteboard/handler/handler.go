package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compdash/compdash/backend/go-services/internal/whiteboard"
	"github.com/compdash/compdash/backend/go-services/internal/whiteboard/service"
	"github.com/compdash/compdash/backend/go-services/pkg/logger"
)

// MaxBodyBytes bounds a write request body in bytes. It fits MaxItems items
// whose content is MaxContentLength characters of up to 4 UTF-8 bytes each,
// plus the other fields. Bodies that \u-escape non-ASCII text are larger
// and can exceed it; those get 413.
const MaxBodyBytes = 24 << 20

const maxActorLength = 60

type snapshotResponse struct {
	DocumentID string            `json:"documentId"`
	Items      []whiteboard.Item `json:"items"`
	Version    int64             `json:"version"`
	UpdatedAt  *time.Time        `json:"updatedAt"`
}

type writeRequest struct {
	BaseVersion any `json:"baseVersion"`
	Items       any `json:"items"`
}

// RegisterWhiteboardRoutes mounts the whiteboard read/write endpoints.
func RegisterWhiteboardRoutes(r gin.IRouter, svc service.Service) {
	r.GET("/documents/:id", getDocument(svc))
	r.PUT("/documents/:id", putDocument(svc))
	r.PATCH("/documents/:id", putDocument(svc))
}

func getDocument(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		res, err := svc.Read(c.Request.Context(), id, c.GetHeader("If-None-Match"))
		if err != nil {
			writeError(c, id, err)
			return
		}
		c.Header("ETag", res.ETag)
		c.Header("Cache-Control", "no-cache")
		if res.NotModified {
			c.Status(http.StatusNotModified)
			return
		}
		c.JSON(http.StatusOK, toResponse(res.Snapshot))
	}
}

func putDocument(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
		var req writeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("request body exceeds %d bytes", MaxBodyBytes)})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		base, ok := req.BaseVersion.(float64)
		if !ok {
			writeError(c, id, service.ErrInvalidBaseVersion)
			return
		}
		res, err := svc.Write(c.Request.Context(), id, base, req.Items, actorFrom(c))
		if err != nil {
			writeError(c, id, err)
			return
		}
		c.Header("ETag", res.ETag)
		c.Header("Cache-Control", "no-cache")
		c.JSON(http.StatusOK, toResponse(res.Snapshot))
	}
}

// writeError maps service errors onto status codes. 409 is routine during
// concurrent editing and carries the current state; 500 hides driver details.
func writeError(c *gin.Context, id string, err error) {
	var conflict *service.ConflictError
	switch {
	case errors.As(err, &conflict):
		c.Header("ETag", conflict.ETag)
		c.JSON(http.StatusConflict, gin.H{
			"error":   "version_conflict",
			"message": "the whiteboard was changed by someone else; rebase on current and retry",
			"current": gin.H{
				"items":     conflict.Current.Items,
				"version":   conflict.Current.Version,
				"updatedAt": updatedAt(conflict.Current),
			},
		})
	case errors.Is(err, service.ErrInvalidBaseVersion):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.With("document_id", id, "request_id", c.GetString("request_id")).Error("whiteboard request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal storage error"})
	}
}

func toResponse(s *whiteboard.Snapshot) snapshotResponse {
	return snapshotResponse{DocumentID: s.DocumentID, Items: s.Items, Version: s.Version, UpdatedAt: updatedAt(s)}
}

func updatedAt(s *whiteboard.Snapshot) *time.Time {
	if s.UpdatedAt.IsZero() {
		return nil
	}
	t := s.UpdatedAt.UTC()
	return &t
}

// actorFrom reads the free-text identity headers. It is attribution only.
func actorFrom(c *gin.Context) string {
	a := strings.TrimSpace(c.GetHeader("X-Actor"))
	if a == "" {
		a = strings.TrimSpace(c.GetHeader("X-User-Name"))
	}
	if a == "" {
		return "anonymous"
	}
	if r := []rune(a); len(r) > maxActorLength {
		a = string(r[:maxActorLength])
	}
	return a
}
