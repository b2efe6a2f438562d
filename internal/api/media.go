// media.go serves media objects for the local storage backend. Cloud
// backends sign URLs that point directly at the provider; local storage
// signs URLs that point back here.
package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/streamvault/streamvault/internal/storage"
	"github.com/streamvault/streamvault/internal/storage/local"
)

// ServeMediaHandler returns a handler for GET /api/v1/media/*key. It checks
// the HMAC signature and expiry produced by the local backend's SignURL
// before streaming file contents. The route is unauthenticated; the
// signature is the credential.
func ServeMediaHandler(backend *local.LocalStorage) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("key"), "/")
		if key == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Media not found"})
			return
		}

		exp, err := strconv.ParseInt(c.Query("exp"), 10, 64)
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid or expired URL"})
			return
		}
		if err := backend.Verify(key, exp, c.Query("sig")); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid or expired URL"})
			return
		}

		reader, err := backend.Download(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, storage.ErrKeyNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Media not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read media"})
			return
		}
		defer reader.Close()

		contentType := mime.TypeByExtension(filepath.Ext(key))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Header("Content-Type", contentType)
		c.Header("Cache-Control", "private, no-store")
		c.Status(http.StatusOK)
		_, _ = io.Copy(c.Writer, reader)
	}
}
