// stream.go handles signed streaming URL issuance: the only route through
// which clients obtain access to media bytes.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/streamvault/streamvault/internal/access"
	"github.com/streamvault/streamvault/internal/middleware"
	"github.com/streamvault/streamvault/internal/streaming"
)

// StreamIssuer issues signed streaming URLs. *streaming.Issuer satisfies this.
type StreamIssuer interface {
	Issue(ctx context.Context, userID, contentID string, ttl time.Duration) (*streaming.StreamURL, error)
}

// StreamURLHandler returns a handler for GET /api/v1/content/:id/stream.
// The optional expiry query parameter requests a URL lifetime in seconds; the
// issuer clamps it to the configured bounds.
func StreamURLHandler(issuer StreamIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		contentID := c.Param("id")
		if _, err := uuid.Parse(contentID); err != nil {
			// A malformed ID can never match a content row. Same response as
			// an unknown ID so the route does not leak ID format details.
			c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
			return
		}

		var ttl time.Duration
		if raw := c.Query("expiry"); raw != "" {
			secs, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "expiry must be an integer number of seconds"})
				return
			}
			ttl = time.Duration(secs) * time.Second
		}

		streamURL, err := issuer.Issue(c.Request.Context(), middleware.UserID(c), contentID, ttl)
		if err != nil {
			respondStreamError(c, err)
			return
		}

		c.JSON(http.StatusOK, streamURL)
	}
}

// respondStreamError maps issuance errors onto the HTTP error taxonomy.
// Denials and missing content are expected outcomes; anything else is a
// server fault and must not masquerade as one of them.
func respondStreamError(c *gin.Context, err error) {
	var notFound *access.ContentNotFoundError
	var denied *access.DeniedError
	var notReady *streaming.MediaNotReadyError

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
	case errors.As(err, &denied):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	case errors.As(err, &notReady):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Media is not ready for streaming"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue stream URL"})
	}
}
