// progress.go handles playback progress saves and reads.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/streamvault/streamvault/internal/db/models"
	"github.com/streamvault/streamvault/internal/middleware"
	"github.com/streamvault/streamvault/internal/playback"
)

// ProgressTracker saves and reads playback progress. *playback.Tracker
// satisfies this.
type ProgressTracker interface {
	Save(ctx context.Context, userID, contentID string, positionSeconds, durationSeconds int64, completedHint bool) (*models.PlaybackProgress, error)
	Get(ctx context.Context, userID, contentID string) (*models.PlaybackProgress, error)
}

type progressRequest struct {
	PositionSeconds int64 `json:"position_seconds"`
	DurationSeconds int64 `json:"duration_seconds"`
	Completed       bool  `json:"completed"`
}

// SaveProgressHandler returns a handler for PUT /api/v1/content/:id/progress.
// Saves are idempotent; replaying an old save can never move progress
// backward, so clients may retry freely.
func SaveProgressHandler(tracker ProgressTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		contentID := c.Param("id")
		if _, err := uuid.Parse(contentID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
			return
		}

		var req progressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		_, err := tracker.Save(c.Request.Context(), middleware.UserID(c), contentID,
			req.PositionSeconds, req.DurationSeconds, req.Completed)
		if err != nil {
			var invalid *playback.InvalidProgressError
			if errors.As(err, &invalid) {
				c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save progress"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// GetProgressHandler returns a handler for GET /api/v1/content/:id/progress.
// Responds 404 when the user has never played the content.
func GetProgressHandler(tracker ProgressTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		contentID := c.Param("id")
		if _, err := uuid.Parse(contentID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
			return
		}

		progress, err := tracker.Get(c.Request.Context(), middleware.UserID(c), contentID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load progress"})
			return
		}
		if progress == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "No playback progress"})
			return
		}

		c.JSON(http.StatusOK, progress)
	}
}
