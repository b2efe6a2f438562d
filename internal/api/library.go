// library.go handles the purchased-content listing.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/streamvault/streamvault/internal/db/repositories"
	"github.com/streamvault/streamvault/internal/library"
	"github.com/streamvault/streamvault/internal/middleware"
)

// LibraryLister lists a user's library. *library.Service satisfies this.
type LibraryLister interface {
	List(ctx context.Context, userID string, params library.Params) (*library.Page, error)
}

// LibraryHandler returns a handler for GET /api/v1/library. Paging defaults
// and clamping happen in the service; the handler only rejects values that
// can never be valid.
func LibraryHandler(lister LibraryLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		params := library.Params{
			Filter: c.Query("filter"),
			Sort:   c.Query("sort"),
		}

		if raw := c.Query("page"); raw != "" {
			page, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page parameter"})
				return
			}
			params.Page = page
		}
		if raw := c.Query("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
				return
			}
			params.Limit = limit
		}

		if params.Filter != "" && !validLibraryFilter(params.Filter) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter parameter"})
			return
		}
		if params.Sort != "" && !validLibrarySort(params.Sort) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sort parameter"})
			return
		}

		page, err := lister.List(c.Request.Context(), middleware.UserID(c), params)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list library"})
			return
		}

		c.JSON(http.StatusOK, page)
	}
}

func validLibraryFilter(s string) bool {
	switch repositories.LibraryFilter(s) {
	case repositories.LibraryFilterAll, repositories.LibraryFilterInProgress, repositories.LibraryFilterCompleted:
		return true
	}
	return false
}

func validLibrarySort(s string) bool {
	switch repositories.LibrarySort(s) {
	case repositories.LibrarySortRecent, repositories.LibrarySortTitle, repositories.LibrarySortDuration:
		return true
	}
	return false
}
