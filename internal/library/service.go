// Package library serves a user's purchased-content listing with playback
// progress folded in. It normalizes paging, filter, and sort parameters so
// handlers can pass raw query values straight through.
package library

import (
	"context"
	"fmt"

	"github.com/streamvault/streamvault/internal/db/models"
	"github.com/streamvault/streamvault/internal/db/repositories"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Params are the raw listing parameters, typically taken from query strings.
// Zero values select the defaults.
type Params struct {
	Page   int
	Limit  int
	Filter string
	Sort   string
}

// Page is one page of library results.
type Page struct {
	Items      []*models.LibraryItem `json:"items"`
	Page       int                   `json:"page"`
	Limit      int                   `json:"limit"`
	Total      int                   `json:"total"`
	TotalPages int                   `json:"total_pages"`
}

// Lister runs the paginated library query. *repositories.LibraryRepository
// satisfies this.
type Lister interface {
	List(ctx context.Context, userID string, filter repositories.LibraryFilter, sort repositories.LibrarySort, limit, offset int) ([]*models.LibraryItem, int, error)
}

// Service lists a user's library.
type Service struct {
	repo Lister
}

func NewService(repo Lister) *Service {
	return &Service{repo: repo}
}

// List returns one page of the user's library. Page numbers below 1 become
// page 1, a non-positive limit becomes the default, and limits above the
// maximum are clamped. An unknown filter or sort value is a caller error.
func (s *Service) List(ctx context.Context, userID string, params Params) (*Page, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	filter := repositories.LibraryFilter(params.Filter)
	if params.Filter == "" {
		filter = repositories.LibraryFilterAll
	}
	sort := repositories.LibrarySort(params.Sort)
	if params.Sort == "" {
		sort = repositories.LibrarySortRecent
	}

	offset := (page - 1) * limit
	items, total, err := s.repo.List(ctx, userID, filter, sort, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list library: %w", err)
	}

	if items == nil {
		items = []*models.LibraryItem{}
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return &Page{
		Items:      items,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}
