// library_repository.go implements LibraryRepository: the paginated read-side
// query composing a user's completed purchases with their playback progress.
// One query returns purchase + content + media + progress per row (LEFT JOINs
// are one-to-zero-or-one so rows can never duplicate), plus a count query for
// pagination totals.
package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/streamvault/streamvault/internal/db/models"
)

// LibraryFilter narrows a library listing by progress state.
type LibraryFilter string

const (
	LibraryFilterAll        LibraryFilter = "all"
	LibraryFilterInProgress LibraryFilter = "in-progress"
	LibraryFilterCompleted  LibraryFilter = "completed"
)

// LibrarySort orders a library listing.
type LibrarySort string

const (
	LibrarySortRecent   LibrarySort = "recent"
	LibrarySortTitle    LibrarySort = "title"
	LibrarySortDuration LibrarySort = "duration"
)

// LibraryRepository handles the library listing queries
type LibraryRepository struct {
	db *sqlx.DB
}

// NewLibraryRepository creates a new library repository
func NewLibraryRepository(db *sqlx.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

const libraryBaseWhere = `
	FROM purchases p
	JOIN content c ON c.id = p.content_id
	LEFT JOIN media_items m ON m.content_id = c.id
	LEFT JOIN playback_progress pp ON pp.user_id = p.user_id AND pp.content_id = p.content_id
	WHERE p.user_id = $1
	  AND p.status = 'completed' AND p.refunded_at IS NULL
`

// List returns one page of the user's library plus the total row count for
// pagination. The in-progress filter matches items with a progress row and
// completed = false; items never started have no progress row and match only
// the all filter.
func (r *LibraryRepository) List(ctx context.Context, userID string, filter LibraryFilter, sort LibrarySort, limit, offset int) ([]*models.LibraryItem, int, error) {
	where := libraryBaseWhere
	switch filter {
	case LibraryFilterInProgress:
		where += " AND pp.completed = FALSE"
	case LibraryFilterCompleted:
		where += " AND pp.completed = TRUE"
	case LibraryFilterAll:
		// No progress filter
	default:
		return nil, 0, fmt.Errorf("invalid library filter: %s", filter)
	}

	var orderBy string
	switch sort {
	case LibrarySortRecent:
		orderBy = "p.created_at DESC"
	case LibrarySortTitle:
		orderBy = "c.title ASC"
	case LibrarySortDuration:
		orderBy = "m.duration_seconds DESC NULLS LAST"
	default:
		return nil, 0, fmt.Errorf("invalid library sort: %s", sort)
	}

	// Count total results
	countQuery := "SELECT COUNT(*) " + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count library items: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT c.id AS content_id, c.title, m.kind AS media_kind,
		       p.created_at AS purchased_at, p.amount_cents,
		       m.duration_seconds, pp.position_seconds, pp.completed,
		       pp.updated_at AS progress_updated_at
		%s
		ORDER BY %s
		LIMIT $2 OFFSET $3
	`, where, orderBy)

	var items []*models.LibraryItem
	if err := r.db.SelectContext(ctx, &items, query, userID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list library items: %w", err)
	}

	return items, total, nil
}
