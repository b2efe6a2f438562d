// progress_repository.go implements ProgressRepository, the read/write store
// for playback progress rows. The upsert is a single statement so concurrent
// saves from multiple devices merge atomically in the database — position
// takes the server-side maximum and completion is sticky. A read-then-write
// pair in the application layer would race and is deliberately absent.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/streamvault/streamvault/internal/db/models"
)

// ProgressRepository handles database operations for playback progress
type ProgressRepository struct {
	db *sql.DB
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db *sql.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Upsert inserts or merges a progress row for (user, content).
//
// Merge rules, enforced in SQL:
//   - position_seconds = GREATEST(stored, new): a stale or out-of-order save
//     can never roll progress back
//   - completed = stored OR new: once true, never flips back
//   - duration_seconds takes the caller's current value (it reflects the
//     client's media metadata and may legitimately change between encodes)
//
// The merged row is scanned back into p so callers observe the stored state,
// not their input.
func (r *ProgressRepository) Upsert(ctx context.Context, p *models.PlaybackProgress) error {
	query := `
		INSERT INTO playback_progress (user_id, content_id, position_seconds, duration_seconds, completed, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, content_id) DO UPDATE
		SET position_seconds = GREATEST(playback_progress.position_seconds, EXCLUDED.position_seconds),
		    duration_seconds = EXCLUDED.duration_seconds,
		    completed = playback_progress.completed OR EXCLUDED.completed,
		    updated_at = NOW()
		RETURNING position_seconds, duration_seconds, completed, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		p.UserID,
		p.ContentID,
		p.PositionSeconds,
		p.DurationSeconds,
		p.Completed,
	).Scan(&p.PositionSeconds, &p.DurationSeconds, &p.Completed, &p.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert playback progress: %w", err)
	}

	return nil
}

// Get retrieves the progress row for (user, content). Returns (nil, nil) when
// the user never started this content — distinct from a stored position of 0.
func (r *ProgressRepository) Get(ctx context.Context, userID, contentID string) (*models.PlaybackProgress, error) {
	query := `
		SELECT user_id, content_id, position_seconds, duration_seconds, completed, updated_at
		FROM playback_progress
		WHERE user_id = $1 AND content_id = $2
	`

	p := &models.PlaybackProgress{}
	err := r.db.QueryRowContext(ctx, query, userID, contentID).Scan(
		&p.UserID,
		&p.ContentID,
		&p.PositionSeconds,
		&p.DurationSeconds,
		&p.Completed,
		&p.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Never watched
		}
		return nil, fmt.Errorf("failed to get playback progress: %w", err)
	}

	return p, nil
}
