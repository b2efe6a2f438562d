// Package playback tracks how far a user has watched or listened to content.
// Progress saves are idempotent and monotonic: positions never move backward
// and completion never unsets, so out-of-order saves from flaky clients are
// safe to replay.
package playback

import (
	"context"
	"fmt"
	"strconv"

	"github.com/streamvault/streamvault/internal/db/models"
	"github.com/streamvault/streamvault/internal/telemetry"
)

// completionThresholdPercent marks content completed once this share of the
// duration has been played, matching player behavior of skipping credits.
const completionThresholdPercent = 95

// InvalidProgressError indicates a save with a negative position or duration.
type InvalidProgressError struct {
	Field string
	Value int64
}

func (e *InvalidProgressError) Error() string {
	return fmt.Sprintf("invalid progress %s: %d", e.Field, e.Value)
}

// ProgressStore persists playback progress rows. *repositories.ProgressRepository
// satisfies this.
type ProgressStore interface {
	Upsert(ctx context.Context, p *models.PlaybackProgress) error
	Get(ctx context.Context, userID, contentID string) (*models.PlaybackProgress, error)
}

// Tracker applies completion rules to progress saves and reads back stored
// progress.
type Tracker struct {
	store ProgressStore
}

func NewTracker(store ProgressStore) *Tracker {
	return &Tracker{store: store}
}

// Save records a playback position. completedHint lets a client mark content
// finished explicitly (for example the player reached the end); independent of
// the hint, a position at or past 95% of a known duration counts as completed.
// The returned row is the merged stored state, which may differ from the input
// when an earlier save got further.
func (t *Tracker) Save(ctx context.Context, userID, contentID string, positionSeconds, durationSeconds int64, completedHint bool) (*models.PlaybackProgress, error) {
	if positionSeconds < 0 {
		return nil, &InvalidProgressError{Field: "position_seconds", Value: positionSeconds}
	}
	if durationSeconds < 0 {
		return nil, &InvalidProgressError{Field: "duration_seconds", Value: durationSeconds}
	}

	completed := completedHint
	if !completed && durationSeconds > 0 {
		// Integer math; positions are whole seconds so there is no rounding
		// ambiguity at the threshold.
		completed = positionSeconds*100 >= durationSeconds*completionThresholdPercent
	}

	p := &models.PlaybackProgress{
		UserID:          userID,
		ContentID:       contentID,
		PositionSeconds: positionSeconds,
		DurationSeconds: durationSeconds,
		Completed:       completed,
	}
	if err := t.store.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save playback progress: %w", err)
	}

	telemetry.ProgressSavesTotal.WithLabelValues(strconv.FormatBool(p.Completed)).Inc()
	return p, nil
}

// Get returns the stored progress for (user, content), or (nil, nil) when the
// user has never played the content.
func (t *Tracker) Get(ctx context.Context, userID, contentID string) (*models.PlaybackProgress, error) {
	return t.store.Get(ctx, userID, contentID)
}
