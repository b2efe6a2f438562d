// library.go defines the LibraryItem read model returned by the library
// listing query: one purchase paired with at most one progress record.
package models

import "time"

// LibraryItem is a single row of a user's library: the purchased content, its
// media metadata, and the user's progress if they ever started it. Progress
// fields are pointers because purchase-to-progress is one-to-zero-or-one.
type LibraryItem struct {
	ContentID   string    `json:"content_id" db:"content_id"`
	Title       string    `json:"title" db:"title"`
	MediaKind   *string   `json:"media_kind,omitempty" db:"media_kind"`
	PurchasedAt time.Time `json:"purchased_at" db:"purchased_at"`
	AmountCents int64     `json:"amount_cents" db:"amount_cents"`
	// DurationSeconds is the asset duration from the media item; nil for
	// written content.
	DurationSeconds *int64 `json:"duration_seconds,omitempty" db:"duration_seconds"`
	// Progress fields, nil when the user never started this item.
	PositionSeconds   *int64     `json:"position_seconds,omitempty" db:"position_seconds"`
	Completed         *bool      `json:"completed,omitempty" db:"completed"`
	ProgressUpdatedAt *time.Time `json:"progress_updated_at,omitempty" db:"progress_updated_at"`
}
