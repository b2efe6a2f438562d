// progress.go defines the PlaybackProgress model: per-user, per-content resume
// position and completion state. Exactly one row exists per (user, content)
// pair; the absence of a row means "never started", which is distinct from a
// stored position of 0.
package models

import "time"

// PlaybackProgress is the stored watch/listen position for one user on one
// content item. PositionSeconds only ever grows (the upsert merges with
// GREATEST) and Completed is sticky once true.
type PlaybackProgress struct {
	UserID          string    `json:"user_id" db:"user_id"`
	ContentID       string    `json:"content_id" db:"content_id"`
	PositionSeconds int64     `json:"position_seconds" db:"position_seconds"`
	DurationSeconds int64     `json:"duration_seconds" db:"duration_seconds"`
	Completed       bool      `json:"completed" db:"completed"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
