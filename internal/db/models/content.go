// Package models - content.go defines the Content and MediaItem models: the
// purchasable/streamable units of the platform and their underlying media
// assets in object storage.
package models

import "time"

// ContentState is the publication lifecycle of a content item. Only published
// content is ever eligible for access evaluation.
type ContentState string

const (
	ContentStateDraft     ContentState = "draft"
	ContentStatePublished ContentState = "published"
	ContentStateArchived  ContentState = "archived"
)

// MediaKind is the streamable media type of a content item.
type MediaKind string

const (
	MediaKindVideo MediaKind = "video"
	MediaKindAudio MediaKind = "audio"
)

// Valid reports whether k is a kind the player can stream. Anything else in
// the database is malformed data, not a new feature.
func (k MediaKind) Valid() bool {
	return k == MediaKindVideo || k == MediaKindAudio
}

// MediaStatus tracks the transcoding pipeline state of a media item. Only
// "ready" assets are streamable.
type MediaStatus string

const (
	MediaStatusUploading  MediaStatus = "uploading"
	MediaStatusProcessing MediaStatus = "processing"
	MediaStatusReady      MediaStatus = "ready"
	MediaStatusFailed     MediaStatus = "failed"
)

// Content represents a purchasable/streamable unit: video, audio, or written.
// OrganizationID is nil for personally owned content — membership never grants
// access to personally owned items.
type Content struct {
	ID             string       `json:"id" db:"id"`
	OrganizationID *string      `json:"organization_id,omitempty" db:"organization_id"`
	CreatorID      string       `json:"creator_id" db:"creator_id"`
	Title          string       `json:"title" db:"title"`
	State          ContentState `json:"state" db:"state"`
	// PriceCents is in minor currency units; nil or 0 means free.
	PriceCents *int64     `json:"price_cents,omitempty" db:"price_cents"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// Free reports whether the content has no price attached.
func (c *Content) Free() bool {
	return c.PriceCents == nil || *c.PriceCents == 0
}

// Streamable centralizes the "is this content eligible for access evaluation"
// predicate: published and not soft-deleted. Soft-deleted rows are tombstones
// kept for purchase history, never served.
func (c *Content) Streamable() bool {
	return c.State == ContentStatePublished && c.DeletedAt == nil
}

// MediaItem represents the stored media asset behind a video/audio content
// item. Written content has no media item.
type MediaItem struct {
	ID             string      `json:"id"`
	ContentID      string      `json:"content_id"`
	Kind           MediaKind   `json:"kind"`
	Status         MediaStatus `json:"status"`
	StorageKey     string      `json:"storage_key"`
	StorageBackend string      `json:"storage_backend"`
	// DurationSeconds is the authoritative asset duration produced by the
	// transcoding pipeline; 0 until processing completes.
	DurationSeconds int64     `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
