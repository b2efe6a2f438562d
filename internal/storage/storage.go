// Package storage defines the Backend interface and common types for all media
// storage backends in StreamVault.
//
// Backends are read-side only. Media objects are written by the ingest
// pipeline, which is a separate system; this service signs URLs for them,
// checks they exist, and streams local objects back out.
//
// New backends are added by implementing the Backend interface and registering
// with the factory via an init() function in the backend's own package:
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.Config) (Backend, error) {
//	        return NewMyBackend(cfg)
//	    })
//	}
//
// The router package imports each backend with a blank import to trigger
// init(). Adding a new backend requires no changes to the factory, only a
// blank import in internal/api/router.go.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrKeyNotFound is returned by SignURL and Download when no object exists
// at the requested key. Callers use it to tell a missing media object apart
// from a signing failure.
var ErrKeyNotFound = errors.New("storage: key not found")

// Backend is the read-side capability a media store must provide.
type Backend interface {
	// SignURL returns a time-limited URL granting read access to the object.
	// For cloud storage this is a presigned or SAS URL; for local storage it is
	// an HMAC-signed serve path. Returns ErrKeyNotFound when no object exists
	// at the key.
	SignURL(ctx context.Context, key string, ttl time.Duration) (*SignedURL, error)

	// Exists checks if an object exists at the specified key
	Exists(ctx context.Context, key string) (bool, error)

	// Download retrieves an object and returns a reader. Returns
	// ErrKeyNotFound when no object exists at the key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

// SignedURL is a time-limited access URL produced by a backend.
type SignedURL struct {
	// URL is the full URL a player can fetch without further authentication
	URL string

	// ExpiresAt is the instant after which the URL stops working
	ExpiresAt time.Time
}
