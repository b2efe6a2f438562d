// Package streaming issues short-lived signed URLs for media playback. An
// issued URL is the only way a client reaches media bytes; the issuer runs the
// access decision, checks the asset is streamable, and delegates signing to
// the storage backend the asset lives on. URLs are bearer credentials, so
// their lifetime is clamped and they are never written to logs or audit
// entries.
package streaming

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/streamvault/streamvault/internal/access"
	"github.com/streamvault/streamvault/internal/audit"
	"github.com/streamvault/streamvault/internal/config"
	"github.com/streamvault/streamvault/internal/db/models"
	"github.com/streamvault/streamvault/internal/safego"
	"github.com/streamvault/streamvault/internal/storage"
	"github.com/streamvault/streamvault/internal/telemetry"
)

// MediaNotReadyError indicates the content exists and the caller may access
// it, but there is no streamable asset: no media row, the transcoding
// pipeline has not finished, or the object is missing from storage.
type MediaNotReadyError struct {
	ContentID string
}

func (e *MediaNotReadyError) Error() string {
	return fmt.Sprintf("media for content %s is not ready for streaming", e.ContentID)
}

// InvalidMediaKindError indicates the media row carries a kind the player
// cannot stream. This is malformed data, not a client error.
type InvalidMediaKindError struct {
	Kind string
}

func (e *InvalidMediaKindError) Error() string {
	return fmt.Sprintf("media kind %q is not streamable", e.Kind)
}

// SigningError indicates the storage backend failed to produce a signed URL.
type SigningError struct {
	Backend string
	Err     error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("failed to sign URL on backend %s: %v", e.Backend, e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// StreamURL is an issued playback URL. The URL is valid until ExpiresAt.
type StreamURL struct {
	URL       string           `json:"url"`
	ExpiresAt time.Time        `json:"expires_at"`
	MediaKind models.MediaKind `json:"media_kind"`
}

// AccessDecider runs the layered access decision for a user and content item.
// *access.Engine satisfies this.
type AccessDecider interface {
	Evaluate(ctx context.Context, userID, contentID string) (*access.Decision, error)
}

// BackendResolver maps a media row's storage backend name to a live backend.
type BackendResolver func(name string) (storage.Backend, error)

// Issuer issues signed streaming URLs.
type Issuer struct {
	engine   AccessDecider
	shipper  audit.Shipper
	cfg      config.StreamingConfig
	backends BackendResolver
}

// NewIssuer creates an issuer backed by the registered storage backends.
// shipper may be nil, in which case no audit entries are emitted.
func NewIssuer(engine AccessDecider, cfg *config.Config, shipper audit.Shipper) *Issuer {
	return &Issuer{
		engine:  engine,
		shipper: shipper,
		cfg:     cfg.Streaming,
		backends: func(name string) (storage.Backend, error) {
			return storage.New(name, cfg)
		},
	}
}

// Issue evaluates access for userID on contentID and, if granted, returns a
// signed playback URL for the content's media asset. ttl is the caller's
// requested lifetime; non-positive values fall back to the configured default
// and values above the configured maximum are clamped down, so a client can
// never mint a longer-lived URL than the operator allows.
//
// A denial is returned as *access.DeniedError. Infrastructure failures are
// returned as errors and never converted into a denial.
func (i *Issuer) Issue(ctx context.Context, userID, contentID string, ttl time.Duration) (*StreamURL, error) {
	ctx, cancel := context.WithTimeout(ctx, i.cfg.RequestTimeout)
	defer cancel()

	decision, err := i.engine.Evaluate(ctx, userID, contentID)
	if err != nil {
		// Not-found probes are part of the audit trail: a scan for purchasable
		// IDs looks exactly like this.
		var notFound *access.ContentNotFoundError
		if errors.As(err, &notFound) {
			i.ship(&audit.LogEntry{
				Action:    audit.ActionAccessDenied,
				UserID:    userID,
				ContentID: contentID,
				Reason:    "content_not_found",
			})
		}
		return nil, err
	}

	if !decision.Granted {
		i.ship(&audit.LogEntry{
			Action:    audit.ActionAccessDenied,
			UserID:    userID,
			ContentID: contentID,
			Reason:    string(decision.Reason),
		})
		return nil, &access.DeniedError{UserID: userID, ContentID: contentID}
	}

	// The grant is audited even when issuance fails below; the access decision
	// and the issuance are separate audit events.
	i.ship(&audit.LogEntry{
		Action:    audit.ActionAccessGranted,
		UserID:    userID,
		ContentID: contentID,
		Reason:    string(decision.Reason),
	})

	media := decision.Media
	if media == nil || media.Status != models.MediaStatusReady {
		i.shipFailed(userID, contentID, media, "media_not_ready")
		return nil, &MediaNotReadyError{ContentID: contentID}
	}
	if !media.Kind.Valid() {
		i.shipFailed(userID, contentID, media, "invalid_media_kind")
		return nil, &InvalidMediaKindError{Kind: string(media.Kind)}
	}

	if ttl <= 0 {
		ttl = i.cfg.DefaultURLTTL
	}
	if ttl > i.cfg.MaxURLTTL {
		ttl = i.cfg.MaxURLTTL
	}

	backend, err := i.backends(media.StorageBackend)
	if err != nil {
		telemetry.SigningFailuresTotal.WithLabelValues(media.StorageBackend).Inc()
		i.shipFailed(userID, contentID, media, "signing_failure")
		return nil, &SigningError{Backend: media.StorageBackend, Err: err}
	}

	signed, err := backend.SignURL(ctx, media.StorageKey, ttl)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			// The media row says ready but the object is gone. Treat it the
			// same as an unfinished asset rather than a server fault.
			i.shipFailed(userID, contentID, media, "media_not_ready")
			return nil, &MediaNotReadyError{ContentID: contentID}
		}
		telemetry.SigningFailuresTotal.WithLabelValues(media.StorageBackend).Inc()
		i.shipFailed(userID, contentID, media, "signing_failure")
		return nil, &SigningError{Backend: media.StorageBackend, Err: err}
	}

	telemetry.StreamURLsIssuedTotal.WithLabelValues(media.StorageBackend, string(media.Kind)).Inc()
	i.ship(&audit.LogEntry{
		Action:       audit.ActionStreamIssued,
		UserID:       userID,
		ContentID:    contentID,
		ResourceType: "media",
		ResourceID:   media.ID,
		Reason:       string(decision.Reason),
	})

	return &StreamURL{
		URL:       signed.URL,
		ExpiresAt: signed.ExpiresAt,
		MediaKind: media.Kind,
	}, nil
}

// ship sends an audit entry in the background. Audit delivery must never
// block or fail an issuance.
// shipFailed records an issuance that was granted but produced no URL.
// media may be nil on the not-ready branch.
func (i *Issuer) shipFailed(userID, contentID string, media *models.MediaItem, reason string) {
	entry := &audit.LogEntry{
		Action:    audit.ActionStreamFailed,
		UserID:    userID,
		ContentID: contentID,
		Reason:    reason,
	}
	if media != nil {
		entry.ResourceType = "media"
		entry.ResourceID = media.ID
	}
	i.ship(entry)
}

func (i *Issuer) ship(entry *audit.LogEntry) {
	if i.shipper == nil {
		return
	}
	entry.Timestamp = time.Now().UTC()
	safego.Go("audit ship", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := i.shipper.Ship(ctx, entry); err != nil {
			slog.Warn("failed to ship audit entry", "action", entry.Action, "error", err)
		}
	})
}
