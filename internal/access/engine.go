// Package access implements the layered content access decision engine.
//
// A decision is evaluated against a single read-only database snapshot so that
// concurrent writes (a refund landing mid-request, a membership being revoked)
// cannot produce a decision that no single point in time would justify. Grant
// layers are consulted in a fixed order and the first match wins:
//
//  1. Free content: published content with no price grants everyone access.
//  2. Purchase: a completed, non-refunded purchase by the requesting user.
//  3. Direct grant: a non-expired row in content_access (complimentary and
//     similar grants issued outside the purchase flow).
//  4. Organization membership: an active membership in the organization that
//     owns the content. Skipped entirely for creator-owned content.
//
// Infrastructure failures are never coerced into a grant or a denial; they
// surface as errors and the caller reports a server fault.
package access

import (
	"context"
	"log/slog"

	"github.com/streamvault/streamvault/internal/db/models"
	"github.com/streamvault/streamvault/internal/db/repositories"
	"github.com/streamvault/streamvault/internal/telemetry"
)

// Reason identifies the grant layer that produced a positive decision.
type Reason string

const (
	ReasonFree               Reason = "free"
	ReasonPurchased          Reason = "purchased"
	ReasonComplimentary      Reason = "complimentary"
	ReasonOrganizationMember Reason = "organization_member"

	// reasonNone labels denials in metrics.
	reasonNone = "no_grant"
)

// Decision is the outcome of evaluating one (user, content) pair. When access
// is granted, Content and Media carry the rows read inside the decision
// snapshot so downstream consumers (URL signing, responses) operate on the
// same state the decision was made against. Media is nil when the content has
// no media item yet.
type Decision struct {
	Granted bool
	Reason  Reason
	Content *models.Content
	Media   *models.MediaItem
}

// Reader is the query surface the engine needs from one snapshot.
// *repositories.AccessReader satisfies it.
type Reader interface {
	FindPublishedContent(ctx context.Context, contentID string) (*models.Content, error)
	FindMediaItem(ctx context.Context, contentID string) (*models.MediaItem, error)
	FindCompletedPurchase(ctx context.Context, userID, contentID string) (*models.Purchase, error)
	FindAccessGrant(ctx context.Context, userID, contentID string) (*models.AccessGrant, error)
	FindActiveMembership(ctx context.Context, userID, organizationID string) (*models.Membership, error)
}

// Store opens consistent read snapshots for the engine.
type Store interface {
	Snapshot(ctx context.Context, fn func(Reader) error) error
}

// SQLStore adapts *repositories.AccessStore to the Store interface.
type SQLStore struct {
	store *repositories.AccessStore
}

func NewSQLStore(store *repositories.AccessStore) *SQLStore {
	return &SQLStore{store: store}
}

func (s *SQLStore) Snapshot(ctx context.Context, fn func(Reader) error) error {
	return s.store.Snapshot(ctx, func(r *repositories.AccessReader) error {
		return fn(r)
	})
}

// Engine evaluates content access decisions.
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Evaluate decides whether userID may access contentID.
//
// Returns *ContentNotFoundError when the content does not exist, is
// unpublished, or is soft-deleted. A denial is not an error: the returned
// Decision has Granted = false. Any other error is an infrastructure failure
// and carries no access judgement.
func (e *Engine) Evaluate(ctx context.Context, userID, contentID string) (*Decision, error) {
	var decision *Decision

	err := e.store.Snapshot(ctx, func(r Reader) error {
		content, err := r.FindPublishedContent(ctx, contentID)
		if err != nil {
			return err
		}
		// The query already filters on state and deleted_at; Streamable re-asserts
		// the predicate on the scanned row so a drifted query cannot widen access.
		if content == nil || !content.Streamable() {
			return &ContentNotFoundError{ContentID: contentID}
		}

		media, err := r.FindMediaItem(ctx, contentID)
		if err != nil {
			return err
		}

		reason, err := e.matchGrant(ctx, r, userID, content)
		if err != nil {
			return err
		}

		if reason == "" {
			decision = &Decision{Granted: false, Content: content, Media: media}
			return nil
		}
		decision = &Decision{Granted: true, Reason: reason, Content: content, Media: media}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.record(ctx, userID, contentID, decision)
	return decision, nil
}

// matchGrant walks the grant layers in order and returns the first matching
// reason, or "" when no layer grants access.
func (e *Engine) matchGrant(ctx context.Context, r Reader, userID string, content *models.Content) (Reason, error) {
	if content.Free() {
		return ReasonFree, nil
	}

	purchase, err := r.FindCompletedPurchase(ctx, userID, content.ID)
	if err != nil {
		return "", err
	}
	if purchase != nil {
		return ReasonPurchased, nil
	}

	grant, err := r.FindAccessGrant(ctx, userID, content.ID)
	if err != nil {
		return "", err
	}
	if grant != nil {
		return ReasonComplimentary, nil
	}

	// Membership only applies to organization-owned content. Creator-owned
	// content has no organization and no membership path.
	if content.OrganizationID != nil {
		membership, err := r.FindActiveMembership(ctx, userID, *content.OrganizationID)
		if err != nil {
			return "", err
		}
		if membership != nil {
			return ReasonOrganizationMember, nil
		}
	}

	return "", nil
}

func (e *Engine) record(ctx context.Context, userID, contentID string, d *Decision) {
	if d.Granted {
		telemetry.AccessDecisionsTotal.WithLabelValues("granted", string(d.Reason)).Inc()
		slog.DebugContext(ctx, "access granted",
			"user_id", userID,
			"content_id", contentID,
			"reason", d.Reason,
		)
		return
	}
	telemetry.AccessDecisionsTotal.WithLabelValues("denied", reasonNone).Inc()
	slog.InfoContext(ctx, "access denied",
		"user_id", userID,
		"content_id", contentID,
	)
}
