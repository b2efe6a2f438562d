// access_store.go implements the read side of access evaluation. All queries
// for one decision run inside a single read-only transaction so the decision
// is internally coherent: a concurrent refund or unpublish cannot be observed
// by one lookup and missed by another within the same evaluation.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/streamvault/streamvault/internal/db/models"
)

// AccessStore hands out consistent read snapshots for access decisions.
type AccessStore struct {
	db *sql.DB
}

// NewAccessStore creates a new access store
func NewAccessStore(db *sql.DB) *AccessStore {
	return &AccessStore{db: db}
}

// Snapshot runs fn against a read-only transaction. The transaction is rolled
// back if fn returns an error. No write locks are taken; the engine never
// mutates state.
func (s *AccessStore) Snapshot(ctx context.Context, fn func(*AccessReader) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to begin access snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&AccessReader{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit access snapshot: %w", err)
	}
	return nil
}

// AccessReader exposes one named query method per access pattern the decision
// engine needs. Each returns (nil, nil) when no row matches so callers can
// distinguish "no record" from infrastructure failure.
type AccessReader struct {
	tx *sql.Tx
}

// FindPublishedContent retrieves content by ID if it is published and not
// soft-deleted. Draft, archived, and tombstoned content is invisible here —
// the caller reports it as not found, never as forbidden.
func (r *AccessReader) FindPublishedContent(ctx context.Context, contentID string) (*models.Content, error) {
	query := `
		SELECT id, organization_id, creator_id, title, state, price_cents, deleted_at, created_at, updated_at
		FROM content
		WHERE id = $1 AND state = 'published' AND deleted_at IS NULL
	`

	c := &models.Content{}
	err := r.tx.QueryRowContext(ctx, query, contentID).Scan(
		&c.ID,
		&c.OrganizationID,
		&c.CreatorID,
		&c.Title,
		&c.State,
		&c.PriceCents,
		&c.DeletedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get published content: %w", err)
	}

	return c, nil
}

// FindMediaItem retrieves the media asset for a content item, regardless of
// processing status. The issuer decides how to report a not-ready asset.
func (r *AccessReader) FindMediaItem(ctx context.Context, contentID string) (*models.MediaItem, error) {
	query := `
		SELECT id, content_id, kind, status, storage_key, storage_backend, duration_seconds, created_at, updated_at
		FROM media_items
		WHERE content_id = $1
	`

	m := &models.MediaItem{}
	err := r.tx.QueryRowContext(ctx, query, contentID).Scan(
		&m.ID,
		&m.ContentID,
		&m.Kind,
		&m.Status,
		&m.StorageKey,
		&m.StorageBackend,
		&m.DurationSeconds,
		&m.CreatedAt,
		&m.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get media item: %w", err)
	}

	return m, nil
}

// FindCompletedPurchase retrieves a valid purchase grant: completed and not
// refunded. A refunded purchase never grants access on its own.
func (r *AccessReader) FindCompletedPurchase(ctx context.Context, userID, contentID string) (*models.Purchase, error) {
	query := `
		SELECT id, user_id, content_id, organization_id, status, amount_cents,
		       platform_fee_cents, organization_fee_cents, creator_payout_cents,
		       refunded_at, created_at
		FROM purchases
		WHERE user_id = $1 AND content_id = $2
		  AND status = 'completed' AND refunded_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`

	p := &models.Purchase{}
	err := r.tx.QueryRowContext(ctx, query, userID, contentID).Scan(
		&p.ID,
		&p.UserID,
		&p.ContentID,
		&p.OrganizationID,
		&p.Status,
		&p.AmountCents,
		&p.PlatformFeeCents,
		&p.OrganizationFeeCents,
		&p.CreatorPayoutCents,
		&p.RefundedAt,
		&p.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get completed purchase: %w", err)
	}

	return p, nil
}

// FindAccessGrant retrieves a non-expired content access grant for the
// (user, content) pair. Expired grants are filtered server-side so the clock
// used is the database's, consistent with the rest of the snapshot.
func (r *AccessReader) FindAccessGrant(ctx context.Context, userID, contentID string) (*models.AccessGrant, error) {
	query := `
		SELECT id, user_id, content_id, organization_id, access_type, expires_at, created_at
		FROM content_access
		WHERE user_id = $1 AND content_id = $2
		  AND (expires_at IS NULL OR expires_at > NOW())
	`

	g := &models.AccessGrant{}
	err := r.tx.QueryRowContext(ctx, query, userID, contentID).Scan(
		&g.ID,
		&g.UserID,
		&g.ContentID,
		&g.OrganizationID,
		&g.AccessType,
		&g.ExpiresAt,
		&g.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get access grant: %w", err)
	}

	return g, nil
}

// FindActiveMembership retrieves the user's membership in an organization if
// it is active. Inactive (lapsed) memberships do not grant access.
func (r *AccessReader) FindActiveMembership(ctx context.Context, userID, organizationID string) (*models.Membership, error) {
	query := `
		SELECT id, user_id, organization_id, role, status, created_at, updated_at
		FROM organization_members
		WHERE user_id = $1 AND organization_id = $2 AND status = 'active'
	`

	m := &models.Membership{}
	err := r.tx.QueryRowContext(ctx, query, userID, organizationID).Scan(
		&m.ID,
		&m.UserID,
		&m.OrganizationID,
		&m.Role,
		&m.Status,
		&m.CreatedAt,
		&m.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get active membership: %w", err)
	}

	return m, nil
}
