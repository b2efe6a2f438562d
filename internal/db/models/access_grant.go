// access_grant.go defines the AccessGrant model: non-purchase access records
// created by support/admin action (complimentary, subscription, preview).
// Membership-derived access is evaluated live against organization_members and
// is never persisted as a grant row.
package models

import "time"

// AccessType categorizes how a grant was obtained.
type AccessType string

const (
	AccessTypePurchased     AccessType = "purchased"
	AccessTypeComplimentary AccessType = "complimentary"
	AccessTypeSubscription  AccessType = "subscription"
	AccessTypePreview       AccessType = "preview"
)

// AccessGrant is one (user, content) access record. The schema enforces one
// row per pair, making grant creation idempotent.
type AccessGrant struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	ContentID      string     `json:"content_id"`
	OrganizationID *string    `json:"organization_id,omitempty"`
	AccessType     AccessType `json:"access_type"`
	// ExpiresAt is nil for permanent grants.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
