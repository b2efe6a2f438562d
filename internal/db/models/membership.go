// membership.go defines the Membership model: a user's standing relationship
// to an organization that owns content. Only active memberships unlock the
// organization's paid content.
package models

import "time"

// MembershipStatus is the active/inactive state of a membership.
type MembershipStatus string

const (
	MembershipStatusActive   MembershipStatus = "active"
	MembershipStatusInactive MembershipStatus = "inactive"
)

// Membership is one user's row in organization_members.
type Membership struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	OrganizationID string           `json:"organization_id"`
	Role           string           `json:"role"`
	Status         MembershipStatus `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}
