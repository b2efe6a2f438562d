// purchase.go defines the Purchase model: a payment-backed access grant for
// one content item by one user. Purchases are written by the payment
// subsystem; the access core only reads them.
package models

import "time"

// PurchaseStatus is the payment lifecycle of a purchase.
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusRefunded  PurchaseStatus = "refunded"
	PurchaseStatusFailed    PurchaseStatus = "failed"
)

// Purchase records payment-backed access. Only status = completed with a nil
// RefundedAt counts as a valid grant; a refund appends state rather than
// rewriting the amount, so completed purchases stay immutable.
type Purchase struct {
	ID             string         `json:"id" db:"id"`
	UserID         string         `json:"user_id" db:"user_id"`
	ContentID      string         `json:"content_id" db:"content_id"`
	OrganizationID *string        `json:"organization_id,omitempty" db:"organization_id"`
	Status         PurchaseStatus `json:"status" db:"status"`
	AmountCents    int64          `json:"amount_cents" db:"amount_cents"`
	// Revenue-split snapshot, immutable once the purchase completes. The
	// access core never reads these; they exist for the payment subsystem and
	// are CHECK-constrained to sum to AmountCents in the schema.
	PlatformFeeCents     int64      `json:"platform_fee_cents" db:"platform_fee_cents"`
	OrganizationFeeCents int64      `json:"organization_fee_cents" db:"organization_fee_cents"`
	CreatorPayoutCents   int64      `json:"creator_payout_cents" db:"creator_payout_cents"`
	RefundedAt           *time.Time `json:"refunded_at,omitempty" db:"refunded_at"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
}

// ValidGrant reports whether this purchase currently grants access.
func (p *Purchase) ValidGrant() bool {
	return p.Status == PurchaseStatusCompleted && p.RefundedAt == nil
}
