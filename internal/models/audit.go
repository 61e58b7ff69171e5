package models

import "time"

// Audit actions recorded for moderation routes.
const (
	AuditActionListingApprove = "LISTING_APPROVE"
	AuditActionListingReject  = "LISTING_REJECT"
	AuditActionListingExpire  = "LISTING_EXPIRE_SWEEP"
)

// AuditResourceListing is the resource name of listing audit entries.
const AuditResourceListing = "listing"

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"userId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	Details    []byte    `db:"details" json:"details,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// AuditFilter narrows audit log queries.
type AuditFilter struct {
	Resource   string
	ResourceID string
	Limit      int
}
