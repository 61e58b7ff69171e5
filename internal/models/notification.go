package models

import "time"

// NotificationKind groups notifications by origin.
type NotificationKind string

const (
	NotificationMessage       NotificationKind = "message"
	NotificationListingStatus NotificationKind = "listing_status"
	NotificationPayment       NotificationKind = "payment"
)

// Notification is a persisted user notification.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"userId"`
	Kind      NotificationKind `db:"kind" json:"kind"`
	Title     string           `db:"title" json:"title"`
	Body      string           `db:"body" json:"body"`
	ListingID *string          `db:"listing_id" json:"listingId,omitempty"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
}

// NotificationEventType labels stream events.
type NotificationEventType string

const (
	EventInit    NotificationEventType = "init"
	EventCreated NotificationEventType = "created"
	EventRead    NotificationEventType = "read"
)

// NotificationEvent is pushed to live subscribers.
type NotificationEvent struct {
	Type         NotificationEventType `json:"type"`
	Notification *Notification         `json:"notification,omitempty"`
	Unread       int                   `json:"unread"`
}
