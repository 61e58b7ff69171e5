package models

import "time"

// Visit records a single view of a listing detail page.
type Visit struct {
	ID        string    `db:"id" json:"id"`
	ListingID string    `db:"listing_id" json:"listingId"`
	VisitorID *string   `db:"visitor_id" json:"visitorId,omitempty"`
	UserAgent string    `db:"user_agent" json:"userAgent"`
	Referrer  string    `db:"referrer" json:"referrer"`
	VisitedAt time.Time `db:"visited_at" json:"visitedAt"`
}

// DailyVisits aggregates visits per calendar day.
type DailyVisits struct {
	Day    time.Time `db:"day" json:"day"`
	Visits int       `db:"visits" json:"visits"`
}

// VisitStats summarises listing traffic.
type VisitStats struct {
	ListingID string        `json:"listingId"`
	ViewCount int64         `json:"viewCount"`
	Days      int           `json:"days"`
	Daily     []DailyVisits `json:"daily"`
}
