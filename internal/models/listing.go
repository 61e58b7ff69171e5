package models

import (
	"time"

	"github.com/lib/pq"
)

// ListingStatus is the moderation and lifecycle state of a listing.
type ListingStatus string

const (
	StatusActive      ListingStatus = "Activo"
	StatusPaused      ListingStatus = "Pausado"
	StatusUnderReview ListingStatus = "En revisión"
	StatusRejected    ListingStatus = "Rechazado"
	StatusSold        ListingStatus = "Vendido"
	StatusExpired     ListingStatus = "Expirado"
)

// TransitionActor identifies who may perform a status change.
type TransitionActor string

const (
	ActorOwner     TransitionActor = "owner"
	ActorModerator TransitionActor = "moderator"
	ActorSystem    TransitionActor = "system"
)

var listingTransitions = map[ListingStatus]map[ListingStatus]TransitionActor{
	StatusUnderReview: {StatusActive: ActorModerator, StatusRejected: ActorModerator},
	StatusActive:      {StatusPaused: ActorOwner, StatusSold: ActorOwner, StatusExpired: ActorSystem},
	StatusPaused:      {StatusActive: ActorOwner, StatusSold: ActorOwner},
	StatusRejected:    {StatusUnderReview: ActorOwner},
	StatusExpired:     {StatusUnderReview: ActorOwner},
}

// Valid reports whether s is one of the known statuses.
func (s ListingStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusUnderReview, StatusRejected, StatusSold, StatusExpired:
		return true
	}
	return false
}

// CanTransition reports whether actor may move a listing from one status to another.
// Legacy listings without a status are treated as active.
func CanTransition(from, to ListingStatus, actor TransitionActor) bool {
	if from == "" {
		from = StatusActive
	}
	allowed, ok := listingTransitions[from][to]
	return ok && allowed == actor
}

// ListingDocument is a listing row as stored. Legacy rows may miss any optional
// column, so every such field is a pointer.
type ListingDocument struct {
	ID              string         `db:"id"`
	OwnerID         *string        `db:"owner_id"`
	Title           *string        `db:"title"`
	Description     *string        `db:"description"`
	Category        *string        `db:"category"`
	Location        *string        `db:"location"`
	Region          *string        `db:"region"`
	Status          *string        `db:"status"`
	Price           *float64       `db:"price"`
	Currency        *string        `db:"currency"`
	Images          pq.StringArray `db:"images"`
	PromotedUntil   *time.Time     `db:"promoted_until"`
	ViewCount       int64          `db:"view_count"`
	PublicationDate *DocTimestamp  `db:"publication_date"`
	ActivatedAt     *time.Time     `db:"activated_at"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// StatusValue returns the stored status or "" when absent.
func (d ListingDocument) StatusValue() ListingStatus {
	return ListingStatus(deref(d.Status))
}

// PublicationMillis returns the publication timestamp in epoch milliseconds.
func (d ListingDocument) PublicationMillis() (int64, bool) {
	if d.PublicationDate == nil {
		return 0, false
	}
	return d.PublicationDate.Millis()
}

// ToListing normalizes a stored document into its API representation.
func (d ListingDocument) ToListing() Listing {
	listing := Listing{
		ID:            d.ID,
		OwnerID:       deref(d.OwnerID),
		Title:         deref(d.Title),
		Description:   deref(d.Description),
		Category:      deref(d.Category),
		Location:      deref(d.Location),
		Region:        deref(d.Region),
		Status:        d.StatusValue(),
		Price:         d.Price,
		Currency:      deref(d.Currency),
		Images:        []string(d.Images),
		PromotedUntil: d.PromotedUntil,
		ViewCount:     d.ViewCount,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if listing.Images == nil {
		listing.Images = []string{}
	}
	if ms, ok := d.PublicationMillis(); ok {
		listing.PublicationDate = &ms
	}
	return listing
}

// Listing is the normalized listing returned by the API.
type Listing struct {
	ID              string        `json:"id"`
	OwnerID         string        `json:"ownerId,omitempty"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Category        string        `json:"category"`
	Location        string        `json:"location"`
	Region          string        `json:"region"`
	Status          ListingStatus `json:"status,omitempty"`
	Price           *float64      `json:"price,omitempty"`
	Currency        string        `json:"currency,omitempty"`
	Images          []string      `json:"images"`
	PromotedUntil   *time.Time    `json:"promotedUntil,omitempty"`
	ViewCount       int64         `json:"viewCount"`
	PublicationDate *int64        `json:"publicationDate"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// ListingFilter narrows owner and moderation listings.
type ListingFilter struct {
	OwnerID  string
	Status   ListingStatus
	Page     int
	PageSize int
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
