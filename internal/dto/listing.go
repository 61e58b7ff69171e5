package dto

import "github.com/vindel10/vindel-api/internal/models"

// CreateListingRequest is the payload of POST /listings.
type CreateListingRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=120"`
	Description string   `json:"description" validate:"max=5000"`
	Category    string   `json:"category" validate:"required,category"`
	Location    string   `json:"location" validate:"max=120"`
	Region      string   `json:"region" validate:"max=120"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Currency    string   `json:"currency" validate:"omitempty,oneof=RON EUR"`
}

// UpdateListingRequest is the payload of PUT /listings/:id. Nil fields are left unchanged.
type UpdateListingRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=3,max=120"`
	Description *string  `json:"description" validate:"omitempty,max=5000"`
	Category    *string  `json:"category" validate:"omitempty,category"`
	Location    *string  `json:"location" validate:"omitempty,max=120"`
	Region      *string  `json:"region" validate:"omitempty,max=120"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Currency    *string  `json:"currency" validate:"omitempty,oneof=RON EUR"`
}

// ListingStatusAction names an owner-driven status change.
type ListingStatusAction string

const (
	ActionPause    ListingStatusAction = "pause"
	ActionResume   ListingStatusAction = "resume"
	ActionSold     ListingStatusAction = "sold"
	ActionResubmit ListingStatusAction = "resubmit"
)

// ChangeStatusRequest is the payload of POST /listings/:id/status.
type ChangeStatusRequest struct {
	Action ListingStatusAction `json:"action" validate:"required,oneof=pause resume sold resubmit"`
}

// RejectListingRequest is the payload of POST /admin/listings/:id/reject.
type RejectListingRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// PromoteListingRequest is the payload of POST /listings/:id/promote.
type PromoteListingRequest struct {
	Days int `json:"days" validate:"required,min=1,max=30"`
}

// ImageUploadResponse describes a stored listing image.
type ImageUploadResponse struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expiresAt"`
}

// ListingPage is a paginated list of listings for owner and moderation views.
type ListingPage struct {
	Items      []models.Listing  `json:"items"`
	Pagination models.Pagination `json:"pagination"`
}

// ExpirySummary reports the result of an expiry sweep.
type ExpirySummary struct {
	Expired []string `json:"expired"`
}
