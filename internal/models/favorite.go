package models

// FavoritesState is the reconciled favorites set for a device and user.
type FavoritesState struct {
	DeviceID   string   `json:"deviceId,omitempty"`
	ListingIDs []string `json:"listingIds"`
}
