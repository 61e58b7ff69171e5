package dto

// FavoritesSyncResponse reports the reconciled favorites after a sync.
type FavoritesSyncResponse struct {
	ListingIDs  []string `json:"listingIds"`
	AddedLocal  int      `json:"addedLocal"`
	AddedRemote int      `json:"addedRemote"`
}
